package http

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetchKind(t *testing.T, err error) *TransferError {
	t.Helper()
	require.Error(t, err)
	var terr *TransferError
	require.True(t, errors.As(err, &terr), "expected *TransferError, got %T: %v", err, err)
	return terr
}

func TestNetTransport_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/test", r.URL.Path)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("Expect"))
		assert.Empty(t, r.Header.Get("Referer"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "hello"}`))
	}))
	defer server.Close()

	resp, err := NewExecutor().Fetch(NewRequest(server.URL + "/test"))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, server.URL+"/test", resp.RealURL)
	assert.Equal(t, "127.0.0.1", resp.LastIP)
	assert.Equal(t, "application/json", resp.Header("Content-Type"))
	assert.Len(t, resp.AllHeaders, 1)
	assert.Contains(t, resp.BodyString(), "hello")
	for _, line := range resp.LastHeaders() {
		assert.False(t, strings.HasPrefix(line, "HTTP/"), "status line leaked: %s", line)
	}
}

func TestNetTransport_InterimResponseMergesIntoHop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", "</style.css>; rel=preload")
		w.WriteHeader(http.StatusEarlyHints)
		w.Header().Del("Link")
		w.Header().Set("X-Final", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("done"))
	}))
	defer server.Close()

	resp, err := NewExecutor().Fetch(NewRequest(server.URL + "/hints"))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "done", resp.BodyString())

	// both header blocks share one effective URL and land in one group
	require.Len(t, resp.AllHeaders, 1)
	assert.Contains(t, resp.AllHeaders[0], "Link: </style.css>; rel=preload")
	assert.Contains(t, resp.AllHeaders[0], "X-Final: yes")
	for _, line := range resp.AllHeaders[0] {
		assert.False(t, strings.HasPrefix(line, "HTTP/"), "status line leaked: %s", line)
	}
}

func TestNetTransport_FollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/first":
			w.Header().Set("X-Hop", "first")
			http.Redirect(w, r, "/second", http.StatusMovedPermanently)
		case "/second":
			w.Header().Set("X-Hop", "second")
			http.Redirect(w, r, "/final", http.StatusFound)
		default:
			w.Header().Set("X-Hop", "final")
			_, _ = w.Write([]byte("final"))
		}
	}))
	defer server.Close()

	resp, err := NewExecutor().Fetch(NewRequest(server.URL + "/first").SetFollowLocation(true))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, server.URL+"/final", resp.RealURL)
	assert.Equal(t, "final", resp.BodyString())
	require.Len(t, resp.AllHeaders, 3)
	assert.Contains(t, resp.AllHeaders[0], "X-Hop: first")
	assert.Contains(t, resp.AllHeaders[0], "Location: /second")
	assert.Contains(t, resp.AllHeaders[1], "X-Hop: second")
	assert.Contains(t, resp.AllHeaders[2], "X-Hop: final")
}

func TestNetTransport_NoFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	resp, err := NewExecutor().Fetch(NewRequest(server.URL + "/redirect"))

	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, server.URL+"/redirect", resp.RealURL)
	assert.Len(t, resp.AllHeaders, 1)
	assert.Equal(t, "/final", resp.Header("Location"))
}

func TestNetTransport_MaxRedirects(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Redirect(w, r, "/redirect", http.StatusFound)
	}))
	defer server.Close()

	_, err := NewExecutor(WithMaxRedirects(3)).Fetch(NewRequest(server.URL + "/redirect").SetFollowLocation(true))

	terr := fetchKind(t, err)
	assert.Equal(t, KindTransfer, terr.Kind)
	assert.Equal(t, CodeTooManyRedirects, terr.Code)
	assert.Contains(t, terr.Message, "Maximum (3) redirects followed")
	assert.Equal(t, server.URL+"/redirect", terr.LastURL)
	assert.Equal(t, int32(4), requests.Load())
}

func TestNetTransport_PostBodies(t *testing.T) {
	tests := []struct {
		name            string
		request         func(url string) *Request
		wantBody        string
		wantContentType string
	}{
		{
			name: "raw body",
			request: func(url string) *Request {
				return NewRequest(url).SetMethod(MethodPost).SetRawBody("raw=body")
			},
			wantBody:        "raw=body",
			wantContentType: "application/x-www-form-urlencoded",
		},
		{
			name: "form fields",
			request: func(url string) *Request {
				return NewRequest(url).SetMethod(MethodPost).AddPostField("a", "1").AddPostField("b", "2")
			},
			wantBody:        "a=1&b=2",
			wantContentType: "application/x-www-form-urlencoded",
		},
		{
			name: "custom content type",
			request: func(url string) *Request {
				return NewRequest(url).SetMethod(MethodPost).SetHeader("Content-Type", "application/json").SetRawBody(`{"a":1}`)
			},
			wantBody:        `{"a":1}`,
			wantContentType: "application/json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody, gotMethod, gotContentType, gotExpect string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				gotBody = string(b)
				gotMethod = r.Method
				gotContentType = r.Header.Get("Content-Type")
				gotExpect = r.Header.Get("Expect")
				w.WriteHeader(http.StatusCreated)
			}))
			defer server.Close()

			resp, err := NewExecutor().Fetch(tt.request(server.URL))

			require.NoError(t, err)
			assert.Equal(t, 201, resp.StatusCode)
			assert.Equal(t, "POST", gotMethod)
			assert.Equal(t, tt.wantBody, gotBody)
			assert.Equal(t, tt.wantContentType, gotContentType)
			assert.Empty(t, gotExpect)
		})
	}
}

func TestNetTransport_PostRedirectBecomesGet(t *testing.T) {
	var finalMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/submit" {
			http.Redirect(w, r, "/done", http.StatusSeeOther)
			return
		}
		finalMethod = r.Method
		_, _ = w.Write([]byte("done"))
	}))
	defer server.Close()

	req := NewRequest(server.URL+"/submit").SetMethod(MethodPost).AddPostField("a", "1").SetFollowLocation(true)
	resp, err := NewExecutor().Fetch(req)

	require.NoError(t, err)
	assert.Equal(t, "GET", finalMethod)
	assert.Equal(t, 2, resp.Hops())
}

func TestNetTransport_RequestHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "about:blank", r.Header.Get("Referer"))
		assert.Equal(t, "custom-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, []string{"1", "2"}, r.Header.Values("X-Multi"))
		assert.Equal(t, "", r.Header.Get("Accept"))
		_, hasEmpty := r.Header["X-Empty"]
		assert.True(t, hasEmpty)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	req := NewRequest(server.URL).
		SetBasicAuth("user", "secret").
		SetReferer("about:blank").
		SetUserAgent("custom-agent").
		AddHeaderLine("X-Multi: 1").
		AddHeaderLine("X-Multi: 2").
		AddHeaderLine("Accept:").
		AddHeaderLine("X-Empty;")

	resp, err := NewExecutor().Fetch(req)

	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}

func TestNetTransport_DecodesCompressedBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept := r.Header.Get("Accept-Encoding")
		assert.Contains(t, accept, "gzip")
		assert.Contains(t, accept, "zstd")

		switch r.URL.Path {
		case "/gzip":
			var buf bytes.Buffer
			gz := gzip.NewWriter(&buf)
			_, _ = gz.Write([]byte("gzipped body"))
			_ = gz.Close()
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(buf.Bytes())
		case "/zstd":
			enc, _ := zstd.NewWriter(nil)
			data := enc.EncodeAll([]byte("zstd body"), nil)
			_ = enc.Close()
			w.Header().Set("Content-Encoding", "zstd")
			_, _ = w.Write(data)
		}
	}))
	defer server.Close()

	resp, err := NewExecutor().Fetch(NewRequest(server.URL + "/gzip"))
	require.NoError(t, err)
	assert.Equal(t, "gzipped body", resp.BodyString())
	assert.Equal(t, "gzip", resp.Header("Content-Encoding"))

	resp, err = NewExecutor().Fetch(NewRequest(server.URL + "/zstd"))
	require.NoError(t, err)
	assert.Equal(t, "zstd body", resp.BodyString())
}

func TestNetTransport_OperationTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req := NewRequest(server.URL)
	req.RequestTimeoutMs = 50
	_, err := NewExecutor().Fetch(req)

	terr := fetchKind(t, err)
	assert.Equal(t, KindOperationTimeout, terr.Kind)
	assert.Equal(t, CodeOperationTimedOut, terr.Code)
	assert.True(t, strings.HasPrefix(terr.Message, "Operation timed out after"))
	assert.Equal(t, "127.0.0.1", terr.LastIP)
}

func TestNetTransport_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = NewExecutor().Fetch(NewRequest("http://" + addr + "/"))

	terr := fetchKind(t, err)
	assert.Equal(t, KindConnectionRefused, terr.Kind)
	assert.Equal(t, CodeCouldNotConnect, terr.Code)
	assert.Equal(t, "http://"+addr+"/", terr.LastURL)
	assert.Equal(t, "127.0.0.1", terr.LastIP)
}

func TestNetTransport_EmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	defer server.Close()

	_, err := NewExecutor().Fetch(NewRequest(server.URL))

	terr := fetchKind(t, err)
	assert.Equal(t, KindEmptyReplyFromServer, terr.Kind)
	assert.Equal(t, "127.0.0.1", terr.LastIP)
}

func TestNetTransport_TLSVerification(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))
	defer server.Close()

	t.Run("untrusted certificate fails", func(t *testing.T) {
		_, err := NewExecutor().Fetch(NewRequest(server.URL))

		terr := fetchKind(t, err)
		assert.Equal(t, KindSSL, terr.Kind)
		assert.Equal(t, CodePeerFailedVerify, terr.Code)
		assert.Equal(t, "127.0.0.1", terr.LastIP)
	})

	t.Run("verification disabled", func(t *testing.T) {
		resp, err := NewExecutor().Fetch(NewRequest(server.URL).SetVerifyPeer(false).SetVerifyHost(false))

		require.NoError(t, err)
		assert.Equal(t, "secure", resp.BodyString())
	})

	t.Run("host check without peer check", func(t *testing.T) {
		resp, err := NewExecutor().Fetch(NewRequest(server.URL).SetVerifyPeer(false))

		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})
}

func TestNetTransport_URLErrors(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantKind ErrorKind
		wantCode int
	}{
		{name: "space in host", url: "http://exa mple.com/", wantKind: KindIllegalURLCharacter, wantCode: CodeURLMalformat},
		{name: "missing host", url: "http:///path", wantKind: KindIllegalURLCharacter, wantCode: CodeURLMalformat},
		{name: "unsupported scheme", url: "ftp://example.com/file", wantKind: KindTransfer, wantCode: CodeUnsupportedProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExecutor().Fetch(NewRequest(tt.url))

			terr := fetchKind(t, err)
			assert.Equal(t, tt.wantKind, terr.Kind)
			assert.Equal(t, tt.wantCode, terr.Code)
			assert.Empty(t, terr.LastIP)
		})
	}
}

func TestNetTransport_BindFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	t.Run("unknown interface", func(t *testing.T) {
		_, err := NewExecutor().Fetch(NewRequest(server.URL).SetOutgoingIP("nosuchif0"))

		terr := fetchKind(t, err)
		assert.Equal(t, KindBindAddressFailed, terr.Kind)
		assert.Equal(t, CodeInterfaceFailed, terr.Code)
	})

	t.Run("address not on this host", func(t *testing.T) {
		_, err := NewExecutor().Fetch(NewRequest(server.URL).SetOutgoingIP("203.0.113.7"))

		terr := fetchKind(t, err)
		assert.Equal(t, KindBindAddressFailed, terr.Kind)
	})
}

func TestNetTransport_Proxy(t *testing.T) {
	var proxiedURL string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxiedURL = r.URL.String()
		_, _ = w.Write([]byte("from proxy"))
	}))
	defer proxy.Close()

	executor := NewExecutor()
	executor.SetProxyAddress(strings.TrimPrefix(proxy.URL, "http://"))

	resp, err := executor.Fetch(NewRequest("http://upstream.test/page"))

	require.NoError(t, err)
	assert.Equal(t, "from proxy", resp.BodyString())
	assert.Equal(t, "http://upstream.test/page", proxiedURL)
	assert.Equal(t, "127.0.0.1", resp.LastIP)
}

func TestNetHandle_CloseIsIdempotent(t *testing.T) {
	h, err := NewNetTransport().Open()
	require.NoError(t, err)
	require.NoError(t, h.Setup(Options{URL: "http://a.test/"}))

	assert.NoError(t, h.Close())
	assert.NoError(t, h.Close())
	assert.Error(t, h.Setup(Options{URL: "http://a.test/"}))
}

func TestPrepareURL(t *testing.T) {
	u, err := prepareURL("bücher.example:8080/path")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "xn--bcher-kva.example:8080", u.Host)

	u, err = prepareURL("HTTPS://[::1]/x")
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "[::1]", u.Host)
}
