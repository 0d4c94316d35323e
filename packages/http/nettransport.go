package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/textproto"
	neturl "net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/idna"
)

const (
	// DefaultConnectTimeout applies when a transfer sets no connect timeout
	DefaultConnectTimeout = 300 * time.Second
	// DefaultMaxRedirects is the number of redirects followed before giving up
	DefaultMaxRedirects = 50
)

// NetTransport runs transfers on net/http. Every handle owns its own
// connections, nothing is shared between handles.
type NetTransport struct{}

func NewNetTransport() *NetTransport {
	return &NetTransport{}
}

func (t *NetTransport) Open() (Handle, error) {
	return &netHandle{}, nil
}

type netHandle struct {
	opts      Options
	transport *http.Transport
	client    *http.Client
	proxyURL  *neturl.URL

	mu          sync.Mutex
	info        Info
	currentHost string
	connected   bool
	closed      bool
}

func (h *netHandle) Setup(opts Options) error {
	if h.closed {
		return errors.New("handle is closed")
	}
	h.opts = opts

	connectTimeout := time.Duration(opts.ConnectTimeoutMs) * time.Millisecond
	if connectTimeout == 0 {
		connectTimeout = DefaultConnectTimeout
	}

	dialer := &net.Dialer{Timeout: connectTimeout}
	if opts.Interface != "" {
		ip, err := resolveInterface(opts.Interface)
		if err != nil {
			return newTransportError(CodeInterfaceFailed, err, "Couldn't bind to '%s'", opts.Interface)
		}
		dialer.LocalAddr = &net.TCPAddr{IP: ip}
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSClientConfig:     h.tlsConfig(),
		TLSHandshakeTimeout: connectTimeout,
		DisableCompression:  true,
		MaxIdleConnsPerHost: 1,
	}

	if opts.Proxy != "" {
		proxyURL, err := parseProxy(opts.Proxy)
		if err != nil {
			return newTransportError(CodeURLMalformat, err, "Unsupported proxy syntax in '%s'", opts.Proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		h.proxyURL = proxyURL
	}

	h.transport = transport
	h.client = &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// redirects are followed hop by hop in Perform
			return http.ErrUseLastResponse
		},
	}
	return nil
}

func (h *netHandle) tlsConfig() *tls.Config {
	verifyHost := h.opts.VerifyHost > 0
	verifyPeer := h.opts.VerifyPeer
	if verifyHost && verifyPeer {
		return &tls.Config{}
	}

	cfg := &tls.Config{InsecureSkipVerify: true}
	if !verifyHost && !verifyPeer {
		return cfg
	}

	cfg.VerifyConnection = func(cs tls.ConnectionState) error {
		if len(cs.PeerCertificates) == 0 {
			return errors.New("tls: server sent no certificate")
		}
		leaf := cs.PeerCertificates[0]

		if verifyPeer {
			intermediates := x509.NewCertPool()
			for _, cert := range cs.PeerCertificates[1:] {
				intermediates.AddCert(cert)
			}
			if _, err := leaf.Verify(x509.VerifyOptions{Intermediates: intermediates}); err != nil {
				return err
			}
		}

		if verifyHost {
			name := cs.ServerName
			if name == "" {
				// no SNI is sent for IP literals
				name = h.hopHost()
			}
			if err := leaf.VerifyHostname(name); err != nil {
				return err
			}
		}
		return nil
	}
	return cfg
}

func (h *netHandle) Perform(onHeader func(line string)) ([]byte, error) {
	if h.client == nil {
		return nil, errors.New("handle is not set up")
	}
	if onHeader == nil {
		onHeader = func(string) {}
	}

	start := time.Now()
	defer func() {
		h.update(func(i *Info) { i.TotalTimeMs = time.Since(start).Milliseconds() })
	}()

	target, err := prepareURL(h.opts.URL)
	if err != nil {
		h.beginHop(h.opts.URL, "")
		return nil, err
	}

	ctx := context.Background()
	if h.opts.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(h.opts.TimeoutMs)*time.Millisecond)
		defer cancel()
	}
	ctx = httptrace.WithClientTrace(ctx, h.trace(onHeader))

	originHost := target.Host
	post := h.opts.Post
	body := h.opts.Body

	for hop := 0; ; hop++ {
		h.beginHop(target.String(), target.Hostname())

		req, err := h.newRequest(ctx, post, body, target, target.Host == originHost)
		if err != nil {
			return nil, newTransportError(CodeURLMalformat, err, "URL rejected: %v", err)
		}

		resp, err := h.client.Do(req)
		if err != nil {
			return nil, h.translate(err, start)
		}

		h.update(func(i *Info) { i.StatusCode = resp.StatusCode })
		emitHeaders(onHeader, resp.Proto, resp.Status, resp.Header)

		location := resp.Header.Get("Location")
		if !h.opts.FollowLocation || !isRedirect(resp.StatusCode) || location == "" {
			return h.readBody(resp, start)
		}
		discard(resp.Body)

		if h.opts.MaxRedirects >= 0 && hop >= h.opts.MaxRedirects {
			return nil, newTransportError(CodeTooManyRedirects, nil, "Maximum (%d) redirects followed", h.opts.MaxRedirects)
		}

		ref, err := target.Parse(location)
		if err != nil {
			return nil, newTransportError(CodeURLMalformat, err, "Redirect location is malformed: %s", location)
		}
		next, err := prepareURL(ref.String())
		if err != nil {
			return nil, err
		}

		switch resp.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther:
			post = false
			body = nil
		}

		h.update(func(i *Info) { i.RedirectCount++ })
		target = next
	}
}

func (h *netHandle) newRequest(ctx context.Context, post bool, body []byte, target *neturl.URL, sameHost bool) (*http.Request, error) {
	method := http.MethodGet
	var reader io.Reader
	if post {
		method = http.MethodPost
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "*/*")
	if post && body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	accept := h.opts.AcceptEncoding
	if accept == "" {
		accept = SupportedEncodings
	}
	req.Header.Set("Accept-Encoding", accept)

	if h.opts.UserAgent != "" {
		req.Header.Set("User-Agent", h.opts.UserAgent)
	}
	if h.opts.Referer != "" {
		req.Header.Set("Referer", h.opts.Referer)
	}

	// credentials are only sent to the host the transfer started on
	if h.opts.UserPwd != "" && sameHost {
		user, pass, _ := strings.Cut(h.opts.UserPwd, ":")
		req.SetBasicAuth(user, pass)
	}

	applyHeaderLines(req, h.opts.Headers)
	return req, nil
}

// applyHeaderLines applies raw header lines. "Name: value" replaces any
// header set internally, "Name:" removes it and "Name;" sends it empty.
func applyHeaderLines(req *http.Request, lines []string) {
	seen := make(map[string]bool)
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			if n, found := strings.CutSuffix(strings.TrimSpace(line), ";"); found && n != "" {
				req.Header[http.CanonicalHeaderKey(n)] = []string{""}
			}
			continue
		}

		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" {
			continue
		}
		key := http.CanonicalHeaderKey(name)

		if value == "" {
			req.Header.Del(key)
			if key == "User-Agent" {
				req.Header[key] = []string{""}
			}
			continue
		}

		if key == "Host" {
			req.Host = value
			continue
		}

		if seen[key] {
			req.Header.Add(key, value)
		} else {
			req.Header.Set(key, value)
			seen[key] = true
		}
	}
}

func (h *netHandle) trace(onHeader func(line string)) *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		ConnectStart: func(network, addr string) {
			h.setPrimary(addr)
		},
		GotConn: func(ci httptrace.GotConnInfo) {
			h.mu.Lock()
			h.connected = true
			h.mu.Unlock()
			if ci.Conn != nil {
				h.setPrimary(ci.Conn.RemoteAddr().String())
			}
		},
		Got1xxResponse: func(code int, header textproto.MIMEHeader) error {
			emitHeaders(onHeader, "HTTP/1.1", fmt.Sprintf("%d %s", code, http.StatusText(code)), http.Header(header))
			return nil
		},
	}
}

// emitHeaders delivers one header block the way it appears on the wire:
// status line, header lines, blank line.
func emitHeaders(onHeader func(line string), proto, status string, header http.Header) {
	onHeader(proto + " " + status + "\r\n")

	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range header[k] {
			onHeader(k + ": " + v + "\r\n")
		}
	}
	onHeader("\r\n")
}

func (h *netHandle) readBody(resp *http.Response, start time.Time) ([]byte, error) {
	defer resp.Body.Close()

	data, err := io.ReadAll(&countingReader{r: resp.Body, h: h})
	if err != nil {
		switch {
		case isTimeout(err):
			return nil, newTransportError(CodeOperationTimedOut, err, "Operation timed out after %d milliseconds with %d bytes received",
				time.Since(start).Milliseconds(), h.Info().BytesReceived)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, newTransportError(CodePartialFile, err, "transfer closed with outstanding read data remaining")
		default:
			return nil, newTransportError(CodeRecvError, err, "Recv failure: %v", err)
		}
	}

	return decodeBody(data, strings.Join(resp.Header.Values("Content-Encoding"), ","))
}

func (h *netHandle) Info() Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.info
}

func (h *netHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.transport != nil {
		h.transport.CloseIdleConnections()
	}
	return nil
}

func (h *netHandle) update(fn func(i *Info)) {
	h.mu.Lock()
	fn(&h.info)
	h.mu.Unlock()
}

func (h *netHandle) beginHop(effectiveURL, host string) {
	h.mu.Lock()
	h.info.EffectiveURL = effectiveURL
	h.currentHost = host
	h.connected = false
	h.mu.Unlock()
}

func (h *netHandle) hopHost() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentHost
}

func (h *netHandle) isConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

func (h *netHandle) setPrimary(addr string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return
	}
	p, _ := strconv.Atoi(port)
	h.update(func(i *Info) {
		i.PrimaryIP = host
		i.PrimaryPort = p
	})
}

type countingReader struct {
	r io.Reader
	h *netHandle
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.h.update(func(i *Info) { i.BytesReceived += int64(n) })
	}
	return n, err
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func discard(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

// prepareURL parses a target URL, defaults the scheme to http and converts an
// internationalized host name to its ASCII form.
func prepareURL(raw string) (*neturl.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return nil, newTransportError(CodeURLMalformat, nil, "URL using bad/illegal format or missing URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := neturl.Parse(raw)
	if err != nil {
		return nil, newTransportError(CodeURLMalformat, err, "URL using bad/illegal format or missing URL")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, newTransportError(CodeUnsupportedProtocol, nil, "Protocol \"%s\" not supported", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, newTransportError(CodeURLMalformat, nil, "URL rejected: No host part in the URL")
	}

	if net.ParseIP(host) == nil {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return nil, newTransportError(CodeURLMalformat, err, "URL rejected: Bad hostname")
		}
		if port := u.Port(); port != "" {
			u.Host = net.JoinHostPort(ascii, port)
		} else {
			u.Host = ascii
		}
	}
	return u, nil
}

func parseProxy(addr string) (*neturl.URL, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := neturl.Parse(addr)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy %q has no host", addr)
	}
	return u, nil
}

// resolveInterface accepts an IP address or the name of a local interface
func resolveInterface(name string) (net.IP, error) {
	if ip := net.ParseIP(name); ip != nil {
		return ip, nil
	}

	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok {
			return ipNet.IP, nil
		}
	}
	return nil, fmt.Errorf("interface %s has no address", name)
}
