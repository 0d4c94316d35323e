package http

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Fetcher turns a request into a response. Executor performs network I/O,
// the responders in packages/mock answer offline.
type Fetcher interface {
	Fetch(req *Request) (*Response, error)
}

var _ Fetcher = (*Executor)(nil)

// Executor runs each request through a fresh transport handle
type Executor struct {
	transport    Transport
	logger       *slog.Logger
	maxRedirects int

	mu           sync.RWMutex
	proxyAddress string
}

type ExecutorOption func(*Executor)

func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		transport:    NewNetTransport(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxRedirects: DefaultMaxRedirects,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func WithTransport(t Transport) ExecutorOption {
	return func(e *Executor) {
		e.transport = t
	}
}

func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMaxRedirects bounds redirect following. A negative value means no limit.
func WithMaxRedirects(n int) ExecutorOption {
	return func(e *Executor) {
		e.maxRedirects = n
	}
}

// WithProxy sets the initial proxy address
func WithProxy(addr string) ExecutorOption {
	return func(e *Executor) {
		e.proxyAddress = addr
	}
}

// SetProxyAddress routes every later transfer through addr. An empty address
// disables the proxy.
func (e *Executor) SetProxyAddress(addr string) {
	e.mu.Lock()
	e.proxyAddress = addr
	e.mu.Unlock()
}

func (e *Executor) ProxyAddress() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.proxyAddress
}

// Fetch performs one transfer. On failure it returns a *TransferError and no
// response.
func (e *Executor) Fetch(req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := e.logger.With("fetch_id", uuid.NewString(), "url", req.URL, "method", req.Method)
	log.Debug("starting transfer")

	var resp *Response
	err := e.withHandle(log, func(h Handle) error {
		if err := h.Setup(e.options(req)); err != nil {
			return e.fail(h, err)
		}

		collector := NewHeaderCollector()
		body, err := h.Perform(func(line string) {
			collector.OnHeaderLine(line, h.Info().EffectiveURL)
		})
		if err != nil {
			return e.fail(h, err)
		}

		info := h.Info()
		resp = &Response{
			StatusCode: info.StatusCode,
			RealURL:    info.EffectiveURL,
			LastIP:     info.PrimaryIP,
			AllHeaders: collector.Groups(),
			Body:       body,
		}
		return nil
	})
	if err != nil {
		log.Warn("transfer failed", "error", err)
		return nil, err
	}

	log.Debug("transfer complete",
		"status", resp.StatusCode,
		"effective_url", resp.RealURL,
		"remote_ip", resp.LastIP,
		"hops", resp.Hops(),
		"bytes", len(resp.Body))
	return resp, nil
}

// withHandle opens a handle for fn and closes it exactly once afterwards
func (e *Executor) withHandle(log *slog.Logger, fn func(h Handle) error) error {
	h, err := e.transport.Open()
	if err != nil {
		return NewTransferError(CodeOK, fmt.Sprintf("failed to open transport handle: %v", err))
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			log.Warn("failed to close transport handle", "error", cerr)
		}
	}()

	return fn(h)
}

// fail classifies a handle failure and annotates it with where the transfer got to
func (e *Executor) fail(h Handle, err error) *TransferError {
	info := h.Info()
	code, message := failureDetails(err)
	terr := NewTransferError(code, message+"; transfer info: "+info.String())
	return Attach(terr, info.EffectiveURL, info.PrimaryIP)
}

// options applies the setup policy to a request
func (e *Executor) options(req *Request) Options {
	opts := Options{
		URL:              req.URL,
		Interface:        req.OutgoingIP,
		Post:             !req.IsGet(),
		UserPwd:          req.BasicAuth,
		Proxy:            e.ProxyAddress(),
		AcceptEncoding:   "",
		VerifyPeer:       req.VerifyPeer,
		ConnectTimeoutMs: req.ConnectTimeoutMs,
		TimeoutMs:        req.RequestTimeoutMs,
		FollowLocation:   req.FollowLocation,
		MaxRedirects:     e.maxRedirects,
		UserAgent:        req.UserAgent,
		Referer:          req.Referer,
	}

	if body, ok := req.EncodePostFields(); ok {
		opts.Body = body
	}

	if req.VerifyHost {
		opts.VerifyHost = 2
	}

	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	opts.Headers = make([]string, 0, len(req.Headers)+1)
	opts.Headers = append(opts.Headers, req.Headers...)
	opts.Headers = append(opts.Headers, "Expect:")

	return opts
}
