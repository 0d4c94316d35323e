package http

import (
	"errors"
	"fmt"
)

// Transport opens handles. Each handle serves exactly one transfer.
type Transport interface {
	Open() (Handle, error)
}

// Handle is a single-use transfer handle. Setup is called once, then Perform,
// then Close. Info may be called at any time, including from inside the
// header callback, and reflects the transfer's progress so far.
type Handle interface {
	Setup(opts Options) error
	Perform(onHeader func(line string)) ([]byte, error)
	Info() Info
	Close() error
}

// Options is the transport-level description of a transfer
type Options struct {
	URL       string
	Interface string // local IP or interface name
	Post      bool
	Body      []byte // nil when no body is attached
	UserPwd   string
	Proxy     string

	// AcceptEncoding lists the encodings to negotiate. Empty means every
	// encoding the transport can decode.
	AcceptEncoding string

	VerifyHost       int // 0 disables the host name check, 2 enables it
	VerifyPeer       bool
	ConnectTimeoutMs int
	TimeoutMs        int // 0 means no limit
	FollowLocation   bool
	MaxRedirects     int
	UserAgent        string
	Referer          string
	Headers          []string
}

// Info is what the transport knows about the transfer
type Info struct {
	StatusCode    int
	EffectiveURL  string
	PrimaryIP     string
	PrimaryPort   int
	RedirectCount int
	BytesReceived int64
	TotalTimeMs   int64
}

func (i Info) String() string {
	return fmt.Sprintf("{url: %q, http_code: %d, primary_ip: %q, primary_port: %d, redirect_count: %d, size_download: %d, total_time_ms: %d}",
		i.EffectiveURL, i.StatusCode, i.PrimaryIP, i.PrimaryPort, i.RedirectCount, i.BytesReceived, i.TotalTimeMs)
}

// TransportError is a failure in the transport's own code space
type TransportError struct {
	Code    int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newTransportError(code int, err error, format string, args ...any) *TransportError {
	return &TransportError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// failureDetails extracts the transport code and diagnostic text from a
// handle failure. Errors outside the transport's code space report code 0.
func failureDetails(err error) (int, string) {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Code, te.Message
	}
	return CodeOK, err.Error()
}
