package mock

import (
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/hitcurl/packages/http"
)

// Modifier adjusts the response produced for a request before it is returned
type Modifier func(req *http.Request, resp *http.Response)

// Option is a functional option for StringResponder
type Option func(*StringResponder)

// WithModifier registers a callback that runs on every response
func WithModifier(fn Modifier) Option {
	return func(r *StringResponder) {
		r.modifier = fn
	}
}

// WithStatus sets the status code of the canned response
func WithStatus(code int) Option {
	return func(r *StringResponder) {
		r.statusCode = code
	}
}

// WithHeader adds a header line to the canned response
func WithHeader(name, value string) Option {
	return func(r *StringResponder) {
		r.headers = append(r.headers, name+": "+value)
	}
}

// StringResponder answers every request with the same body
type StringResponder struct {
	body       []byte
	statusCode int
	headers    []string
	modifier   Modifier
}

var _ http.Fetcher = (*StringResponder)(nil)

func NewStringResponder(body string, opts ...Option) *StringResponder {
	r := &StringResponder{
		body:       []byte(body),
		statusCode: 200,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch builds a fresh response on every call, so a modifier never sees the
// changes it made to an earlier one.
func (r *StringResponder) Fetch(req *http.Request) (*http.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	headers := make([]string, len(r.headers))
	copy(headers, r.headers)
	body := make([]byte, len(r.body))
	copy(body, r.body)

	resp := &http.Response{
		StatusCode: r.statusCode,
		RealURL:    req.URL,
		AllHeaders: [][]string{headers},
		Body:       body,
	}

	if r.modifier != nil {
		r.modifier(req, resp)
	}
	return resp, nil
}

// FileResponder is a StringResponder whose body comes from a file
type FileResponder struct {
	*StringResponder
	path string
}

var _ http.Fetcher = (*FileResponder)(nil)

func NewFileResponder(path string, opts ...Option) (*FileResponder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read canned response %s: %w", path, err)
	}
	return &FileResponder{
		StringResponder: NewStringResponder(string(data), opts...),
		path:            path,
	}, nil
}

// Path returns the file the body was read from
func (r *FileResponder) Path() string {
	return r.path
}
