package http

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	MethodGet  = "GET"
	MethodPost = "POST"

	// DefaultUserAgent is sent when a request does not set its own
	DefaultUserAgent = "hitcurl/1.0"

	// positionalField is the field name that marks a single unkeyed post value
	positionalField = "0"
)

// ErrInvalidRequest is returned when a request fails validation before any I/O
var ErrInvalidRequest = errors.New("invalid request")

// Field is a single post field. Order is preserved when encoding.
type Field struct {
	Name  string
	Value string
}

// Request describes one outbound transfer. The executor treats it as read-only.
type Request struct {
	URL              string
	Method           string
	OutgoingIP       string   // IP address or interface name to bind, empty for default
	Headers          []string // raw "Name: Value" lines
	PostFields       []Field
	BasicAuth        string // user:pass
	Referer          string
	UserAgent        string
	ConnectTimeoutMs int
	RequestTimeoutMs int
	FollowLocation   bool
	VerifyHost       bool
	VerifyPeer       bool
}

func NewRequest(requestURL string) *Request {
	return &Request{
		URL:        requestURL,
		Method:     MethodGet,
		UserAgent:  DefaultUserAgent,
		VerifyHost: true,
		VerifyPeer: true,
	}
}

func (r *Request) SetMethod(method string) *Request {
	r.Method = strings.ToUpper(method)
	return r
}

func (r *Request) SetOutgoingIP(ip string) *Request {
	r.OutgoingIP = ip
	return r
}

// SetHeader appends a "key: value" line
func (r *Request) SetHeader(key, value string) *Request {
	r.Headers = append(r.Headers, key+": "+value)
	return r
}

// AddHeaderLine appends a raw header line as given
func (r *Request) AddHeaderLine(line string) *Request {
	r.Headers = append(r.Headers, line)
	return r
}

func (r *Request) AddPostField(name, value string) *Request {
	r.PostFields = append(r.PostFields, Field{Name: name, Value: value})
	return r
}

// SetRawBody replaces the post fields with a single positional value that is
// sent verbatim.
func (r *Request) SetRawBody(body string) *Request {
	r.PostFields = []Field{{Name: positionalField, Value: body}}
	return r
}

func (r *Request) SetBasicAuth(username, password string) *Request {
	r.BasicAuth = username + ":" + password
	return r
}

func (r *Request) SetReferer(referer string) *Request {
	r.Referer = referer
	return r
}

func (r *Request) SetUserAgent(ua string) *Request {
	r.UserAgent = ua
	return r
}

func (r *Request) SetConnectTimeout(d time.Duration) *Request {
	r.ConnectTimeoutMs = int(d.Milliseconds())
	return r
}

func (r *Request) SetRequestTimeout(d time.Duration) *Request {
	r.RequestTimeoutMs = int(d.Milliseconds())
	return r
}

func (r *Request) SetFollowLocation(follow bool) *Request {
	r.FollowLocation = follow
	return r
}

func (r *Request) SetVerifyHost(verify bool) *Request {
	r.VerifyHost = verify
	return r
}

func (r *Request) SetVerifyPeer(verify bool) *Request {
	r.VerifyPeer = verify
	return r
}

// IsGet reports whether the request runs in GET mode. Every other method is
// sent as a body-carrying POST.
func (r *Request) IsGet() bool {
	return r.Method == "" || strings.EqualFold(r.Method, MethodGet)
}

// Validate checks the request before it is handed to a transport
func (r *Request) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("%w: URL must not be empty", ErrInvalidRequest)
	}
	if r.ConnectTimeoutMs < 0 {
		return fmt.Errorf("%w: connect timeout must not be negative", ErrInvalidRequest)
	}
	if r.RequestTimeoutMs < 0 {
		return fmt.Errorf("%w: request timeout must not be negative", ErrInvalidRequest)
	}
	return nil
}

// EncodePostFields returns the body to transmit and whether there is one.
// A single field named "0" is sent verbatim, anything else is form-url-encoded
// in field order.
func (r *Request) EncodePostFields() ([]byte, bool) {
	if len(r.PostFields) == 0 {
		return nil, false
	}

	if len(r.PostFields) == 1 && r.PostFields[0].Name == positionalField {
		return []byte(r.PostFields[0].Value), true
	}

	pairs := make([]string, 0, len(r.PostFields))
	for _, f := range r.PostFields {
		pairs = append(pairs, url.QueryEscape(f.Name)+"="+url.QueryEscape(f.Value))
	}
	return []byte(strings.Join(pairs, "&")), true
}

// IsFormBody reports whether the body goes out as
// application/x-www-form-urlencoded, the content type used unless a
// Content-Type header line replaces or removes it.
func (r *Request) IsFormBody() bool {
	if len(r.PostFields) == 0 || r.IsGet() {
		return false
	}
	for _, line := range r.Headers {
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Type") {
			continue
		}
		return strings.HasPrefix(strings.ToLower(strings.TrimSpace(value)), "application/x-www-form-urlencoded")
	}
	return true
}

// ParseFormBody decodes an application/x-www-form-urlencoded body into ordered fields
func ParseFormBody(body string) []Field {
	var result []Field
	if body == "" {
		return result
	}
	pairs := strings.Split(body, "&")
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			key, _ := url.QueryUnescape(kv[0])
			value, _ := url.QueryUnescape(kv[1])
			result = append(result, Field{Name: key, Value: value})
		}
	}
	return result
}
