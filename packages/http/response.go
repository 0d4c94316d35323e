package http

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Response is the result of one completed transfer
type Response struct {
	StatusCode int
	RealURL    string
	LastIP     string
	AllHeaders [][]string // one group of "Name: Value" lines per hop
	Body       []byte
}

// LastHeaders returns the header lines of the terminal hop
func (r *Response) LastHeaders() []string {
	if len(r.AllHeaders) == 0 {
		return nil
	}
	return r.AllHeaders[len(r.AllHeaders)-1]
}

// Hops returns the number of header groups, one per visited URL
func (r *Response) Hops() int {
	return len(r.AllHeaders)
}

// HeaderValues returns every value of the named header on the terminal hop
func (r *Response) HeaderValues(key string) []string {
	var values []string
	for _, line := range r.LastHeaders() {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), key) {
			values = append(values, strings.TrimSpace(value))
		}
	}
	return values
}

func (r *Response) Header(key string) string {
	values := r.HeaderValues(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

func (r *Response) BodyJSON() (any, error) {
	var result any
	if err := json.Unmarshal(r.Body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Query looks up a gjson path in a JSON body
func (r *Response) Query(path string) (any, bool) {
	if !gjson.ValidBytes(r.Body) {
		return nil, false
	}
	result := gjson.GetBytes(r.Body, path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}
