package output

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitcurl/packages/http"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Request  *JSONRequest  `json:"request,omitempty"`
	Response *JSONResponse `json:"response,omitempty"`
	Error    *JSONError    `json:"error,omitempty"`
	Query    *JSONQuery    `json:"query,omitempty"`
	Duration float64       `json:"duration"`
	Time     string        `json:"time"`
}

// JSONRequest represents request details
type JSONRequest struct {
	Method  string      `json:"method"`
	URL     string      `json:"url"`
	Headers []string    `json:"headers,omitempty"`
	Body    string      `json:"body,omitempty"`
	Form    []JSONField `json:"form,omitempty"`
}

// JSONField is one decoded form field of the request body
type JSONField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// JSONResponse represents response details. Headers holds one group per hop.
type JSONResponse struct {
	StatusCode int             `json:"statusCode"`
	Status     string          `json:"status"`
	RealURL    string          `json:"realUrl"`
	LastIP     string          `json:"lastIp,omitempty"`
	Headers    [][]string      `json:"headers"`
	Body       string          `json:"body,omitempty"`
	BodyJSON   json.RawMessage `json:"bodyJson,omitempty"`
}

// JSONError represents a failed transfer
type JSONError struct {
	Kind    string `json:"kind,omitempty"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	LastURL string `json:"lastUrl,omitempty"`
	LastIP  string `json:"lastIp,omitempty"`
}

// JSONQuery represents the result of a --query path
type JSONQuery struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
	Found bool   `json:"found"`
}

// JSONFormatter collects the outcome of a fetch and writes it as one
// document on Flush.
type JSONFormatter struct {
	writer io.Writer
	out    JSONOutput
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

func (f *JSONFormatter) FormatResponse(req *http.Request, resp *http.Response) {
	f.SetRequest(req)

	headers := resp.AllHeaders
	if headers == nil {
		headers = [][]string{}
	}
	r := &JSONResponse{
		StatusCode: resp.StatusCode,
		Status:     nethttp.StatusText(resp.StatusCode),
		RealURL:    resp.RealURL,
		LastIP:     resp.LastIP,
		Headers:    headers,
	}
	if resp.IsJSON() && json.Valid(resp.Body) {
		r.BodyJSON = json.RawMessage(resp.Body)
	} else {
		r.Body = resp.BodyString()
	}
	f.out.Response = r
}

func (f *JSONFormatter) FormatQuery(path string, value any, found bool) {
	f.out.Query = &JSONQuery{Path: path, Value: value, Found: found}
}

func (f *JSONFormatter) FormatError(err error) {
	var terr *http.TransferError
	if errors.As(err, &terr) {
		f.out.Error = &JSONError{
			Kind:    terr.Kind.String(),
			Code:    terr.Code,
			Message: terr.Message,
			LastURL: terr.LastURL,
			LastIP:  terr.LastIP,
		}
		return
	}
	f.out.Error = &JSONError{Message: err.Error()}
}

// SetRequest records the request the output belongs to
func (f *JSONFormatter) SetRequest(req *http.Request) {
	if req == nil {
		return
	}
	f.out.Request = &JSONRequest{
		Method:  req.Method,
		URL:     req.URL,
		Headers: req.Headers,
	}

	body, ok := req.EncodePostFields()
	if !ok {
		return
	}
	f.out.Request.Body = string(body)
	if req.IsFormBody() {
		for _, field := range http.ParseFormBody(string(body)) {
			f.out.Request.Form = append(f.out.Request.Form, JSONField{Name: field.Name, Value: field.Value})
		}
	}
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	f.out.Duration = float64(totalDuration.Milliseconds())
	f.out.Time = time.Now().Format(time.RFC3339)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.out)
}
