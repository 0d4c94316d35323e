package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hitcurl/packages/http"
	"github.com/fatih/color"
)

// formatValue formats a query result for display. Strings are printed as is,
// everything else as compact JSON.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

type ConsoleFormatter struct {
	writer    io.Writer
	errWriter io.Writer
	verbose   bool
	include   bool
	noColor   bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer:    os.Stdout,
		errWriter: os.Stderr,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

// WithErrorWriter sets where errors are printed, stderr by default
func WithErrorWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.errWriter = w
	}
}

// WithVerbose prints the headers of every hop instead of only the last one
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

// WithInclude prints response headers before the body
func WithInclude(i bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.include = i
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitcurl"), version)
}

func (f *ConsoleFormatter) FormatResponse(req *http.Request, resp *http.Response) {
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if f.verbose {
		fmt.Fprintf(f.writer, "%s %s\n", yellow(req.Method), req.URL)
	}

	if f.include || f.verbose {
		groups := resp.AllHeaders
		if !f.verbose && len(groups) > 0 {
			groups = groups[len(groups)-1:]
		}
		for i, group := range groups {
			if f.verbose {
				fmt.Fprintf(f.writer, "%s\n", yellow(fmt.Sprintf("# hop %d", i+1)))
			}
			for _, line := range group {
				name, value, _ := strings.Cut(line, ":")
				fmt.Fprintf(f.writer, "%s:%s\n", cyan(name), value)
			}
			fmt.Fprintln(f.writer)
		}
	}

	_, _ = f.writer.Write(resp.Body)

	if f.verbose {
		if len(resp.Body) > 0 && resp.Body[len(resp.Body)-1] != '\n' {
			fmt.Fprintln(f.writer)
		}
		fmt.Fprintf(f.writer, "%s %s %s\n", f.status(resp.StatusCode), resp.RealURL, cyan(fmt.Sprintf("(%s)", resp.LastIP)))
	}
}

func (f *ConsoleFormatter) FormatQuery(path string, value any, found bool) {
	if !found {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(f.writer, "%s\n", yellow(fmt.Sprintf("no value at %q", path)))
		return
	}
	fmt.Fprintln(f.writer, formatValue(value))
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.errWriter, "%s %v\n", red("Error:"), err)

	var terr *http.TransferError
	if errors.As(err, &terr) && f.verbose {
		fmt.Fprintf(f.errWriter, "  Kind:     %s\n", terr.Kind)
		fmt.Fprintf(f.errWriter, "  Code:     %d\n", terr.Code)
		if terr.LastURL != "" {
			fmt.Fprintf(f.errWriter, "  Last URL: %s\n", terr.LastURL)
		}
		if terr.LastIP != "" {
			fmt.Fprintf(f.errWriter, "  Last IP:  %s\n", terr.LastIP)
		}
	}
}

func (f *ConsoleFormatter) status(code int) string {
	text := fmt.Sprintf("%d", code)
	switch {
	case code >= 200 && code < 300:
		return color.New(color.FgGreen).Sprint(text)
	case code >= 300 && code < 400:
		return color.New(color.FgYellow).Sprint(text)
	default:
		return color.New(color.FgRed).Sprint(text)
	}
}
