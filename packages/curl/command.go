// Package curl turns curl command lines into hitcurl requests.
package curl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitcurl/packages/http"
)

// ErrNoURL is returned when a command line names no target
var ErrNoURL = errors.New("no URL found in curl command")

// Command is a parsed curl command line
type Command struct {
	Method           string
	URL              string
	Headers          []string
	Data             []string
	BasicAuth        string
	Referer          string
	UserAgent        string
	Interface        string
	Proxy            string
	ConnectTimeoutMs int
	MaxTimeMs        int
	MaxRedirects     *int // nil when --max-redirs is absent
	Insecure         bool
	FollowRedirects  bool
}

// flags that take a value, so the value is never mistaken for the URL
var valueFlags = map[string]bool{
	"-b": true, "--cookie": true,
	"-c": true, "--cookie-jar": true,
	"-o": true, "--output": true,
	"-w": true, "--write-out": true,
	"--resolve": true, "--cacert": true, "--cert": true, "--key": true,
}

// Parse parses a single curl command line. Flags hitcurl has no use for are
// skipped.
func Parse(line string) (*Command, error) {
	return ParseArgs(tokenize(strings.TrimSpace(line)))
}

// ParseArgs parses a command that has already been split into words, as a
// shell does.
func ParseArgs(args []string) (*Command, error) {
	tokens := args
	if len(tokens) > 0 && tokens[0] == "curl" {
		tokens = tokens[1:]
	}

	c := &Command{}
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		value := func() (string, error) {
			if i+1 >= len(tokens) {
				return "", fmt.Errorf("missing value for %s", token)
			}
			i++
			return tokens[i], nil
		}

		var err error
		switch token {
		case "-X", "--request":
			c.Method, err = value()
			c.Method = strings.ToUpper(c.Method)
		case "-H", "--header":
			var h string
			h, err = value()
			c.Headers = append(c.Headers, h)
		case "-d", "--data", "--data-ascii", "--data-raw", "--data-binary":
			var d string
			d, err = value()
			c.Data = append(c.Data, d)
		case "-u", "--user":
			c.BasicAuth, err = value()
		case "-e", "--referer":
			c.Referer, err = value()
		case "-A", "--user-agent":
			c.UserAgent, err = value()
		case "--interface":
			c.Interface, err = value()
		case "-x", "--proxy":
			c.Proxy, err = value()
		case "--connect-timeout":
			c.ConnectTimeoutMs, err = secondsValue(value)
		case "-m", "--max-time":
			c.MaxTimeMs, err = secondsValue(value)
		case "--max-redirs":
			var v string
			if v, err = value(); err == nil {
				var n int
				if n, err = strconv.Atoi(v); err == nil {
					c.MaxRedirects = &n
				}
			}
		case "-k", "--insecure":
			c.Insecure = true
		case "-L", "--location":
			c.FollowRedirects = true
		case "--url":
			c.URL, err = value()
		default:
			switch {
			case valueFlags[token]:
				_, err = value()
			case strings.HasPrefix(token, "-"):
			case c.URL == "":
				c.URL = token
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if c.URL == "" {
		return nil, ErrNoURL
	}
	return c, nil
}

func secondsValue(value func() (string, error)) (int, error) {
	v, err := value()
	if err != nil {
		return 0, err
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("invalid timeout %q", v)
	}
	return int(secs * 1000), nil
}

// Request builds the request the command describes. Several -d values are
// joined with & and sent verbatim, as curl does.
func (c *Command) Request() (*http.Request, error) {
	req := http.NewRequest(c.URL).
		SetFollowLocation(c.FollowRedirects).
		SetVerifyHost(!c.Insecure).
		SetVerifyPeer(!c.Insecure).
		SetOutgoingIP(c.Interface).
		SetReferer(c.Referer)

	if c.UserAgent != "" {
		req.SetUserAgent(c.UserAgent)
	}
	if c.BasicAuth != "" {
		user, pass, _ := strings.Cut(c.BasicAuth, ":")
		req.SetBasicAuth(user, pass)
	}
	req.ConnectTimeoutMs = c.ConnectTimeoutMs
	req.RequestTimeoutMs = c.MaxTimeMs

	for _, h := range c.Headers {
		req.AddHeaderLine(h)
	}

	if len(c.Data) > 0 {
		req.SetRawBody(strings.Join(c.Data, "&"))
		req.SetMethod(http.MethodPost)
	}
	if c.Method != "" {
		req.SetMethod(c.Method)
	}

	return req, req.Validate()
}

// ReadCommands reads curl command lines, joining backslash continuations and
// skipping blank lines and # comments.
func ReadCommands(r io.Reader) ([]string, error) {
	var commands []string
	var current strings.Builder
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if current.Len() == 0 && (line == "" || strings.HasPrefix(line, "#")) {
			continue
		}

		if strings.HasSuffix(line, "\\") {
			current.WriteString(strings.TrimSpace(strings.TrimSuffix(line, "\\")))
			current.WriteString(" ")
			continue
		}

		current.WriteString(line)
		commands = append(commands, current.String())
		current.Reset()
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read commands: %w", err)
	}

	// a continuation left dangling at EOF
	if last := strings.TrimSpace(current.String()); last != "" {
		commands = append(commands, last)
	}
	return commands, nil
}

// tokenize splits a command line into words, honoring quotes and backslash
// escapes. A backslash-newline pair is a line continuation and is dropped.
func tokenize(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingle, inDouble, escaped, inWord := false, false, false, false

	for _, r := range cmd {
		switch {
		case escaped:
			escaped = false
			if r == '\n' {
				continue
			}
			current.WriteRune(r)
			inWord = true
		case r == '\\' && !inSingle:
			escaped = true
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			inWord = true
		case r == '"' && !inSingle:
			inDouble = !inDouble
			inWord = true
		case (r == ' ' || r == '\t' || r == '\n') && !inSingle && !inDouble:
			if inWord {
				tokens = append(tokens, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if inWord {
		tokens = append(tokens, current.String())
	}
	return tokens
}
