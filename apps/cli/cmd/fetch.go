package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitcurl/packages/core/config"
	"github.com/abdul-hamid-achik/hitcurl/packages/http"
	"github.com/abdul-hamid-achik/hitcurl/packages/mock"
	"github.com/abdul-hamid-achik/hitcurl/packages/output"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Fetch a URL and print the response",
	Long: `Issue a single HTTP request and print the response body.

Examples:
  hitcurl fetch https://example.com
  hitcurl fetch -L -i http://example.com/redirect
  hitcurl fetch -X POST -d name=alice -d role=admin https://api.example.com/users
  hitcurl fetch --data-raw '{"a":1}' -H 'Content-Type: application/json' https://api.example.com
  hitcurl fetch -o json --query user.id https://api.example.com/me
  hitcurl fetch --canned fixtures/page.html https://example.com`,
	Args: cobra.ExactArgs(1),
	RunE: fetchCommand,
}

var (
	methodFlag         string
	headerFlags        []string
	dataFlags          []string
	dataRawFlag        string
	userFlag           string
	refererFlag        string
	userAgentFlag      string
	connectTimeoutFlag string
	maxTimeFlag        string
	locationFlag       bool
	insecureFlag       bool
	interfaceFlag      string
	proxyFlag          string
	maxRedirsFlag      int
	configFlag         string
	outputFlag         string
	includeFlag        bool
	queryFlag          string
	cannedFlag         string
	cannedStatusFlag   int
	failFlag           bool
	verboseFlag        bool
	noColorFlag        bool
)

func init() {
	// Request flags
	fetchCmd.Flags().StringVarP(&methodFlag, "request", "X", "", "HTTP method; anything other than GET is sent as POST")
	fetchCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "Raw header line, repeatable (\"Name: value\", \"Name:\" removes, \"Name;\" sends empty)")
	fetchCmd.Flags().StringArrayVarP(&dataFlags, "data", "d", nil, "Form field name=value, repeatable; implies POST")
	fetchCmd.Flags().StringVar(&dataRawFlag, "data-raw", "", "Send the body verbatim; implies POST")
	fetchCmd.Flags().StringVarP(&userFlag, "user", "u", getEnvString("HITCURL_USER", ""), "Basic auth credentials user:password (env: HITCURL_USER)")
	fetchCmd.Flags().StringVarP(&refererFlag, "referer", "e", "", "Referer header")
	fetchCmd.Flags().StringVarP(&userAgentFlag, "user-agent", "A", getEnvString("HITCURL_USER_AGENT", ""), "User agent (env: HITCURL_USER_AGENT)")

	// Transfer flags
	fetchCmd.Flags().StringVar(&connectTimeoutFlag, "connect-timeout", getEnvString("HITCURL_CONNECT_TIMEOUT", ""), "Connect timeout, seconds or a duration like 1500ms (env: HITCURL_CONNECT_TIMEOUT)")
	fetchCmd.Flags().StringVarP(&maxTimeFlag, "max-time", "m", getEnvString("HITCURL_MAX_TIME", ""), "Total transfer timeout, seconds or a duration like 30s (env: HITCURL_MAX_TIME)")
	fetchCmd.Flags().BoolVarP(&locationFlag, "location", "L", getEnvBool("HITCURL_LOCATION", false), "Follow redirects (env: HITCURL_LOCATION)")
	fetchCmd.Flags().IntVar(&maxRedirsFlag, "max-redirs", getEnvInt("HITCURL_MAX_REDIRS", 0), "Maximum number of redirects to follow (default 50) (env: HITCURL_MAX_REDIRS)")
	fetchCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HITCURL_INSECURE", false), "Skip TLS certificate and host name checks (env: HITCURL_INSECURE)")
	fetchCmd.Flags().StringVar(&interfaceFlag, "interface", getEnvString("HITCURL_INTERFACE", ""), "Outgoing interface name or IP address (env: HITCURL_INTERFACE)")
	fetchCmd.Flags().StringVarP(&proxyFlag, "proxy", "x", getEnvString("HITCURL_PROXY", ""), "Proxy address host:port (env: HITCURL_PROXY)")

	addOutputFlags(fetchCmd)
}

// addOutputFlags registers the flags shared by every command that performs a
// transfer.
func addOutputFlags(c *cobra.Command) {
	c.Flags().StringVar(&configFlag, "config", getEnvString("HITCURL_CONFIG", ""), "Path to config file (env: HITCURL_CONFIG)")

	// Output flags
	c.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HITCURL_OUTPUT", ""), "Output format: console, json (default console) (env: HITCURL_OUTPUT)")
	c.Flags().BoolVarP(&includeFlag, "include", "i", getEnvBool("HITCURL_INCLUDE", false), "Print response headers (env: HITCURL_INCLUDE)")
	c.Flags().StringVar(&queryFlag, "query", "", "Print the value at a gjson path of a JSON body")
	c.Flags().BoolVarP(&failFlag, "fail", "f", getEnvBool("HITCURL_FAIL", false), "Exit with code 1 on HTTP status 400 and above (env: HITCURL_FAIL)")
	c.Flags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("HITCURL_VERBOSE", false), "Verbose output (env: HITCURL_VERBOSE)")
	c.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITCURL_NO_COLOR", false), "Disable colored output (env: HITCURL_NO_COLOR)")

	// Offline flags
	c.Flags().StringVar(&cannedFlag, "canned", "", "Answer from a file instead of the network")
	c.Flags().IntVar(&cannedStatusFlag, "canned-status", 200, "Status code of the canned response")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatHeader(version string)
	FormatResponse(req *http.Request, resp *http.Response)
	FormatQuery(path string, value any, found bool)
	FormatError(err error)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

func fetchCommand(cmd *cobra.Command, args []string) error {
	overrides, err := flagConfig(cmd)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return exitWith(ExitUsageError, err)
	}

	return transfer(cmd, overrides, func(cfg *config.Config) (*http.Request, error) {
		return buildRequest(args[0], cfg)
	})
}

// transfer merges overrides over the config file, builds the request, runs
// it and reports the outcome through the selected formatter.
func transfer(cmd *cobra.Command, overrides *config.Config, build func(cfg *config.Config) (*http.Request, error)) error {
	start := time.Now()

	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return exitWith(ExitConfigError, err)
	}
	cfg := fileConfig.Merge(overrides)

	formatter := newFormatter(cmd, cfg)
	finish := func(code int, err error) error {
		if flushable, ok := formatter.(Flushable); ok {
			if ferr := flushable.Flush(time.Since(start)); ferr != nil {
				return fmt.Errorf("failed to write output: %w", ferr)
			}
		}
		if err != nil {
			return exitWith(code, err)
		}
		return nil
	}

	if cfg.GetVerbose() {
		formatter.FormatHeader(version)
	}

	req, err := build(cfg)
	if jf, ok := formatter.(*output.JSONFormatter); ok {
		jf.SetRequest(req)
	}
	if err != nil {
		formatter.FormatError(err)
		return finish(ExitUsageError, err)
	}

	fetcher, err := newFetcher(cmd, cfg)
	if err != nil {
		formatter.FormatError(err)
		return finish(ExitConfigError, err)
	}

	resp, err := fetcher.Fetch(req)
	if err != nil {
		formatter.FormatError(err)
		if errors.Is(err, http.ErrInvalidRequest) {
			return finish(ExitUsageError, err)
		}
		return finish(ExitNetworkError, err)
	}

	if cfg.GetFail() && resp.StatusCode >= 400 {
		err := fmt.Errorf("the requested URL returned error: %d", resp.StatusCode)
		formatter.FormatError(err)
		return finish(ExitHTTPError, err)
	}

	formatter.FormatResponse(req, resp)
	if queryFlag != "" {
		value, found := resp.Query(queryFlag)
		formatter.FormatQuery(queryFlag, value, found)
	}

	return finish(ExitSuccess, nil)
}

// flagConfig collects the settings given on the command line so they can be
// merged over the config file. Values left unset stay nil so the file wins.
func flagConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{
		Proxy:     proxyFlag,
		Interface: interfaceFlag,
		UserAgent: userAgentFlag,
		Output:    strings.ToLower(outputFlag),
	}

	if cmd.Flags().Changed("max-redirs") || os.Getenv("HITCURL_MAX_REDIRS") != "" {
		if maxRedirsFlag < 0 {
			return nil, fmt.Errorf("invalid max redirects %d", maxRedirsFlag)
		}
		cfg.MaxRedirects = config.IntPtr(maxRedirsFlag)
	}

	if connectTimeoutFlag != "" {
		ms, err := parseTimeout(connectTimeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid connect timeout %q: %w", connectTimeoutFlag, err)
		}
		cfg.ConnectTimeout = config.IntPtr(ms)
	}
	if maxTimeFlag != "" {
		ms, err := parseTimeout(maxTimeFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid max time %q: %w", maxTimeFlag, err)
		}
		cfg.Timeout = config.IntPtr(ms)
	}

	if cfg.Output != "" && cfg.Output != "console" && cfg.Output != "json" {
		return nil, fmt.Errorf("unknown output format %q (use console or json)", outputFlag)
	}
	// Boolean flags - only override the config file when set
	if locationFlag {
		cfg.FollowRedirects = config.BoolPtr(true)
	}
	if insecureFlag {
		cfg.VerifyHost = config.BoolPtr(false)
		cfg.VerifyPeer = config.BoolPtr(false)
	}
	if includeFlag {
		cfg.Include = config.BoolPtr(true)
	}
	if failFlag {
		cfg.Fail = config.BoolPtr(true)
	}
	if verboseFlag {
		cfg.Verbose = config.BoolPtr(true)
	}
	if noColorFlag {
		cfg.NoColor = config.BoolPtr(true)
	}

	return cfg, nil
}

// parseTimeout accepts seconds ("2", "0.5") or a Go duration ("1500ms") and
// returns milliseconds.
func parseTimeout(value string) (int, error) {
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("must not be negative")
		}
		return int(secs * 1000), nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("use seconds or a duration like 30s, 500ms")
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return int(d.Milliseconds()), nil
}

// buildRequest turns the URL argument, the request flags and the merged
// config into a validated request.
func buildRequest(rawURL string, cfg *config.Config) (*http.Request, error) {
	req := http.NewRequest(rawURL).
		SetFollowLocation(cfg.GetFollowRedirects()).
		SetVerifyHost(cfg.GetVerifyHost()).
		SetVerifyPeer(cfg.GetVerifyPeer()).
		SetOutgoingIP(cfg.Interface).
		SetReferer(refererFlag)

	if userFlag != "" {
		user, pass, _ := strings.Cut(userFlag, ":")
		req.SetBasicAuth(user, pass)
	}
	if cfg.UserAgent != "" {
		req.SetUserAgent(cfg.UserAgent)
	}
	req.ConnectTimeoutMs = cfg.GetConnectTimeout()
	req.RequestTimeoutMs = cfg.GetTimeout()

	for _, line := range cfg.HeaderLines() {
		req.AddHeaderLine(line)
	}
	for _, line := range headerFlags {
		req.AddHeaderLine(line)
	}

	hasBody := false
	switch {
	case dataRawFlag != "":
		req.SetRawBody(dataRawFlag)
		hasBody = true
	case len(dataFlags) == 1 && !strings.Contains(dataFlags[0], "="):
		req.SetRawBody(dataFlags[0])
		hasBody = true
	default:
		for _, entry := range dataFlags {
			name, value, ok := strings.Cut(entry, "=")
			if !ok {
				return req, fmt.Errorf("%w: data %q is not name=value", http.ErrInvalidRequest, entry)
			}
			req.AddPostField(name, value)
			hasBody = true
		}
	}

	switch {
	case methodFlag != "":
		req.SetMethod(methodFlag)
	case hasBody:
		req.SetMethod(http.MethodPost)
	}

	return req, req.Validate()
}

func newFormatter(cmd *cobra.Command, cfg *config.Config) Formatter {
	if cfg.Output == "json" {
		return output.NewJSONFormatter(output.JSONWithWriter(cmd.OutOrStdout()))
	}
	return output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithErrorWriter(cmd.ErrOrStderr()),
		output.WithVerbose(cfg.GetVerbose()),
		output.WithInclude(cfg.GetInclude()),
		output.WithNoColor(cfg.GetNoColor()),
	)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newFetcher(cmd *cobra.Command, cfg *config.Config) (http.Fetcher, error) {
	if cannedFlag != "" {
		return mock.NewFileResponder(cannedFlag,
			mock.WithStatus(cannedStatusFlag),
			mock.WithModifier(func(req *http.Request, resp *http.Response) {
				resp.AllHeaders[0] = append(resp.AllHeaders[0], "Content-Type: "+nethttp.DetectContentType(resp.Body))
			}),
		)
	}

	return http.NewExecutor(
		http.WithLogger(newLogger(cmd.ErrOrStderr(), cfg.GetVerbose())),
		http.WithMaxRedirects(cfg.GetMaxRedirects()),
		http.WithProxy(cfg.Proxy),
	), nil
}
