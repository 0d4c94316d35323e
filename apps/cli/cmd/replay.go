package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/hitcurl/packages/core/config"
	"github.com/abdul-hamid-achik/hitcurl/packages/curl"
	"github.com/abdul-hamid-achik/hitcurl/packages/http"
	"github.com/spf13/cobra"
)

var replayFileFlag string

var replayCmd = &cobra.Command{
	Use:   "replay [flags] [curl command]",
	Short: "Run a curl command line through hitcurl",
	Long: `Parse a curl command line and run it through hitcurl. The command can
be passed as words, as one quoted string, or read from a file where
backslash continuations are joined and # comments skipped. The request
comes from the command alone; the config file only supplies output settings.

Examples:
  hitcurl replay curl -L https://example.com
  hitcurl replay -o json 'curl -X POST -d a=1 https://api.example.com/items'
  hitcurl replay --file request.sh
  pbpaste | hitcurl replay --file -`,
	RunE: replayCommand,
}

func init() {
	replayCmd.Flags().StringVar(&replayFileFlag, "file", "", "Read the command from a file, - for stdin; the first command is used")
	replayCmd.Flags().SetInterspersed(false)
	addOutputFlags(replayCmd)
}

func replayCommand(cmd *cobra.Command, args []string) error {
	parsed, err := parseReplay(cmd, args)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return exitWith(ExitUsageError, err)
	}

	overrides, err := flagConfig(cmd)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return exitWith(ExitUsageError, err)
	}
	overrides.Proxy = parsed.Proxy
	if parsed.MaxRedirects != nil {
		overrides.MaxRedirects = parsed.MaxRedirects
	}

	return transfer(cmd, overrides, func(*config.Config) (*http.Request, error) {
		return parsed.Request()
	})
}

func parseReplay(cmd *cobra.Command, args []string) (*curl.Command, error) {
	if replayFileFlag == "" {
		switch len(args) {
		case 0:
			return nil, fmt.Errorf("no curl command given")
		case 1:
			return curl.Parse(args[0])
		default:
			return curl.ParseArgs(args)
		}
	}

	var r io.Reader = cmd.InOrStdin()
	if replayFileFlag != "-" {
		f, err := os.Open(replayFileFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", replayFileFlag, err)
		}
		defer f.Close()
		r = f
	}

	commands, err := curl.ReadCommands(r)
	if err != nil {
		return nil, err
	}
	if len(commands) == 0 {
		return nil, fmt.Errorf("no curl command found in %s", replayFileFlag)
	}
	return curl.Parse(commands[0])
}
