package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/abdul-hamid-achik/hitcurl/packages/http"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version, build and transport information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "hitcurl version %s\n", version)
		fmt.Fprintf(out, "Built: %s\n", buildTime)
		if commit := vcsRevision(); commit != "" {
			fmt.Fprintf(out, "Commit: %s\n", commit)
		}
		fmt.Fprintf(out, "Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "User-Agent: %s\n", http.DefaultUserAgent)
		fmt.Fprintf(out, "Encodings: %s\n", http.SupportedEncodings)
	},
}

// vcsRevision returns the commit stamped by the go tool, with a "-dirty"
// suffix for builds from a modified tree.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	var revision string
	modified := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if revision != "" && modified {
		revision += "-dirty"
	}
	return revision
}
