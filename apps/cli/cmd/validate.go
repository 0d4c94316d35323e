package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/hitcurl/packages/core/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config-file...]",
	Short: "Validate hitcurl config files",
	Long: `Check config files against the hitcurl config schema. Without
arguments the config file of the current directory is checked.

Examples:
  hitcurl validate
  hitcurl validate .hitcurl.yaml ci.hitcurl.json`,
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		if _, err := config.FindAndLoadConfig("."); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return exitWith(ExitConfigError, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid\n")
		return nil
	}

	hasErrors := false
	for _, file := range args {
		if _, err := config.LoadConfig(file); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
		}
	}

	if hasErrors {
		return exitWith(ExitConfigError, fmt.Errorf("validation failed"))
	}

	return nil
}
