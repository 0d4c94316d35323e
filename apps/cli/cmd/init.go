package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/hitcurl/packages/core/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .hitcurl.yaml",
	Long: `Write a .hitcurl.yaml with the default settings to the current directory.

Examples:
  hitcurl init
  hitcurl init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing file")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	return writeDefaultConfig(cmd, filepath.Join(cwd, ".hitcurl.yaml"), forceInit)
}

func writeDefaultConfig(cmd *cobra.Command, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("file already exists: %s (use --force to overwrite)", path)
		}
	}

	defaults := config.DefaultConfig()
	content := map[string]any{
		"followRedirects": defaults.GetFollowRedirects(),
		"maxRedirects":    defaults.GetMaxRedirects(),
		"verifyHost":      defaults.GetVerifyHost(),
		"verifyPeer":      defaults.GetVerifyPeer(),
		"output":          defaults.Output,
		"headers": map[string]string{
			"Accept": "*/*",
		},
	}

	data, err := yaml.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", path)
	return nil
}
