package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"winlock/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:         "init",
		Short:       "Write the default configuration file if it does not exist",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.configPath()
			_, created, err := config.EnsureFile(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(out, "Wrote default configuration to %s\n", path)
			} else {
				fmt.Fprintf(out, "Configuration already exists at %s\n", path)
			}
			for _, warning := range config.ConsumeDefaultPathWarnings() {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", warning)
			}
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Print the configuration and journal paths",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.configPath()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, path)
			fmt.Fprintln(out, config.JournalPath(path))
			return nil
		},
	})

	return configCmd
}
