package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"winlock/internal/config"
	"winlock/internal/override"
)

// newOverrideCommands returns the one-shot commands that touch the override
// flag directly, without a resident controller. They skip config loading so
// a broken config file cannot block a restore.
func newOverrideCommands(ctx *commandContext) []*cobra.Command {
	skipConfig := map[string]string{"skipConfigLoad": "true"}
	disableCmd := &cobra.Command{
		Use:         "disable",
		Annotations: skipConfig,
		Short:       "Suppress the native lock shortcut and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOverrideAction(cmd, ctx, "override.disable", override.Store.Disable)
		},
	}
	restoreCmd := &cobra.Command{
		Use:         "restore",
		Annotations: skipConfig,
		Short:       "Restore the native lock shortcut and exit",
		Long: "Restore the native lock shortcut. Use this after a resident controller was\n" +
			"killed without running its cleanup.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOverrideAction(cmd, ctx, "override.enable", override.Store.Enable)
		},
	}
	stateCmd := &cobra.Command{
		Use:         "state",
		Annotations: skipConfig,
		Short:       "Print whether the native lock shortcut is suppressed",
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := newSystemStoreFn().IsActive()
			if err != nil {
				return err
			}
			if active {
				fmt.Fprintln(cmd.OutOrStdout(), "Native lock shortcut: disabled (override active)")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Native lock shortcut: enabled (override inactive)")
			}
			return nil
		},
	}
	return []*cobra.Command{disableCmd, restoreCmd, stateCmd}
}

func runOverrideAction(cmd *cobra.Command, cc *commandContext, action string, apply func(override.Store) error) error {
	store := newSystemStoreFn()
	before, readErr := store.IsActive()
	err := apply(store)

	detail := "one-shot"
	if readErr == nil {
		detail = "one-shot, was " + override.State(before)
	}
	recordOneShot(cmd.Context(), cc, action, detail, err)
	if err != nil {
		return err
	}

	after, err := store.IsActive()
	if err != nil {
		return err
	}
	slog.Info("[app] lock override updated", "action", action, "state", override.State(after))
	fmt.Fprintf(cmd.OutOrStdout(), "Lock override is now %s\n", override.State(after))
	return nil
}

// recordOneShot journals a one-shot action when the journal is enabled.
// Journal problems never fail the command.
func recordOneShot(ctx context.Context, cc *commandContext, action, detail string, actionErr error) {
	cfg, err := cc.ensureConfig()
	if err != nil || !cfg.Journal {
		return
	}
	store, err := openJournalFn(ctx, config.JournalPath(cc.configPath()))
	if err != nil {
		slog.Debug("[app] journal unavailable", "error", err)
		return
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Debug("[app] journal close failed", "error", closeErr)
		}
	}()
	store.Recorder(uuid.NewString()).Record(action, detail, actionErr)
}
