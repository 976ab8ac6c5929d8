package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"winlock/internal/config"
	"winlock/internal/hotkeys"
	"winlock/internal/lockctl"
	"winlock/internal/logging"
)

// residentFlags are the flags of the resident controller (the root command).
type residentFlags struct {
	disableNative bool
	restoreNative bool
	restoreOnExit bool

	hotkey string
	ctrl   bool
	alt    bool
	shift  bool
	win    bool
	key    string
	vk     uint32

	lockSettleDelay time.Duration
	dryRun          bool
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var endpointFlag string
	var flags residentFlags

	ctx := newCommandContext(&configFlag, &endpointFlag)

	rootCmd := &cobra.Command{
		Use:   "winlock",
		Short: "Disable or remap the Windows lock-session shortcut",
		Long: "winlock suppresses the native Win+L lock shortcut, restores it, and can register an\n" +
			"alternate global key combination that locks the session. With an alternate hotkey\n" +
			"it stays resident until interrupted, then undoes what it changed.\n\n" +
			"A forced kill skips that cleanup: run `winlock restore` to re-enable Win+L.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return configureLogging("")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return configureLogging(cfg.LogLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := resolveResidentOptions(cmd, cfg, flags)
			if err != nil {
				return err
			}
			if !opts.Flags.Any() && opts.Binding == nil {
				return cmd.Help()
			}
			return runResident(cmd.Context(), ctx, cfg, opts, flags.dryRun)
		},
	}

	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	persistent.StringVar(&endpointFlag, "endpoint", "", "Control endpoint of the resident controller")

	addResidentFlags(rootCmd, &flags)

	rootCmd.AddCommand(newOverrideCommands(ctx)...)
	rootCmd.AddCommand(newControlCommands(ctx)...)
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

// addResidentFlags registers the resident controller flags on cmd.
func addResidentFlags(cmd *cobra.Command, flags *residentFlags) {
	f := cmd.Flags()
	f.BoolVar(&flags.disableNative, "disable-native", false, "Suppress the native lock shortcut (Win+L)")
	f.BoolVar(&flags.restoreNative, "restore-native", false, "Restore the native lock shortcut at startup")
	f.BoolVar(&flags.restoreOnExit, "restore-on-exit", false, "Restore the native lock shortcut when winlock exits, if this run disabled it")
	f.StringVar(&flags.hotkey, "hotkey", "", `Alternate lock combination, e.g. "Ctrl+Win+J"`)
	f.BoolVar(&flags.ctrl, "ctrl", false, "Alternate combination uses Ctrl")
	f.BoolVar(&flags.alt, "alt", false, "Alternate combination uses Alt")
	f.BoolVar(&flags.shift, "shift", false, "Alternate combination uses Shift")
	f.BoolVar(&flags.win, "win", false, "Alternate combination uses the Windows key")
	f.StringVar(&flags.key, "key", "", "Alternate combination key, resolved through the current keyboard layout")
	f.Uint32Var(&flags.vk, "vk", 0, "Alternate combination key as a raw virtual-key code")
	f.DurationVar(&flags.lockSettleDelay, "lock-settle-delay", lockctl.DefaultLockSettleDelay, "How long the override stays lifted after a lock")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Keep the override in memory instead of the registry")
	cmd.MarkFlagsMutuallyExclusive("hotkey", "ctrl")
	cmd.MarkFlagsMutuallyExclusive("hotkey", "alt")
	cmd.MarkFlagsMutuallyExclusive("hotkey", "shift")
	cmd.MarkFlagsMutuallyExclusive("hotkey", "win")
	cmd.MarkFlagsMutuallyExclusive("hotkey", "key")
	cmd.MarkFlagsMutuallyExclusive("hotkey", "vk")
	cmd.MarkFlagsMutuallyExclusive("key", "vk")
}

// resolveResidentOptions merges cfg with the flags the user actually set.
func resolveResidentOptions(cmd *cobra.Command, cfg config.Config, flags residentFlags) (lockctl.Options, error) {
	changed := cmd.Flags().Changed

	opts := lockctl.Options{
		Flags: lockctl.Flags{
			DisableNative: cfg.DisableNative,
			RestoreNative: cfg.RestoreNative,
			RestoreOnExit: cfg.RestoreOnExit,
		},
		LockSettleDelay: cfg.LockSettleDelay,
	}
	if changed("disable-native") {
		opts.Flags.DisableNative = flags.disableNative
	}
	if changed("restore-native") {
		opts.Flags.RestoreNative = flags.restoreNative
	}
	if changed("restore-on-exit") {
		opts.Flags.RestoreOnExit = flags.restoreOnExit
	}
	if changed("lock-settle-delay") {
		if flags.lockSettleDelay < 0 || flags.lockSettleDelay > config.MaxLockSettleDelay {
			return opts, fmt.Errorf("--lock-settle-delay must be between 0 and %s", config.MaxLockSettleDelay)
		}
		opts.LockSettleDelay = flags.lockSettleDelay
	}

	binding, err := resolveBinding(changed, cfg, flags)
	if err != nil {
		return opts, err
	}
	opts.Binding = binding
	return opts, nil
}

func resolveBinding(changed func(string) bool, cfg config.Config, flags residentFlags) (*hotkeys.Binding, error) {
	if changed("hotkey") {
		b, err := hotkeys.ParseBinding(flags.hotkey)
		if err != nil {
			return nil, err
		}
		return &b, nil
	}

	discrete := false
	for _, name := range []string{"ctrl", "alt", "shift", "win", "key", "vk"} {
		if changed(name) {
			discrete = true
			break
		}
	}
	if !discrete {
		return cfg.ParseHotkey()
	}

	var mods hotkeys.Modifier
	if flags.ctrl {
		mods |= hotkeys.ModControl
	}
	if flags.alt {
		mods |= hotkeys.ModAlt
	}
	if flags.shift {
		mods |= hotkeys.ModShift
	}
	if flags.win {
		mods |= hotkeys.ModWin
	}

	var key hotkeys.VKey
	var err error
	switch {
	case changed("key"):
		key, err = hotkeys.ParseKey(flags.key)
	case changed("vk"):
		key, err = hotkeys.VirtualKey(flags.vk)
	default:
		err = fmt.Errorf("%w: modifier flags need --key or --vk", hotkeys.ErrInvalidCombination)
	}
	if err != nil {
		return nil, err
	}
	b, err := hotkeys.NewBinding(mods, key)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// configureLogging installs the plain process logger used before (or
// without) a resident run.
func configureLogging(configured string) error {
	level, err := logging.ResolveLevel(configured)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	slog.SetDefault(logging.New(logging.Options{Level: level}))
	return nil
}
