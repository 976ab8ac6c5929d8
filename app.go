package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"winlock/internal/config"
	"winlock/internal/ipc"
	"winlock/internal/lockctl"
)

// exitError carries a specific process exit code up to main.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return lockctl.ExitOK
	}
	var coded *exitError
	if errors.As(err, &coded) {
		return coded.code
	}
	return lockctl.ExitStartupFailure
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, "winlock:", err)
	}
	return exitCode(err)
}

// commandContext is shared by every subcommand. The config file is loaded at
// most once per process.
type commandContext struct {
	configFlag   *string
	endpointFlag *string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag, endpointFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, endpointFlag: endpointFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag != nil {
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			return path
		}
	}
	return config.DefaultPath()
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load(c.configPath())
	})
	return c.config, c.configErr
}

func (c *commandContext) endpoint() string {
	if c.endpointFlag != nil {
		if endpoint := strings.TrimSpace(*c.endpointFlag); endpoint != "" {
			return endpoint
		}
	}
	return ipc.DefaultEndpoint()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
