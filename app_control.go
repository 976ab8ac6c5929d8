package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"winlock/internal/ipc"
	"winlock/internal/lockctl"
)

const controlRequestTimeout = 10 * time.Second

// residentController is the part of lockctl.Controller the control channel uses.
type residentController interface {
	Status(ctx context.Context) (lockctl.Status, error)
	RequestStop(ctx context.Context) error
	RequestLock(ctx context.Context) error
}

// newControlHandler answers control requests by posting them into the
// controller's event loop.
func newControlHandler(controller residentController) ipc.Handler {
	return ipc.HandlerFunc(func(ctx context.Context, req ipc.Request) ipc.Response {
		slog.Debug("[app] control request", "command", req.Command)
		switch req.Command {
		case ipc.CommandStatus:
			status, err := controller.Status(ctx)
			if err != nil {
				return errorResult(err)
			}
			return ipc.Response{OK: true, Status: &status}
		case ipc.CommandStop:
			if err := controller.RequestStop(ctx); err != nil {
				return errorResult(err)
			}
			return ipc.Response{OK: true}
		case ipc.CommandLock:
			if err := controller.RequestLock(ctx); err != nil {
				return errorResult(err)
			}
			return ipc.Response{OK: true}
		default:
			return ipc.ErrorResponse(fmt.Errorf("unknown command %q", req.Command))
		}
	})
}

var sendControlFn = ipc.Send

func newControlCommands(ctx *commandContext) []*cobra.Command {
	var asJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the resident controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := sendControl(cmd.Context(), ctx, ipc.CommandStatus)
			if err != nil {
				return err
			}
			if resp.Status == nil {
				return fmt.Errorf("controller returned no status")
			}
			return printStatus(cmd.OutOrStdout(), *resp.Status, asJSON)
		},
	}
	statusCmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Ask the resident controller to clean up and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := sendControl(cmd.Context(), ctx, ipc.CommandStop); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stop requested")
			return nil
		},
	}

	lockCmd := &cobra.Command{
		Use:   "lock",
		Short: "Lock the session now",
		Long: "Lock the session through the resident controller. When none is running the\n" +
			"session is locked directly, lifting and reapplying the override if it is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := sendControl(cmd.Context(), ctx, ipc.CommandLock)
			if err == nil {
				return nil
			}
			if !ipc.IsConnectionError(err) {
				return err
			}
			slog.Debug("[app] no resident controller, locking directly", "error", err)
			cfg, cfgErr := ctx.ensureConfig()
			if cfgErr != nil {
				return cfgErr
			}
			return lockctl.TriggerLock(newSystemStoreFn(), newLockerFn(), cfg.LockSettleDelay)
		},
	}

	return []*cobra.Command{statusCmd, stopCmd, lockCmd}
}

func sendControl(parent context.Context, cc *commandContext, command string) (ipc.Response, error) {
	ctx, cancel := context.WithTimeout(parent, controlRequestTimeout)
	defer cancel()

	resp, err := sendControlFn(ctx, cc.endpoint(), ipc.Request{Command: command})
	if err != nil {
		if ipc.IsConnectionError(err) {
			return resp, fmt.Errorf("no resident winlock controller at %s: %w", cc.endpoint(), err)
		}
		return resp, fmt.Errorf("%s request: %w", command, err)
	}
	if err := resp.Err(); err != nil {
		return resp, err
	}
	return resp, nil
}

func printStatus(w io.Writer, status lockctl.Status, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	hotkey := status.Binding
	if hotkey == "" {
		hotkey = "(none)"
	}
	fmt.Fprintf(w, "State:            %s\n", status.State)
	fmt.Fprintf(w, "Hotkey:           %s\n", hotkey)
	fmt.Fprintf(w, "Override active:  %s\n", yesNo(status.OverrideActive))
	fmt.Fprintf(w, "Override held:    %s\n", yesNo(status.OverrideHeld))
	fmt.Fprintf(w, "Restore on exit:  %s\n", yesNo(status.RestoreOnExit))
	fmt.Fprintf(w, "Locks triggered:  %d\n", status.Triggers)
	if !status.StartedAt.IsZero() {
		fmt.Fprintf(w, "Started:          %s\n", status.StartedAt.Local().Format(time.DateTime))
	}
	return nil
}
