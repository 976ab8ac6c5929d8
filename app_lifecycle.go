package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"winlock/internal/config"
	"winlock/internal/hotkeys"
	"winlock/internal/ipc"
	"winlock/internal/journal"
	"winlock/internal/lockctl"
	"winlock/internal/logging"
	"winlock/internal/override"
	"winlock/internal/sessionlock"
	"winlock/internal/singleinstance"
	"winlock/internal/workerutil"
)

var (
	newSystemStoreFn  = override.NewSystemStore
	newLockerFn       = sessionlock.New
	newRegistrarFn    = newManagerRegistrar
	tryInstanceLockFn = singleinstance.TryLock
	instanceNameFn    = singleinstance.DefaultName
	listenFn          = ipc.Listen
	openJournalFn     = journal.Open
)

const (
	workerShutdownTimeout = 5 * time.Second
	journalSinkBuffer     = 64
)

// newManagerRegistrar registers bindings with the process hotkey manager.
func newManagerRegistrar() lockctl.Registrar {
	manager := hotkeys.NewManager()
	return lockctl.RegistrarFunc(func(b hotkeys.Binding) (lockctl.Hotkey, error) {
		reg, err := manager.Register(b)
		if err != nil {
			// Never hand back a typed nil inside the interface.
			return nil, err
		}
		return reg, nil
	})
}

// runResident runs one controller session until ctx is cancelled or a stop
// request arrives, and reports its outcome as an exitError.
func runResident(ctx context.Context, cc *commandContext, cfg config.Config, opts lockctl.Options, dryRun bool) error {
	instance, err := tryInstanceLockFn(instanceNameFn())
	if err != nil {
		return &exitError{code: lockctl.ExitStartupFailure, err: err}
	}
	defer func() {
		if releaseErr := instance.Release(); releaseErr != nil {
			slog.Warn("[app] single instance release failed", "error", releaseErr)
		}
	}()

	runID := uuid.NewString()
	workerCtx, cancelWorkers := context.WithCancel(context.WithoutCancel(ctx))
	var workers sync.WaitGroup

	var recorder lockctl.Recorder
	var sink chan logging.Entry
	if cfg.Journal {
		store, openErr := openJournalFn(ctx, config.JournalPath(cc.configPath()))
		if openErr != nil {
			slog.Warn("[app] journal unavailable, continuing without it", "error", openErr)
		} else {
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					slog.Warn("[app] journal close failed", "error", closeErr)
				}
			}()
			recorder = store.Recorder(runID)
			sink = make(chan logging.Entry, journalSinkBuffer)
			workerutil.RunWithPanicRecovery(workerCtx, "journal-sink", &workers, func(ctx context.Context) {
				drainJournalSink(ctx, store, runID, sink)
			}, workerutil.RecoveryOptions{})
		}
	}

	previousLogger := slog.Default()
	level, err := logging.ResolveLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	logOpts := logging.Options{Level: level, RunID: runID, TeeLevel: slog.LevelWarn}
	if sink != nil {
		logOpts.Tee = func(e logging.Entry) {
			select {
			case sink <- e:
			default:
			}
		}
	}
	slog.SetDefault(logging.New(logOpts))
	defer slog.SetDefault(previousLogger)

	store := newSystemStoreFn()
	if dryRun {
		slog.Info("[app] dry run: lock override kept in memory")
		store = override.NewMemoryStore(false)
	}

	options := []lockctl.Option{}
	if recorder != nil {
		options = append(options, lockctl.WithRecorder(recorder))
	}
	var registrar lockctl.Registrar
	if opts.Binding != nil {
		registrar = newRegistrarFn()
	}
	controller, err := lockctl.New(store, registrar, newLockerFn(), opts, options...)
	if err != nil {
		cancelWorkers()
		workers.Wait()
		return &exitError{code: lockctl.ExitStartupFailure, err: err}
	}

	if cfg.Control {
		endpoint := cc.endpoint()
		server := ipc.NewServer(newControlHandler(controller))
		workerutil.RunWithPanicRecovery(workerCtx, "control-server", &workers, func(ctx context.Context) {
			serveControl(ctx, server, endpoint)
		}, workerutil.RecoveryOptions{})
	}

	slog.Info("[app] controller starting",
		"disableNative", opts.Flags.DisableNative,
		"restoreNative", opts.Flags.RestoreNative,
		"restoreOnExit", opts.Flags.RestoreOnExit,
		"hotkey", bindingName(opts.Binding),
		"dryRun", dryRun,
	)
	result := controller.Run(ctx)

	cancelWorkers()
	waitWorkers(&workers, workerShutdownTimeout)

	if err := result.Err(); err != nil {
		return &exitError{code: result.ExitCode(), err: err}
	}
	return nil
}

// serveControl listens on endpoint and serves until ctx is cancelled.
func serveControl(ctx context.Context, server *ipc.Server, endpoint string) {
	listener, err := listenFn(endpoint)
	if err != nil {
		slog.Warn("[app] control channel unavailable", "endpoint", endpoint, "error", err)
		return
	}
	slog.Debug("[app] control channel listening", "endpoint", endpoint)
	if err := server.Serve(ctx, listener); err != nil && !errors.Is(err, net.ErrClosed) {
		slog.Warn("[app] control channel stopped", "error", err)
	}
}

// drainJournalSink copies teed log records into the journal until ctx is
// done, then flushes what is already queued. It never logs through slog: a
// failure here would tee back into the same sink.
func drainJournalSink(ctx context.Context, store *journal.Store, runID string, sink <-chan logging.Entry) {
	write := func(e logging.Entry) {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = store.Record(writeCtx, journal.Entry{
			RunID:  runID,
			Time:   e.Time,
			Action: "log." + strings.ToLower(e.Level.String()),
			Detail: e.Message,
			Error:  e.Error,
		})
	}
	for {
		select {
		case e := <-sink:
			write(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-sink:
					write(e)
				default:
					return
				}
			}
		}
	}
}

func waitWorkers(wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		slog.Warn("[app] background workers did not stop in time", "timeout", timeout)
	}
}

func bindingName(b *hotkeys.Binding) string {
	if b == nil {
		return ""
	}
	return b.Normalized()
}

// errorResult turns a controller error into a control response.
func errorResult(err error) ipc.Response {
	if errors.Is(err, lockctl.ErrNotRunning) {
		return ipc.ErrorResponse(fmt.Errorf("controller is shutting down: %w", err))
	}
	return ipc.ErrorResponse(err)
}
