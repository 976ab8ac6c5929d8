package lockctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"winlock/internal/hotkeys"
	"winlock/internal/override"
	"winlock/internal/sessionlock"
)

// DefaultLockSettleDelay is how long the override stays lifted after a lock
// request before it is reapplied. Reapplying sooner can cancel the pending lock.
const DefaultLockSettleDelay = 500 * time.Millisecond

// ErrNotRunning is returned by control requests outside the Running state.
var ErrNotRunning = errors.New("controller is not running")

// Flags are the startup actions, applied in declaration order.
type Flags struct {
	// DisableNative makes the override Active.
	DisableNative bool
	// RestoreNative makes the override Inactive right after DisableNative.
	RestoreNative bool
	// RestoreOnExit makes the override Inactive again at shutdown, but only
	// when this run is the one that activated it.
	RestoreOnExit bool
}

// Any reports whether at least one action is requested.
func (f Flags) Any() bool {
	return f.DisableNative || f.RestoreNative || f.RestoreOnExit
}

// Options configures a Controller.
type Options struct {
	Flags Flags
	// Binding is the alternate combination; nil registers nothing.
	Binding         *hotkeys.Binding
	LockSettleDelay time.Duration
}

// Hotkey is a live registration as seen by the controller.
type Hotkey interface {
	Binding() hotkeys.Binding
	Triggered() <-chan struct{}
	Unregister() error
}

// Registrar creates hotkey registrations.
type Registrar interface {
	Register(hotkeys.Binding) (Hotkey, error)
}

// RegistrarFunc adapts a function to Registrar.
type RegistrarFunc func(hotkeys.Binding) (Hotkey, error)

// Register calls f.
func (f RegistrarFunc) Register(b hotkeys.Binding) (Hotkey, error) { return f(b) }

// Recorder receives one call per mutating action, successful or not.
type Recorder interface {
	Record(action, detail string, err error)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithRecorder attaches an action recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// Status is a point-in-time view of a running controller.
type Status struct {
	State          string    `json:"state"`
	Binding        string    `json:"binding,omitempty"`
	OverrideHeld   bool      `json:"override_held"`
	OverrideActive bool      `json:"override_active"`
	RestoreOnExit  bool      `json:"restore_on_exit"`
	Triggers       int       `json:"triggers"`
	StartedAt      time.Time `json:"started_at"`
}

type requestKind int

const (
	requestStatus requestKind = iota
	requestStop
	requestLock
)

type request struct {
	kind  requestKind
	reply chan response
}

type response struct {
	status Status
	err    error
}

// Controller owns the override mutation and hotkey registration of one run.
type Controller struct {
	store     override.Store
	registrar Registrar
	locker    sessionlock.Locker
	recorder  Recorder
	opts      Options

	state    atomic.Int32
	requests chan request
	done     chan struct{}

	// Session state, touched only by the Run goroutine.
	overrideHeld bool
	hotkey       Hotkey
	triggers     int
	startedAt    time.Time
}

// New validates dependencies and returns an idle controller.
func New(store override.Store, registrar Registrar, locker sessionlock.Locker, opts Options, options ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New("controller requires an override store")
	}
	if locker == nil {
		return nil, errors.New("controller requires a session locker")
	}
	if opts.Binding != nil && registrar == nil {
		return nil, errors.New("controller requires a registrar when a binding is set")
	}
	if opts.LockSettleDelay < 0 {
		opts.LockSettleDelay = DefaultLockSettleDelay
	}
	c := &Controller{
		store:     store,
		registrar: registrar,
		locker:    locker,
		opts:      opts,
		requests:  make(chan request),
		done:      make(chan struct{}),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// State returns the current lifecycle state. Safe from any goroutine.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Run performs the startup actions, blocks in the event loop until ctx is
// cancelled or a stop is requested, then runs the shutdown sequence. A
// controller runs at most once.
func (c *Controller) Run(ctx context.Context) Result {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateStarting)) {
		return Result{Startup: fmt.Errorf("controller already %s", c.State())}
	}
	defer close(c.done)

	c.startedAt = time.Now()
	if err := c.start(); err != nil {
		slog.Error("[lockctl] startup failed", "error", err)
		return Result{Startup: err, Cleanup: c.shutdown("startup failure")}
	}

	reason := c.loop(ctx)
	return Result{Cleanup: c.shutdown(reason)}
}

func (c *Controller) start() error {
	flags := c.opts.Flags
	if flags.DisableNative {
		if err := c.disableNative(); err != nil {
			return fmt.Errorf("disable native lock shortcut: %w", err)
		}
	}
	if flags.RestoreNative {
		if err := c.restoreNative("startup"); err != nil {
			return fmt.Errorf("restore native lock shortcut: %w", err)
		}
	}
	if c.opts.Binding != nil {
		b := *c.opts.Binding
		hk, err := c.registrar.Register(b)
		c.record("hotkey.register", b.Normalized(), err)
		if err != nil {
			return fmt.Errorf("register hotkey %s: %w", b.Normalized(), err)
		}
		c.hotkey = hk
		slog.Info("[lockctl] alternate lock hotkey registered", "binding", b.Normalized())
	}
	return nil
}

func (c *Controller) disableNative() error {
	wasActive, err := c.store.IsActive()
	if err != nil {
		c.record("override.disable", "read current state", err)
		return err
	}
	err = c.store.Disable()
	c.record("override.disable", "was "+override.State(wasActive), err)
	if err != nil {
		return err
	}
	// An override that was already Active belongs to someone else (or an
	// earlier run that never restored it); this run does not own its undo.
	c.overrideHeld = !wasActive
	slog.Info("[lockctl] native lock shortcut disabled", "alreadyActive", wasActive)
	return nil
}

func (c *Controller) restoreNative(phase string) error {
	err := c.store.Enable()
	c.record("override.enable", phase, err)
	if err != nil {
		return err
	}
	c.overrideHeld = false
	slog.Info("[lockctl] native lock shortcut restored", "phase", phase)
	return nil
}

func (c *Controller) loop(ctx context.Context) string {
	var triggered <-chan struct{}
	if c.hotkey != nil {
		triggered = c.hotkey.Triggered()
	}

	c.state.Store(int32(StateRunning))
	slog.Info("[lockctl] running", "hotkey", c.bindingName(), "overrideHeld", c.overrideHeld)

	for {
		select {
		case <-ctx.Done():
			return "interrupt"
		case _, ok := <-triggered:
			if !ok {
				slog.Warn("[lockctl] hotkey event source closed")
				triggered = nil
				continue
			}
			slog.Info("[lockctl] hotkey pressed", "binding", c.bindingName())
			if err := c.triggerLock(); err != nil {
				slog.Error("[lockctl] lock failed", "error", err)
			}
		case req := <-c.requests:
			switch req.kind {
			case requestStatus:
				req.reply <- response{status: c.snapshot()}
			case requestLock:
				req.reply <- response{err: c.triggerLock()}
			case requestStop:
				req.reply <- response{}
				return "stop requested"
			}
		}
	}
}

func (c *Controller) triggerLock() error {
	c.triggers++
	err := TriggerLock(c.store, c.locker, c.opts.LockSettleDelay)
	c.record("lock.trigger", c.bindingName(), err)
	if errors.Is(err, ErrOverrideLifted) {
		// The override could not be reapplied, so there is nothing left for
		// this run to restore.
		c.overrideHeld = false
	}
	return err
}

func (c *Controller) snapshot() Status {
	active, err := c.store.IsActive()
	if err != nil {
		slog.Warn("[lockctl] status: override state unreadable", "error", err)
	}
	return Status{
		State:          c.State().String(),
		Binding:        c.bindingName(),
		OverrideHeld:   c.overrideHeld,
		OverrideActive: active,
		RestoreOnExit:  c.opts.Flags.RestoreOnExit,
		Triggers:       c.triggers,
		StartedAt:      c.startedAt,
	}
}

func (c *Controller) bindingName() string {
	if c.hotkey == nil {
		return ""
	}
	return c.hotkey.Binding().Normalized()
}

func (c *Controller) record(action, detail string, err error) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(action, detail, err)
}
