//go:build windows

package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32DLL = windows.NewLazySystemDLL("user32.dll")

	procRegisterHotKey     = user32DLL.NewProc("RegisterHotKey")
	procUnregisterHotKey   = user32DLL.NewProc("UnregisterHotKey")
	procGetMessageW        = user32DLL.NewProc("GetMessageW")
	procTranslateMessage   = user32DLL.NewProc("TranslateMessage")
	procDispatchMessageW   = user32DLL.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32DLL.NewProc("PostThreadMessageW")
	procPeekMessageW       = user32DLL.NewProc("PeekMessageW")
)

const (
	wmHotkey   = 0x0312
	wmQuit     = 0x0012
	pmNoRemove = 0x0000

	// maxHotkeyID is the upper bound for application-defined hotkey IDs (Win32).
	maxHotkeyID int32 = 0xBFFF

	unregisterWaitTimeout = 2 * time.Second
)

var nextHotkeyID int32 = 0x4000

// point mirrors the Win32 POINT struct.
type point struct {
	x int32
	y int32
}

// winMsg mirrors the Win32 MSG struct (tagMSG from winuser.h).
// Field order and types must not be changed -- the layout must match
// the Win32 binary layout on both 32-bit and 64-bit Windows.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32 // reserved by Windows; required for correct struct size
}

type loopReady struct {
	threadID uint32
	err      error
}

// Registration is a live OS-level hotkey registration owned by this process.
// WM_HOTKEY is delivered to the thread that registered, so each registration
// runs its own message pump on a locked OS thread. The pump only posts to
// Triggered; it never runs the action itself.
type Registration struct {
	hotkeyID  int32
	threadID  uint32
	binding   Binding
	triggered chan struct{}
	doneCh    chan struct{}

	owner    *Manager
	released atomic.Bool
}

// Binding returns the registered combination.
func (r *Registration) Binding() Binding { return r.binding }

// Triggered delivers one value per press. Presses that arrive while a
// previous one is still unconsumed are coalesced.
func (r *Registration) Triggered() <-chan struct{} { return r.triggered }

// Unregister releases the OS binding and stops the message pump. Calling it
// on an already released registration is a no-op.
func (r *Registration) Unregister() error {
	if r == nil || !r.released.CompareAndSwap(false, true) {
		return nil
	}
	if r.owner != nil {
		r.owner.forget(r)
	}

	stopErr := postQuit(r.threadID)
	if stopErr != nil {
		select {
		case <-r.doneCh:
			// Pump already gone; its deferred UnregisterHotKey has run.
			return nil
		default:
		}
		if unregErr := unregisterHotKey(r.hotkeyID); unregErr != nil {
			slog.Warn("[hotkey] unregisterHotKey fallback failed (cross-thread; may be expected)",
				"error", unregErr, "hotkeyID", r.hotkeyID)
		}
	}

	timer := time.NewTimer(unregisterWaitTimeout)
	defer timer.Stop()

	select {
	case <-r.doneCh:
		slog.Debug("[hotkey] registration released", "binding", r.binding.Normalized())
		return nil
	case <-timer.C:
		timeoutErr := fmt.Errorf("hotkey message loop stop timed out (hotkeyID=%d)", r.hotkeyID)
		slog.Warn("[hotkey] message loop stop timed out, thread may leak",
			"hotkeyID", r.hotkeyID)
		return errors.Join(stopErr, timeoutErr)
	}
}

// Manager hands out at most one live registration per process.
type Manager struct {
	mu     sync.Mutex
	active *Registration
}

// NewManager creates a new hotkey manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register binds b system-wide to this process.
func (m *Manager) Register(b Binding) (*Registration, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	// Pre-check DLL availability so that failures produce clean errors
	// instead of panics from LazyProc.Call.
	if err := user32DLL.Load(); err != nil {
		return nil, fmt.Errorf("user32.dll is unavailable: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		held := m.active.binding
		if held.Modifiers() == b.Modifiers() && held.Key() == b.Key() {
			return nil, fmt.Errorf("%w: hotkey %q is already registered by this process", ErrCombinationUnavailable, held.Normalized())
		}
		return nil, fmt.Errorf("hotkey %q is already registered by this process", held.Normalized())
	}

	hotkeyID := atomic.AddInt32(&nextHotkeyID, 1)
	if hotkeyID < 0 || hotkeyID > maxHotkeyID {
		return nil, fmt.Errorf("hotkey ID range exhausted (ID=%d)", hotkeyID)
	}

	readyCh := make(chan loopReady, 1)
	reg := &Registration{
		hotkeyID:  hotkeyID,
		binding:   b,
		triggered: make(chan struct{}, 1),
		doneCh:    make(chan struct{}),
		owner:     m,
	}

	go runHotkeyLoop(reg, readyCh)

	ready := <-readyCh
	if ready.err != nil {
		return nil, fmt.Errorf("register hotkey %q: %w", b.Normalized(), ready.err)
	}
	if ready.threadID == 0 {
		return nil, errors.New("hotkey loop started but returned invalid thread ID 0")
	}
	reg.threadID = ready.threadID
	m.active = reg

	slog.Info("[hotkey] registered", "binding", b.Normalized(), "hotkeyID", hotkeyID)
	return reg, nil
}

// ActiveBinding returns the normalized binding string for the active hotkey.
func (m *Manager) ActiveBinding() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ""
	}
	return m.active.binding.Normalized()
}

func (m *Manager) forget(r *Registration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == r {
		m.active = nil
	}
}

func runHotkeyLoop(reg *Registration, readyCh chan<- loopReady) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(reg.doneCh)

	threadID := windows.GetCurrentThreadId()
	if threadID == 0 {
		readyCh <- loopReady{err: errors.New("GetCurrentThreadId returned 0")}
		return
	}

	// PeekMessageW forces Windows to create the thread message queue so that
	// PostThreadMessageW in Unregister can deliver WM_QUIT. Queue creation is a
	// side-effect of the call itself; the return value is 0 when no messages exist.
	var qmsg winMsg
	ret, _, peekErr := procPeekMessageW.Call(
		uintptr(unsafe.Pointer(&qmsg)),
		0,
		0,
		0,
		pmNoRemove,
	)
	if ret == 0 && peekErr != syscall.Errno(0) {
		slog.Debug("[hotkey] PeekMessageW for queue init returned error",
			"error", peekErr, "hotkeyID", reg.hotkeyID)
	}

	if err := registerHotKey(reg.hotkeyID, uint32(reg.binding.registrationModifiers()), uint32(reg.binding.Key())); err != nil {
		readyCh <- loopReady{err: err}
		return
	}
	defer func() {
		if err := unregisterHotKey(reg.hotkeyID); err != nil {
			slog.Error("[hotkey] unregisterHotKey on loop exit failed (resource leak)",
				"error", err, "hotkeyID", reg.hotkeyID)
		}
	}()

	readyCh <- loopReady{threadID: threadID}

	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(
			uintptr(unsafe.Pointer(&msg)),
			0,
			0,
			0,
		)
		switch int32(ret) {
		case -1:
			slog.Warn("[hotkey] GetMessageW returned error, exiting loop", "error", lastErr, "hotkeyID", reg.hotkeyID)
			return
		case 0:
			slog.Debug("[hotkey] message loop received WM_QUIT", "hotkeyID", reg.hotkeyID)
			return
		}

		if msg.message == wmHotkey && int32(msg.wParam) == reg.hotkeyID {
			select {
			case reg.triggered <- struct{}{}:
			default:
			}
			continue
		}

		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

func registerHotKey(hotkeyID int32, modifiers uint32, key uint32) error {
	res, _, err := procRegisterHotKey.Call(
		0,
		uintptr(hotkeyID),
		uintptr(modifiers),
		uintptr(key),
	)
	if res != 0 {
		return nil
	}
	if errors.Is(err, windows.ERROR_HOTKEY_ALREADY_REGISTERED) {
		return fmt.Errorf("%w: %v", ErrCombinationUnavailable, err)
	}
	if err == syscall.Errno(0) {
		return errors.New("RegisterHotKey failed")
	}
	return err
}

func unregisterHotKey(hotkeyID int32) error {
	res, _, err := procUnregisterHotKey.Call(0, uintptr(hotkeyID))
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("UnregisterHotKey failed")
	}
	return err
}

func postQuit(threadID uint32) error {
	if threadID == 0 {
		return errors.New("cannot post WM_QUIT: threadID is 0")
	}
	res, _, err := procPostThreadMessageW.Call(
		uintptr(threadID),
		wmQuit,
		0,
		0,
	)
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("PostThreadMessageW failed")
	}
	return err
}
