//go:build !windows

package hotkeys

// layoutKey has no keyboard layout to consult outside Windows.
func layoutKey(rune) (VKey, bool) { return 0, false }
