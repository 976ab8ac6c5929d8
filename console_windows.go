//go:build windows

package main

import (
	"log/slog"

	"golang.org/x/sys/windows"
)

const codePageUTF8 = 65001

// setConsoleUTF8 switches the attached console to UTF-8 so layout characters
// in hotkey names (e.g. "Ctrl+Win+ö") print correctly.
func setConsoleUTF8() {
	if err := windows.SetConsoleOutputCP(codePageUTF8); err != nil {
		slog.Debug("[console] SetConsoleOutputCP failed", "error", err)
	}
	if err := windows.SetConsoleCP(codePageUTF8); err != nil {
		slog.Debug("[console] SetConsoleCP failed", "error", err)
	}
}
