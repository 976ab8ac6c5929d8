//go:build windows

package hotkeys

import "golang.org/x/sys/windows"

var procVkKeyScanW = windows.NewLazySystemDLL("user32.dll").NewProc("VkKeyScanW")

// layoutKey asks the active keyboard layout which key produces ch.
// The high byte of the VkKeyScanW result (shift state) is ignored; the
// binding's own modifiers decide what must be held.
func layoutKey(ch rune) (VKey, bool) {
	if ch > 0xFFFF {
		return 0, false
	}
	if err := procVkKeyScanW.Find(); err != nil {
		return 0, false
	}
	ret, _, _ := procVkKeyScanW.Call(uintptr(uint16(ch)))
	scan := int16(ret)
	if scan == -1 {
		return 0, false
	}
	vk := VKey(uint16(scan) & 0x00FF)
	if vk == 0 || vk > maxVKey {
		return 0, false
	}
	return vk, true
}
