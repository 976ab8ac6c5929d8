// Package userutil derives per-user names for the objects that scope one
// controller to one user: the control pipe, the instance mutex and lock file.
package userutil

import (
	"os"
	"os/user"
	"regexp"
	"strings"
)

var invalidUsernameRune = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// currentUserFn is a test seam for the os/user fallback.
var currentUserFn = user.Current

// SanitizeUsername normalizes username-like values used in pipe/mutex names.
func SanitizeUsername(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return invalidUsernameRune.ReplaceAllString(value, "_")
}

// CurrentUsername returns the sanitized name of the invoking user: USERNAME on
// Windows, USER elsewhere, then the account database.
func CurrentUsername() string {
	for _, key := range []string{"USERNAME", "USER"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return SanitizeUsername(v)
		}
	}
	if current, err := currentUserFn(); err == nil {
		return SanitizeUsername(current.Username)
	}
	return SanitizeUsername("")
}
