// Package validate holds the pure syntax checks used by the registration flow.
// They are deliberately permissive: format checks, not deliverability checks.
package validate

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)
	phoneRe = regexp.MustCompile(`^\+?\d{7,15}$`)
)

// Email reports whether s looks like a valid email address.
func Email(s string) bool {
	if s == "" || !strings.Contains(s, "@") {
		return false
	}
	return emailRe.MatchString(s)
}

// Phone reports whether s is an optional leading '+' followed by 7-15 digits.
func Phone(s string) bool {
	if s == "" {
		return false
	}
	return phoneRe.MatchString(s)
}
