// Package email contains helpers for working with contact email addresses.
package email

import (
	"strings"
	"unicode"
)

// DeriveNameFromEmail guesses a first and last name from the local part of an
// address. Used when an approved registration is provisioned into an account
// and the signup form carried no separate name fields.
func DeriveNameFromEmail(address string) (first, last string) {
	local := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		local = address[:at]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "User", "User"
	}

	first = capitalize(parts[0])
	last = "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}
	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
