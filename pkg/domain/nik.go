package domain

import (
	dErrors "rekam/pkg/domain-errors"
)

// NIKLength is the fixed length of a national identity number.
const NIKLength = 16

// NIK is a national identity number: exactly 16 ASCII digits.
type NIK string

// ParseNIK accepts s only if it is exactly 16 ASCII digits. No trimming is
// applied; callers normalize input before parsing.
func ParseNIK(s string) (NIK, error) {
	if !IsNIK(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "NIK must be exactly 16 digits")
	}
	return NIK(s), nil
}

// IsNIK reports whether s is exactly 16 ASCII digits.
func IsNIK(s string) bool {
	if len(s) != NIKLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (n NIK) String() string { return string(n) }
