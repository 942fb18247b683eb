package header

import (
	"errors"
	"strconv"
	"strings"
)

var (
	errNotLiteral = errors.New("not a decimal or hexadecimal literal")
	errOutOfRange = errors.New("literal does not fit in 32 bits")
)

// ParseLiteral parses a decimal or hexadecimal integer literal, optionally
// wrapped in parentheses. Octal (leading zero), negative, suffixed and
// computed values are rejected rather than guessed at.
func ParseLiteral(text string) (uint32, error) {
	s := strings.TrimSpace(text)
	for len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	base := 10
	digits := s
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		digits = s[2:]
	} else if len(s) > 1 && s[0] == '0' {
		return 0, errNotLiteral
	}
	if digits == "" || !allDigits(digits, base) {
		return 0, errNotLiteral
	}

	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, errOutOfRange
	}
	return uint32(v), nil
}

func allDigits(s string, base int) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case base == 16 && (c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'):
		default:
			return false
		}
	}
	return true
}
