package emit

import (
	"strings"
	"unicode"
)

// goExported converts a C-style name to an exported Go identifier.
// e.g., "dispatch_entry_t" → "DispatchEntry", "CLIENT_" → "Client",
// "packet_handler_t" → "PacketHandler"
func goExported(name string) string {
	return toPascal(strings.TrimSuffix(name, "_t"))
}

// goUnexported converts a C-style name to an unexported Go identifier.
// e.g., "dispatch_hash" → "dispatchHash", "g_dispatch_handlers" → "gDispatchHandlers"
func goUnexported(name string) string {
	p := toPascal(name)
	if p == "" {
		return p
	}
	r := []rune(p)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// toPascal converts a string to PascalCase.
// Handles hyphenated and underscore-separated names. Parts written entirely
// in upper case, as C constants are, are folded to title case.
func toPascal(s string) string {
	if len(s) == 0 {
		return s
	}

	var b strings.Builder
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' }) {
		if isUpper(part) {
			part = strings.ToLower(part)
		}
		for i, r := range part {
			if i == 0 {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// cLower lower-cases a C prefix for use in function names.
// e.g., "CLIENT_" → "client_"
func cLower(prefix string) string {
	return strings.ToLower(prefix)
}
