package header

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const packetHeader = `#pragma once
#include <stdint.h>

/* Wire protocol packet types. */
typedef enum {
  PACKET_TYPE_PROTOCOL_VERSION = 1,   // handshake
  PACKET_TYPE_ASCII_FRAME = 0x0A,
  PACKET_TYPE_IMAGE_FRAME,            /* implicit: 11 */
  PACKET_TYPE_AUDIO_BATCH = 4000,
  PACKET_TYPE_DERIVED = PACKET_TYPE_AUDIO_BATCH + 1,
  PACKET_TYPE_AFTER_DERIVED,
  PACKET_TYPE_PING = (5000),
  PACKET_TYPE_NEGATIVE = -1,
} packet_type_t;

#define PACKET_TYPE_LEGACY_PING 0x7F
#define PACKET_TYPE_FLAGS (PACKET_TYPE_PING | 0x10)
#define PACKET_MAX(a, b) ((a) > (b) ? (a) : (b))
#define HEADER_GUARD
`

func TestExtractPacketHeader(t *testing.T) {
	syms, err := Extract([]byte(packetHeader), Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := map[string]uint32{
		"PACKET_TYPE_PROTOCOL_VERSION": 1,
		"PACKET_TYPE_ASCII_FRAME":      10,
		"PACKET_TYPE_IMAGE_FRAME":      11,
		"PACKET_TYPE_AUDIO_BATCH":      4000,
		"PACKET_TYPE_PING":             5000,
		"PACKET_TYPE_LEGACY_PING":      127,
	}
	for name, v := range want {
		got, ok := syms.Lookup(name)
		if !ok {
			t.Errorf("%s not resolved", name)
			continue
		}
		if got != v {
			t.Errorf("%s = %d, want %d", name, got, v)
		}
	}
	if syms.Len() != len(want) {
		t.Errorf("resolved %d symbols %v, want %d", syms.Len(), syms.Names(), len(want))
	}

	for _, name := range []string{
		"PACKET_TYPE_DERIVED",
		"PACKET_TYPE_AFTER_DERIVED",
		"PACKET_TYPE_NEGATIVE",
		"PACKET_TYPE_FLAGS",
	} {
		if _, ok := syms.Lookup(name); ok {
			t.Errorf("%s resolved, want unsupported", name)
		}
		if _, ok := syms.UnsupportedReason(name); !ok {
			t.Errorf("%s missing from unsupported list", name)
		}
	}

	u, _ := syms.UnsupportedReason("PACKET_TYPE_DERIVED")
	if u.Expr != "PACKET_TYPE_AUDIO_BATCH + 1" {
		t.Errorf("unsupported expr = %q", u.Expr)
	}
	if u.Line != 10 {
		t.Errorf("unsupported line = %d, want 10", u.Line)
	}

	if _, ok := syms.UnsupportedReason("PACKET_MAX"); ok {
		t.Error("function-like macro reported as unsupported")
	}
	if _, ok := syms.UnsupportedReason("HEADER_GUARD"); ok {
		t.Error("empty macro reported as unsupported")
	}
}

func TestExtractUnsupportedExpression(t *testing.T) {
	syms, err := Extract([]byte("enum { BAR = 2, FOO = BAR + 1 };"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := syms.Lookup("FOO"); ok {
		t.Fatal("FOO = BAR + 1 must not resolve to a value")
	}
	if v, ok := syms.Lookup("BAR"); !ok || v != 2 {
		t.Errorf("BAR = %d, %v; want 2", v, ok)
	}
}

func TestExtractPrefix(t *testing.T) {
	src := `enum { OTHER = 3, PACKET_TYPE_A = 4, PACKET_TYPE_B };`
	syms, err := Extract([]byte(src), Options{Prefix: "PACKET_TYPE_"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := syms.Names(), []string{"PACKET_TYPE_A", "PACKET_TYPE_B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
	if v, _ := syms.Lookup("PACKET_TYPE_B"); v != 5 {
		t.Errorf("PACKET_TYPE_B = %d, want 5", v)
	}
}

func TestExtractImplicitValues(t *testing.T) {
	src := `
enum color : unsigned char { RED, GREEN, BLUE = 7, CYAN };
enum tail { LAST = 0xFFFFFFFF, PAST_END };
`
	syms, err := Extract([]byte(src), Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := []Symbol{
		{Name: "RED", Value: 0, Line: 2},
		{Name: "GREEN", Value: 1, Line: 2},
		{Name: "BLUE", Value: 7, Line: 2},
		{Name: "CYAN", Value: 8, Line: 2},
		{Name: "LAST", Value: 0xFFFFFFFF, Line: 3},
	}
	if !reflect.DeepEqual(syms.Defined, want) {
		t.Errorf("Defined = %+v\nwant %+v", syms.Defined, want)
	}
	if u, ok := syms.UnsupportedReason("PAST_END"); !ok || !strings.Contains(u.Reason, "32 bits") {
		t.Errorf("PAST_END = %+v, %v; want out-of-range unsupported", u, ok)
	}
}

func TestExtractConflictingDefinitions(t *testing.T) {
	src := `
#define PACKET_TYPE_X 1
#define PACKET_TYPE_X 1
#define PACKET_TYPE_Y 2
#define PACKET_TYPE_Y 3
`
	syms, err := Extract([]byte(src), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := syms.Lookup("PACKET_TYPE_X"); !ok || v != 1 {
		t.Errorf("identical redefinition: X = %d, %v", v, ok)
	}
	if _, ok := syms.Lookup("PACKET_TYPE_Y"); ok {
		t.Error("conflicting redefinition resolved to a value")
	}
	if u, ok := syms.UnsupportedReason("PACKET_TYPE_Y"); !ok || !strings.Contains(u.Reason, "conflicting") {
		t.Errorf("Y = %+v, %v; want conflict", u, ok)
	}
}

func TestExtractByValue(t *testing.T) {
	syms, err := Extract([]byte("enum { C = 3, A = 1, B = 1, D = 0x2 };"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, s := range syms.ByValue() {
		got = append(got, s.Name)
	}
	if want := []string{"A", "B", "D", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ByValue = %v, want %v", got, want)
	}
}

func TestExtractSyntaxError(t *testing.T) {
	_, err := Extract([]byte("enum { A = 1 /* oops"), Options{})
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("Extract error = %v, want *SyntaxError", err)
	}
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packet.h")
	if err := os.WriteFile(path, []byte(packetHeader), 0644); err != nil {
		t.Fatal(err)
	}
	syms, err := ExtractFile(path, Options{Prefix: "PACKET_TYPE_"})
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if v, ok := syms.Lookup("PACKET_TYPE_AUDIO_BATCH"); !ok || v != 4000 {
		t.Errorf("PACKET_TYPE_AUDIO_BATCH = %d, %v", v, ok)
	}

	if _, err := ExtractFile(filepath.Join(dir, "missing.h"), Options{}); err == nil {
		t.Error("ExtractFile on a missing file succeeded")
	}
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		text string
		want uint32
		ok   bool
	}{
		{"0", 0, true},
		{"42", 42, true},
		{"0x2A", 42, true},
		{"0X2a", 42, true},
		{"(7)", 7, true},
		{" ( (8) ) ", 8, true},
		{"4294967295", 4294967295, true},
		{"4294967296", 0, false},
		{"0x100000000", 0, false},
		{"010", 0, false},
		{"-1", 0, false},
		{"10u", 0, false},
		{"0x", 0, false},
		{"1 << 4", 0, false},
		{"FOO", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseLiteral(tt.text)
			if (err == nil) != tt.ok {
				t.Fatalf("ParseLiteral(%q) error = %v, want ok=%v", tt.text, err, tt.ok)
			}
			if tt.ok && got != tt.want {
				t.Errorf("ParseLiteral(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
