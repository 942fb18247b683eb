package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const tomlManifest = `
[defaults]
header = "include/packet.h"
enum_prefix = "PACKET_TYPE_"
table_size = 64

[[table]]
name = "server"
output = "src/server_dispatch.h"
types = ["PACKET_TYPE_PING", "PACKET_TYPE_PONG"]
handlers = ["handle_ping", "handle_pong"]

[[table]]
name = "client"
target = "go"
package = "client"
prefix = "CLIENT_"
table_size = 16
types = ["PACKET_TYPE_PING"]
handlers = ["onPing"]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dispatch.toml", tomlManifest)

	m, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(m.Tables) != 2 {
		t.Fatalf("tables count = %d, want 2", len(m.Tables))
	}

	server, ok := m.Lookup("server")
	if !ok {
		t.Fatal("server table not found")
	}
	if server.Header != "include/packet.h" {
		t.Errorf("server header = %q, want inherited include/packet.h", server.Header)
	}
	if server.TableSize != 64 {
		t.Errorf("server table_size = %d, want 64", server.TableSize)
	}

	opts := m.Options(server)
	if want := filepath.Join(m.Dir, "include", "packet.h"); opts.Header != want {
		t.Errorf("header path = %q, want %q", opts.Header, want)
	}
	if opts.Capacity != 64 || opts.EnumPrefix != "PACKET_TYPE_" || opts.Target != "c" {
		t.Errorf("server options = %+v", opts)
	}
	if opts.Naming.TableName != "dispatch_hash" {
		t.Errorf("table name = %q, want default", opts.Naming.TableName)
	}
	if got := m.OutputPath(server); got != filepath.Join(m.Dir, "src", "server_dispatch.h") {
		t.Errorf("server output = %q", got)
	}

	client, _ := m.Lookup("client")
	copts := m.Options(client)
	if copts.Capacity != 16 || copts.Target != "go" || copts.Package != "client" || copts.Naming.Prefix != "CLIENT_" {
		t.Errorf("client options = %+v", copts)
	}
	if got := m.OutputPath(client); got != filepath.Join(m.Dir, "client_dispatch.go") {
		t.Errorf("client output = %q", got)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dispatch.yaml", `
defaults:
  header: packet.h
table:
  - name: main
    types: [PACKET_TYPE_A, PACKET_TYPE_B]
    handlers: [handle_a, handle_b]
    key_type: uint16_t
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	tgts := m.Targets()
	if len(tgts) != 1 {
		t.Fatalf("targets = %d", len(tgts))
	}
	if !reflect.DeepEqual(tgts[0].Types, []string{"PACKET_TYPE_A", "PACKET_TYPE_B"}) {
		t.Errorf("types = %v", tgts[0].Types)
	}
	if tgts[0].Header != "packet.h" || tgts[0].KeyType != "uint16_t" {
		t.Errorf("target = %+v", tgts[0])
	}
}

func TestLoadYAMLUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dispatch.yaml", "table:\n  - name: x\n    tabel_size: 4\n")
	if _, err := Load(path); err == nil {
		t.Error("unknown YAML field accepted")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no tables", "[defaults]\nheader = \"a.h\"\n", "no tables"},
		{"bad identifier", "[[table]]\ntypes = [\"PACKET TYPE\"]\n", "invalid configuration"},
		{"table too large", "[[table]]\ntable_size = 100000\n", "invalid configuration"},
		{"unknown target", "[[table]]\ntarget = \"rust\"\n", "invalid configuration"},
		{"duplicate name", "[[table]]\nname = \"a\"\n[[table]]\nname = \"a\"\n", "duplicate table name"},
		{"name clashes with default", "[[table]]\nname = \"table2\"\n[[table]]\nheader = \"b.h\"\n", `duplicate table name "table2"`},
		{"bad defaults", "[defaults]\nhandler_type = \"1x\"\n[[table]]\nname = \"a\"\n", "defaults"},
		{"syntax", "[[table]\n", "parse error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "dispatch.toml", tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestUnnamedTables(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dispatch.toml", `
[defaults]
header = "packet.h"

[[table]]
types = ["PACKET_TYPE_PING"]
handlers = ["handle_ping"]

[[table]]
target = "cbor"
types = ["PACKET_TYPE_PONG"]
handlers = ["handle_pong"]
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	targets := m.Targets()
	if targets[0].Name != "table1" || targets[1].Name != "table2" {
		t.Fatalf("names = %q, %q", targets[0].Name, targets[1].Name)
	}
	if got, want := m.OutputPath(targets[0]), filepath.Join(dir, "table1_dispatch.h"); got != want {
		t.Errorf("OutputPath = %q, want %q", got, want)
	}
	if got, want := m.OutputPath(targets[1]), filepath.Join(dir, "table2_dispatch.cbor"); got != want {
		t.Errorf("OutputPath = %q, want %q", got, want)
	}
	if _, ok := m.Lookup("table2"); !ok {
		t.Error("Lookup(table2) failed")
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dispatch.toml", tomlManifest)
	subDir := filepath.Join(dir, "src", "net")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("expected to find manifest")
	}
	absDir, _ := filepath.Abs(dir)
	if m.Dir != absDir {
		t.Errorf("manifest dir = %q, want %q", m.Dir, absDir)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when none exists")
	}
}

func TestMerge(t *testing.T) {
	base := Target{Header: "a.h", TableSize: 32, Types: []string{"X"}, Prefix: "P_"}
	got := Target{Name: "t", TableSize: 8}.Merge(base)
	want := Target{Name: "t", Header: "a.h", TableSize: 8, Types: []string{"X"}, Prefix: "P_"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
}

func TestParseLegacy(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Target
	}{
		{
			name: "comma strings",
			json: `{"header": "lib/packet.h", "types": "PACKET_TYPE_A, PACKET_TYPE_B",
				"handlers": "handle_a,handle_b", "table_size": 16, "prefix": "SERVER_",
				"table_name": "g_dispatch_hash", "handler_typedef": "handler_fn", "entry_typedef": "entry_t"}`,
			want: Target{
				Header:      "lib/packet.h",
				Types:       []string{"PACKET_TYPE_A", "PACKET_TYPE_B"},
				Handlers:    []string{"handle_a", "handle_b"},
				TableSize:   16,
				Prefix:      "SERVER_",
				TableName:   "g_dispatch_hash",
				HandlerType: "handler_fn",
				EntryType:   "entry_t",
			},
		},
		{
			name: "arrays",
			json: `{"types": ["PACKET_TYPE_A", " PACKET_TYPE_B "], "handlers": ["handle_a", "handle_b"]}`,
			want: Target{
				Types:    []string{"PACKET_TYPE_A", "PACKET_TYPE_B"},
				Handlers: []string{"handle_a", "handle_b"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLegacy([]byte(tt.json))
			if err != nil {
				t.Fatalf("ParseLegacy: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseLegacy = %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestParseLegacyErrors(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`[1, 2]`,
		`{"types": 5}`,
		`{"handlers": ["a", 1]}`,
		`{"table_size": "32"}`,
		`{"table_size": 0}`,
		`{"table_size": 1.5}`,
		`{"header": 7}`,
	} {
		if _, err := ParseLegacy([]byte(in)); err == nil {
			t.Errorf("ParseLegacy(%s) succeeded", in)
		}
	}
}

func TestLoadLegacyJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "server_client.json", `{"header": "packet.h", "types": "A", "handlers": "h"}`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Tables) != 1 || m.Tables[0].Header != "packet.h" {
		t.Errorf("tables = %+v", m.Tables)
	}
}

func TestSplitList(t *testing.T) {
	if got := SplitList(" A, B ,C"); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("SplitList = %q", got)
	}
	if got := SplitList("  "); got != nil {
		t.Errorf("SplitList(blank) = %q", got)
	}
}

func TestEnvLoader(t *testing.T) {
	env := map[string]string{
		"DISPATCHGEN_TABLE_SIZE":  "128",
		"DISPATCHGEN_PREFIX":      "SRV_",
		"DISPATCHGEN_TARGET":      "go",
		"DISPATCHGEN_ENUM_PREFIX": "",
	}
	l := NewEnvLoaderWithLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	got, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Target{TableSize: 128, Prefix: "SRV_", Target: "go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %+v, want %+v", got, want)
	}

	env["DISPATCHGEN_TABLE_SIZE"] = "lots"
	if _, err := l.Load(); err == nil {
		t.Error("non-numeric table size accepted")
	}
	env["DISPATCHGEN_TABLE_SIZE"] = "8"
	env["DISPATCHGEN_TARGET"] = "pascal"
	if _, err := l.Load(); err == nil {
		t.Error("unknown target accepted")
	}
}

func TestValidateTarget(t *testing.T) {
	if err := ValidateTarget(Target{}); err != nil {
		t.Errorf("empty target rejected: %v", err)
	}
	ok := Target{
		Name: "server.v2", Header: "a.h", Types: []string{"A_1"}, Handlers: []string{"_h"},
		TableSize: 65536, Target: "cbor", Prefix: "", TableName: "tbl",
	}
	if err := ValidateTarget(ok); err != nil {
		t.Errorf("valid target rejected: %v", err)
	}
	for _, bad := range []Target{
		{TableSize: 65537},
		{Handlers: []string{"handle-a"}},
		{EntryType: "struct entry"},
		{Prefix: "A B"},
		{Name: "a/b"},
	} {
		if err := ValidateTarget(bad); err == nil {
			t.Errorf("ValidateTarget(%+v) succeeded", bad)
		}
	}
}

func TestLoadTOMLUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dispatch.toml", "[[table]]\nname = \"a\"\ntabel_size = 4\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "tabel_size") {
		t.Errorf("Load error = %v, want unknown key", err)
	}
}
