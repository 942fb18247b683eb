package emit

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/chazu/dispatchgen/table"
)

// CEmitter renders a C header fragment. Keys are written with their
// symbolic names, so the fragment must be included after the header that
// declares them.
type CEmitter struct{}

var cTemplate = template.Must(template.New("c").Parse(`/* Code generated by dispatchgen; DO NOT EDIT. */
{{- if .Source}}
/* Source: {{.Source}} */
{{- end}}
/* Table fingerprint: {{.Fingerprint}} */

#define {{.Prefix}}DISPATCH_HASH_SIZE {{.Size}}
#define {{.Prefix}}DISPATCH_HANDLER_COUNT {{.HandlerCount}}

typedef struct {
  {{.KeyType}} key;
  {{.IndexType}} handler_idx;
{{- if .Occupied}}
  uint8_t occupied;
{{- end}}
} {{.EntryType}};

#define {{.Prefix}}DISPATCH_HASH(type) ((type) % {{.Prefix}}DISPATCH_HASH_SIZE)

static inline int {{.LowerPrefix}}dispatch_hash_lookup(const {{.EntryType}} *table, {{.KeyType}} type) {
  uint32_t h = {{.Prefix}}DISPATCH_HASH(type);
  for (int i = 0; i < {{.Prefix}}DISPATCH_HASH_SIZE; i++) {
    uint32_t slot = (h + i) % {{.Prefix}}DISPATCH_HASH_SIZE;
{{- if .Occupied}}
    if (!table[slot].occupied) return -1;
{{- else}}
    if (table[slot].key == 0) return -1;
{{- end}}
    if (table[slot].key == type) return table[slot].handler_idx;
  }
  return -1;
}

// Handler array (indexed by hash lookup result)
static const {{.HandlerType}} {{.HandlerArray}}[{{.Prefix}}DISPATCH_HANDLER_COUNT] = {
{{- range $i, $h := .Handlers}}
    ({{$.HandlerType}}){{$h}},  // {{$i}}
{{- end}}
};

// Hash table mapping packet type -> handler index
// clang-format off
static const {{.EntryType}} {{.TableName}}[{{.Prefix}}DISPATCH_HASH_SIZE] = {
{{- range .Rows}}
    {{.}}
{{- end}}
};
// clang-format on
`))

type cView struct {
	Source       string
	Fingerprint  string
	Prefix       string
	LowerPrefix  string
	Size         uint32
	HandlerCount int
	KeyType      string
	IndexType    string
	EntryType    string
	HandlerType  string
	HandlerArray string
	TableName    string
	Occupied     bool
	Handlers     []string
	Rows         []string
}

// Emit implements Emitter.
func (CEmitter) Emit(w io.Writer, in *Input) error {
	n := in.Naming.WithDefaults()
	v := cView{
		Source:       in.Source,
		Fingerprint:  table.FingerprintHex(in.Table),
		Prefix:       n.Prefix,
		LowerPrefix:  cLower(n.Prefix),
		Size:         in.Table.Capacity,
		HandlerCount: len(in.Handlers),
		KeyType:      n.KeyType,
		IndexType:    fmt.Sprintf("uint%d_t", indexBits(len(in.Handlers))),
		EntryType:    n.EntryType,
		HandlerType:  n.HandlerType,
		HandlerArray: n.HandlerArray,
		TableName:    n.TableName,
		Occupied:     in.useOccupiedFlag(),
		Handlers:     in.Handlers,
	}

	width := len(fmt.Sprint(in.Table.Capacity - 1))
	for i, s := range in.Table.Slots {
		if !s.Occupied {
			continue
		}
		v.Rows = append(v.Rows, cRow(s, uint32(i), in.Table.Capacity, width, v.Occupied))
	}

	return cTemplate.Execute(w, v)
}

// cRow renders one designated initializer, e.g.
//
//	[ 2] = {PACKET_TYPE_IMAGE_FRAME,                  1},  // hash(9)=1, probed->2
func cRow(s table.Slot, slot, capacity uint32, width int, occupied bool) string {
	key := s.Name
	if key == "" {
		key = fmt.Sprint(s.Key)
	}
	fields := fmt.Sprintf("%-40s %2d", key+",", s.HandlerIdx)
	if occupied {
		fields += ", 1"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%*d] = {%s},  // %s", width, slot, fields, slotComment(s, slot, capacity))
	return b.String()
}
