package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseLegacy reads the single-table JSON config of the earlier generator:
//
//	{"header": "...", "types": "A, B", "handlers": ["h_a", "h_b"],
//	 "table_size": 32, "prefix": "", "table_name": "...",
//	 "handler_array": "...", "handler_typedef": "...", "entry_typedef": "..."}
//
// types and handlers may be comma-separated strings or arrays.
func ParseLegacy(data []byte) (Target, error) {
	if !gjson.ValidBytes(data) {
		return Target{}, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Target{}, errors.New("config must be a JSON object")
	}

	var t Target
	var err error
	str := func(key string, dst *string) {
		if err != nil {
			return
		}
		v := root.Get(key)
		if !v.Exists() {
			return
		}
		if v.Type != gjson.String {
			err = fmt.Errorf("%s: expected a string", key)
			return
		}
		*dst = v.String()
	}
	str("header", &t.Header)
	str("output", &t.Output)
	str("prefix", &t.Prefix)
	str("enum_prefix", &t.EnumPrefix)
	str("target", &t.Target)
	str("table_name", &t.TableName)
	str("handler_array", &t.HandlerArray)
	str("handler_typedef", &t.HandlerType)
	str("entry_typedef", &t.EntryType)
	str("key_typedef", &t.KeyType)
	if err != nil {
		return Target{}, err
	}

	if t.Types, err = nameList(root.Get("types"), "types"); err != nil {
		return Target{}, err
	}
	if t.Handlers, err = nameList(root.Get("handlers"), "handlers"); err != nil {
		return Target{}, err
	}

	if v := root.Get("table_size"); v.Exists() {
		n := v.Int()
		if v.Type != gjson.Number || float64(n) != v.Float() || n <= 0 || n > 1<<32-1 {
			return Target{}, fmt.Errorf("table_size: expected a positive integer, got %s", v.Raw)
		}
		t.TableSize = uint32(n)
	}
	return t, nil
}

// nameList accepts "A, B, C" or ["A", "B", "C"].
func nameList(v gjson.Result, key string) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	switch {
	case v.Type == gjson.String:
		return SplitList(v.String()), nil
	case v.IsArray():
		var out []string
		var bad bool
		v.ForEach(func(_, item gjson.Result) bool {
			if item.Type != gjson.String {
				bad = true
				return false
			}
			out = append(out, strings.TrimSpace(item.String()))
			return true
		})
		if bad {
			return nil, fmt.Errorf("%s: array elements must be strings", key)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: expected a string or an array of strings", key)
}

// SplitList splits a comma-separated list and trims each element. An empty
// string yields no elements.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
