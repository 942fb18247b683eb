package dispatch

import (
	"fmt"

	"github.com/chazu/dispatchgen/table"
)

// Verify looks up every entry of r in its table and checks that it is found
// with its own handler index after exactly the probes the builder recorded.
// A key one past the largest key is also looked up, to exercise the miss
// path and its probe bound.
func Verify(r *Result) error {
	t := r.Table
	for i, p := range t.Probes {
		e := r.Entries[i]
		idx, probes, ok := t.Lookup(e.Key)
		switch {
		case !ok:
			return &VerifyError{Name: e.Name, Key: e.Key, Detail: "not found"}
		case idx != e.HandlerIdx:
			return &VerifyError{Name: e.Name, Key: e.Key,
				Detail: fmt.Sprintf("found handler %d, want %d", idx, e.HandlerIdx)}
		case uint32(probes) != p.ProbeCount+1:
			return &VerifyError{Name: e.Name, Key: e.Key,
				Detail: fmt.Sprintf("found after %d probes, placed after %d", probes, p.ProbeCount+1)}
		}
	}

	miss := absentKey(r.Entries)
	if _, probes, ok := t.Lookup(miss); ok || uint32(probes) > t.Capacity {
		return &VerifyError{Name: "absent key", Key: miss,
			Detail: fmt.Sprintf("lookup returned ok=%v after %d probes", ok, probes)}
	}
	log.Debugf("verified %d entries", len(t.Probes))
	return nil
}

func absentKey(entries []table.Entry) uint32 {
	present := make(map[uint32]bool, len(entries))
	var k uint32
	for _, e := range entries {
		present[e.Key] = true
		if e.Key >= k {
			k = e.Key + 1
		}
	}
	for present[k] {
		k++
	}
	return k
}
