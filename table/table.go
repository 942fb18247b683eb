// Package table builds fixed-size open-addressing dispatch tables.
//
// A table maps sparse uint32 keys (protocol message-type codes) to handler
// indices. Keys are placed with a modulo home slot and linear probing, in
// caller order. The same probe sequence is used by Lookup and by every
// emitted lookup function, so a table built here and a table read by
// generated code always agree.
package table

import (
	"errors"
	"fmt"
)

// Entry is one (key, handler) pair to place in a table.
type Entry struct {
	Name       string // symbolic name of the key, e.g. PACKET_TYPE_PING
	Key        uint32
	HandlerIdx uint32
}

// Slot is one cell of a table. The zero Slot is empty.
type Slot struct {
	Occupied   bool
	Key        uint32
	HandlerIdx uint32
	Name       string
}

// ProbeRecord describes where an entry landed and how far it was displaced
// from its home slot.
type ProbeRecord struct {
	Name       string
	Key        uint32
	HomeSlot   uint32
	SlotIndex  uint32
	ProbeCount uint32
}

// Table is a built dispatch table. It is never modified after Build returns.
type Table struct {
	Capacity uint32
	Slots    []Slot

	// Probes holds one record per entry, in input order.
	Probes []ProbeRecord
}

// ErrZeroCapacity is returned by Build when capacity is zero.
var ErrZeroCapacity = errors.New("table: capacity must be greater than zero")

// OverflowError reports an entry that could not be placed within Capacity
// probes.
type OverflowError struct {
	Name     string
	Key      uint32
	Capacity uint32
	Entries  int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("hash table overflow placing %s (key %d): %d entries do not fit in table size %d; increase the table size",
		displayName(e.Name, e.Key), e.Key, e.Entries, e.Capacity)
}

// DuplicateKeyError reports two entries sharing one key.
type DuplicateKeyError struct {
	Key    uint32
	First  string
	Second string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %d: %s and %s", e.Key,
		displayName(e.First, e.Key), displayName(e.Second, e.Key))
}

func displayName(name string, key uint32) string {
	if name == "" {
		return fmt.Sprintf("key %d", key)
	}
	return name
}

// Home returns the home slot of key for a table of the given capacity.
func Home(key, capacity uint32) uint32 {
	return key % capacity
}

// Build places entries into a new table of the given capacity.
//
// Entries are inserted strictly in input order. An entry whose home slot is
// taken moves forward one slot at a time, wrapping at the end, and takes the
// first empty slot. When two entries share a home slot the earlier one keeps
// it. Build fails with *OverflowError if an entry finds no empty slot within
// capacity probes and with *DuplicateKeyError if two entries share a key.
func Build(entries []Entry, capacity uint32) (*Table, error) {
	if capacity == 0 {
		return nil, ErrZeroCapacity
	}

	seen := make(map[uint32]int, len(entries))
	for i, e := range entries {
		if j, dup := seen[e.Key]; dup {
			return nil, &DuplicateKeyError{Key: e.Key, First: entries[j].Name, Second: e.Name}
		}
		seen[e.Key] = i
	}

	t := &Table{
		Capacity: capacity,
		Slots:    make([]Slot, capacity),
		Probes:   make([]ProbeRecord, 0, len(entries)),
	}

	for _, e := range entries {
		home := Home(e.Key, capacity)
		placed := false
		for i := uint32(0); i < capacity; i++ {
			slot := t.probe(home, i)
			if t.Slots[slot].Occupied {
				continue
			}
			t.Slots[slot] = Slot{Occupied: true, Key: e.Key, HandlerIdx: e.HandlerIdx, Name: e.Name}
			t.Probes = append(t.Probes, ProbeRecord{
				Name:       e.Name,
				Key:        e.Key,
				HomeSlot:   home,
				SlotIndex:  slot,
				ProbeCount: i,
			})
			placed = true
			break
		}
		if !placed {
			return nil, &OverflowError{Name: e.Name, Key: e.Key, Capacity: capacity, Entries: len(entries)}
		}
	}

	return t, nil
}

// probe returns the i-th slot of the probe sequence starting at home.
// The sum is taken in 64 bits so capacities near 2^32 cannot wrap.
func (t *Table) probe(home, i uint32) uint32 {
	return uint32((uint64(home) + uint64(i)) % uint64(t.Capacity))
}

// Lookup returns the handler index stored for key. probes is the number of
// slots visited, which never exceeds the capacity.
func (t *Table) Lookup(key uint32) (handlerIdx uint32, probes int, ok bool) {
	home := Home(key, t.Capacity)
	for i := uint32(0); i < t.Capacity; i++ {
		s := &t.Slots[t.probe(home, i)]
		probes++
		if !s.Occupied {
			return 0, probes, false
		}
		if s.Key == key {
			return s.HandlerIdx, probes, true
		}
	}
	return 0, probes, false
}

// Len returns the number of occupied slots.
func (t *Table) Len() int {
	return len(t.Probes)
}

// LoadFactor returns occupied slots divided by capacity.
func (t *Table) LoadFactor() float64 {
	return float64(t.Len()) / float64(t.Capacity)
}

// MaxProbe returns the largest displacement of any entry.
func (t *Table) MaxProbe() uint32 {
	var worst uint32
	for _, p := range t.Probes {
		if p.ProbeCount > worst {
			worst = p.ProbeCount
		}
	}
	return worst
}

// HasZeroKey reports whether any entry uses key 0, which generated code
// cannot use as its empty-slot sentinel.
func (t *Table) HasZeroKey() bool {
	for _, p := range t.Probes {
		if p.Key == 0 {
			return true
		}
	}
	return false
}

// Equal reports whether two tables have the same capacity and the same
// key and handler index in every slot. Names are not compared.
func (t *Table) Equal(o *Table) bool {
	if t.Capacity != o.Capacity || len(t.Slots) != len(o.Slots) {
		return false
	}
	for i := range t.Slots {
		a, b := t.Slots[i], o.Slots[i]
		if a.Occupied != b.Occupied {
			return false
		}
		if a.Occupied && (a.Key != b.Key || a.HandlerIdx != b.HandlerIdx) {
			return false
		}
	}
	return true
}
