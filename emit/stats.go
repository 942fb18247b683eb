package emit

import (
	"fmt"
	"io"

	"github.com/chazu/dispatchgen/table"
)

// Stats summarises a built table. It is reported on the diagnostics stream
// and never written into generated source.
type Stats struct {
	Entries     int
	Capacity    uint32
	LoadFactor  float64
	MaxProbe    uint32
	Fingerprint string
}

// StatsOf computes the statistics of t.
func StatsOf(t *table.Table) Stats {
	return Stats{
		Entries:     t.Len(),
		Capacity:    t.Capacity,
		LoadFactor:  t.LoadFactor(),
		MaxProbe:    t.MaxProbe(),
		Fingerprint: table.FingerprintHex(t),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("%d entries, table size %d, load factor %.1f%%, max probes %d, fingerprint %s",
		s.Entries, s.Capacity, s.LoadFactor*100, s.MaxProbe, s.Fingerprint)
}

// WriteStats writes the one-line diagnostics report.
func WriteStats(w io.Writer, s Stats) error {
	_, err := fmt.Fprintf(w, "// Stats: %s\n", s)
	return err
}
