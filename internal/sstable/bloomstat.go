package sstable

import (
	"fmt"

	"github.com/bits-and-blooms/bloom/v3"
)

// Stats is an offline diagnostic snapshot of a table: its entry count and
// an estimate of the false-positive rate a bloom filter sized for its key
// count would exhibit. This is never consulted by Read; it exists purely
// so an operator tool (cmd/inspect) can report on a table's characteristics
// without affecting the lookup path.
type Stats struct {
	ID               string
	Entries          int64
	FalsePositveRate float64
}

// BuildStats rebuilds a throwaway bloom filter over every key in the table
// and reports its estimated false-positive rate at its configured
// capacity.
func BuildStats(t *SSTable) (Stats, error) {
	n := t.Len()
	filter := bloom.NewWithEstimates(uint(max64(n, 1)), 0.01)

	r, err := t.Reader()
	if err != nil {
		return Stats{}, fmt.Errorf("sstable: stats reader %s: %w", t.id, err)
	}
	defer r.Close()

	for i := int64(0); i < n; i++ {
		k, _, err := r.ReadIndex(i)
		if err != nil {
			return Stats{}, err
		}
		filter.Add(k[:])
	}

	return Stats{
		ID:               t.id,
		Entries:          n,
		FalsePositveRate: filter.EstimateFalsePositiveRate(uint(n)),
	}, nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
