package lsm

import (
	"fmt"
	"path/filepath"

	"github.com/mileswatson/locker-db/internal/sstable"
)

// TableReport is one table's diagnostic snapshot, for offline inspection
// only — never consulted by Get.
type TableReport struct {
	ID                string
	Entries           int64
	FalsePositiveRate float64
}

// Report is a read-only snapshot of a tree's on-disk manifest, produced
// without starting its background compactor. Intended for an operator
// tool (cmd/inspect), not for use by a running process.
type Report struct {
	Buffer   string
	Builders []string
	Tables   []TableReport
}

// Inspect reads the manifest at dir and reports on every table it
// references, without opening a live Tree or touching any file the
// manifest doesn't name.
func Inspect(dir string) (Report, error) {
	state, existed, err := loadState(dir)
	if err != nil {
		return Report{}, err
	}
	if !existed {
		return Report{}, fmt.Errorf("lsm: inspect %s: no manifest found", dir)
	}

	tablesDir := filepath.Join(dir, "tables")
	tables := make([]TableReport, 0, len(state.Tables))
	for _, id := range state.Tables {
		tbl, err := sstable.Open(tablesDir, id)
		if err != nil {
			return Report{}, err
		}
		stats, err := sstable.BuildStats(tbl)
		if err != nil {
			return Report{}, err
		}
		tables = append(tables, TableReport{
			ID:                stats.ID,
			Entries:           stats.Entries,
			FalsePositiveRate: stats.FalsePositveRate,
		})
	}

	return Report{Buffer: state.Buffer, Builders: state.Builders, Tables: tables}, nil
}
