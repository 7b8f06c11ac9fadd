package sstable

import (
	"fmt"

	"github.com/mileswatson/locker-db/internal/fileid"
)

// Merge performs a two-cursor merge of young (the nearer-to-head table,
// containing newer writes for shared keys) and old, producing one new
// table under a fresh id. Young wins on key ties; tombstones are always
// preserved, never dropped at this layer.
func Merge(young, old *SSTable, tablesDir string) (*SSTable, error) {
	yr, err := young.Reader()
	if err != nil {
		return nil, fmt.Errorf("sstable: merge open young reader: %w", err)
	}
	defer yr.Close()

	or, err := old.Reader()
	if err != nil {
		return nil, fmt.Errorf("sstable: merge open old reader: %w", err)
	}
	defer or.Close()

	var iY, iO int64
	nY, nO := yr.Len(), or.Len()
	merged := make([]sortedEntry, 0, nY+nO)

	for iY < nY || iO < nO {
		switch {
		case iY >= nY:
			k, v, err := or.ReadIndex(iO)
			if err != nil {
				return nil, err
			}
			merged = append(merged, sortedEntry{key: k, value: v})
			iO++
		case iO >= nO:
			k, v, err := yr.ReadIndex(iY)
			if err != nil {
				return nil, err
			}
			merged = append(merged, sortedEntry{key: k, value: v})
			iY++
		default:
			ky, vy, err := yr.ReadIndex(iY)
			if err != nil {
				return nil, err
			}
			ko, vo, err := or.ReadIndex(iO)
			if err != nil {
				return nil, err
			}
			switch ky.Compare(ko) {
			case -1:
				merged = append(merged, sortedEntry{key: ky, value: vy})
				iY++
			case 1:
				merged = append(merged, sortedEntry{key: ko, value: vo})
				iO++
			default: // equal: young wins, advance both cursors.
				merged = append(merged, sortedEntry{key: ky, value: vy})
				iY++
				iO++
			}
		}
	}

	return writeTable(tablesDir, fileid.New(), merged)
}
