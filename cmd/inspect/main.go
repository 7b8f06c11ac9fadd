// Command inspect prints a read-only diagnostic report of a tree's
// manifest: the active buffer id, any pending builders, and per-table
// entry counts with an estimated bloom-filter false-positive rate. It
// never opens the tree for writing and never starts a compactor.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mileswatson/locker-db/internal/lsm"
)

func main() {
	flag.Parse()
	dir := flag.Arg(0)
	if dir == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect <tree-dir>")
		os.Exit(2)
	}

	report, err := lsm.Inspect(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("buffer:   %s\n", report.Buffer)
	fmt.Printf("builders: %d pending\n", len(report.Builders))
	for _, id := range report.Builders {
		fmt.Printf("  - %s\n", id)
	}
	fmt.Printf("tables:   %d\n", len(report.Tables))
	for _, tbl := range report.Tables {
		fmt.Printf("  - %s  entries=%d  est_fp_rate=%.4f\n", tbl.ID, tbl.Entries, tbl.FalsePositiveRate)
	}
}
