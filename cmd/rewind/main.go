// Command rewind plans and runs checkpointed bidirectional walks.
//
// Usage:
//
//	rewind plan --n 1000 --k 10
//	rewind walk --n 100000 --k 16 --deamortize --walkers 4
//	rewind tables list --db tables.db
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
