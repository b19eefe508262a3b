// Package lookup implements the lookup tables that the blocking engine uses
// to speed up the rules search.
package lookup

import "github.com/stdblock/stdblock/rules"

// Table is a lookup table for block rules.
type Table interface {
	// TryAdd attempts to add the rule to the table.  It returns false if the
	// rule is not eligible for this table.
	TryAdd(r *rules.BlockRule, storageIdx int64) (ok bool)

	// MatchAll returns all rules matching the hostname.
	MatchAll(host string) (result []*rules.BlockRule)
}
