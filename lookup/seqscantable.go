package lookup

import (
	"github.com/stdblock/stdblock/rules"
)

// SeqScanTable is basically just a list of block rules that are scanned
// sequentially.  Here we put the rules that are not eligible for other
// tables: negated patterns and patterns with wildcards in arbitrary places.
type SeqScanTable struct {
	rules []*rules.BlockRule
}

// type check
var _ Table = (*SeqScanTable)(nil)

// TryAdd implements the Table interface for *SeqScanTable.
func (s *SeqScanTable) TryAdd(r *rules.BlockRule, _ int64) (ok bool) {
	if !containsRule(s.rules, r) {
		s.rules = append(s.rules, r)
		return true
	}
	return false
}

// MatchAll implements the Table interface for *SeqScanTable.
func (s *SeqScanTable) MatchAll(host string) (result []*rules.BlockRule) {
	for _, rule := range s.rules {
		if rule.IsMatchingHost(host) {
			result = append(result, rule)
		}
	}
	return result
}

// containsRule is a helper function that checks if the specified rule is
// already in the array.
func containsRule(list []*rules.BlockRule, r *rules.BlockRule) (ok bool) {
	for _, rule := range list {
		if rule.Pattern() == r.Pattern() {
			return true
		}
	}

	return false
}
