// Package stdblock implements the rule-matching engine that decides, per
// domain, which web platform standards should be disabled.
package stdblock

import (
	"strings"

	"github.com/stdblock/stdblock/hostutil"
	"github.com/stdblock/stdblock/lookup"
	"github.com/stdblock/stdblock/rulelist"
	"github.com/stdblock/stdblock/rules"
	"golang.org/x/exp/slices"
)

// BlockEngine is the engine that matches hostnames against block rules and
// unions the matching rules' standard identifiers.
type BlockEngine struct {
	// RulesCount is the count of rules loaded into the engine.
	RulesCount int

	ruleStorage *rulelist.RuleStorage

	// lookupTables are the lookup tables in the order they are checked.
	// Every rule lives in exactly one of them.
	lookupTables []lookup.Table
}

// NewBlockEngine scans the rule storage and returns a BlockEngine built from
// its rules.
func NewBlockEngine(s *rulelist.RuleStorage) (d *BlockEngine) {
	d = &BlockEngine{
		ruleStorage: s,
		lookupTables: []lookup.Table{
			lookup.NewDomainsTable(s),
			&lookup.SeqScanTable{},
		},
	}

	scanner := s.NewRuleStorageScanner()
	for scanner.Scan() {
		r, idx := scanner.Rule()
		d.addRule(r, idx)
	}

	return d
}

// BlockResult is the value returned by the matching functions.
type BlockResult struct {
	// Rules are all the rules matching the hostname.
	Rules []*rules.BlockRule

	// StandardIDs is the union of the matching rules' standard identifiers,
	// sorted in ascending order with duplicates removed.
	StandardIDs []int
}

// Match finds all rules matching the specified hostname.  The return
// parameter matched is true if at least one rule matched.
func (d *BlockEngine) Match(hostname string) (res *BlockResult, matched bool) {
	res = &BlockResult{}

	if hostname == "" {
		return res, false
	}

	host := strings.ToLower(hostname)
	for _, table := range d.lookupTables {
		res.Rules = append(res.Rules, table.MatchAll(host)...)
	}

	if len(res.Rules) == 0 {
		return res, false
	}

	for _, r := range res.Rules {
		res.StandardIDs = append(res.StandardIDs, r.StandardIDs()...)
	}
	slices.Sort(res.StandardIDs)
	res.StandardIDs = slices.Compact(res.StandardIDs)

	return res, true
}

// MatchRequest finds all rules matching the request's hostname.
func (d *BlockEngine) MatchRequest(r *rules.Request) (res *BlockResult, matched bool) {
	return d.Match(r.Hostname)
}

// MatchURL extracts the host component of the URL and finds all rules
// matching it.  Malformed URLs never match.
func (d *BlockEngine) MatchURL(url string) (res *BlockResult, matched bool) {
	return d.Match(hostutil.ExtractHostname(url))
}

// addRule puts the rule into the first lookup table that accepts it.
func (d *BlockEngine) addRule(r *rules.BlockRule, storageIdx int64) {
	for _, table := range d.lookupTables {
		if table.TryAdd(r, storageIdx) {
			d.RulesCount++

			return
		}
	}
}
