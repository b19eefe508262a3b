package lookup

import (
	"strings"

	"github.com/stdblock/stdblock/hostutil"
	"github.com/stdblock/stdblock/rulelist"
	"github.com/stdblock/stdblock/rules"
)

// DomainsTable is a lookup table for the rules whose pattern is either a
// plain hostname or a "*." subdomain wildcard.  Such rules can be found by
// hashing the domains of the hostname being checked, which makes the lookup
// independent of the total number of rules.
type DomainsTable struct {
	// Storage for the block rules.
	ruleStorage *rulelist.RuleStorage

	// Domain lookup table.  Key is the domain name hash.
	domainsLookupTable map[uint32][]int64
}

// type check
var _ Table = (*DomainsTable)(nil)

// NewDomainsTable creates a new instance of the DomainsTable.
func NewDomainsTable(rs *rulelist.RuleStorage) (d *DomainsTable) {
	return &DomainsTable{
		ruleStorage:        rs,
		domainsLookupTable: map[uint32][]int64{},
	}
}

// TryAdd implements the Table interface for *DomainsTable.
func (d *DomainsTable) TryAdd(r *rules.BlockRule, storageIdx int64) (ok bool) {
	domain, ok := lookupDomain(r.Pattern())
	if !ok {
		return false
	}

	hash := hostutil.FastHash(domain)
	d.domainsLookupTable[hash] = append(d.domainsLookupTable[hash], storageIdx)

	return true
}

// MatchAll implements the Table interface for *DomainsTable.
func (d *DomainsTable) MatchAll(host string) (result []*rules.BlockRule) {
	for _, domain := range getSubdomains(host) {
		hash := hostutil.FastHash(domain)
		matchingRules, ok := d.domainsLookupTable[hash]
		if !ok {
			continue
		}

		for _, ruleIdx := range matchingRules {
			rule := d.ruleStorage.MustRetrieveRule(ruleIdx)
			if rule != nil && rule.IsMatchingHost(host) {
				result = append(result, rule)
			}
		}
	}

	return result
}

// lookupDomain returns the domain the rule's pattern should be indexed under,
// and false if the pattern is not eligible for the domains table.  Eligible
// patterns are valid domain names, plain or behind a "*.<domain>" subdomain
// wildcard; negated patterns match almost every hostname and cannot be
// indexed by domain.
func lookupDomain(pattern string) (domain string, ok bool) {
	if strings.HasPrefix(pattern, "!") {
		return "", false
	}

	if rest, found := strings.CutPrefix(pattern, "*."); found {
		pattern = rest
	}

	if !hostutil.IsDomainName(pattern) {
		return "", false
	}

	return strings.ToLower(pattern), true
}

// getSubdomains splits the hostname and returns all its subdomains,
// including the hostname itself.
func getSubdomains(hostname string) (subdomains []string) {
	parts := strings.Split(hostname, ".")
	domain := ""
	for i := len(parts) - 1; i >= 0; i-- {
		if domain == "" {
			domain = parts[i]
		} else {
			domain = parts[i] + "." + domain
		}
		subdomains = append(subdomains, domain)
	}
	return subdomains
}
