package lookup

import (
	"strings"
	"testing"

	"github.com/stdblock/stdblock/rulelist"
	"github.com/stdblock/stdblock/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, rulesText string) *rulelist.RuleStorage {
	t.Helper()

	list := &rulelist.StringRuleList{
		Matcher:   rules.NewMatcher(),
		RulesText: rulesText,
		ID:        1,
	}

	storage, err := rulelist.NewRuleStorage([]rulelist.RuleList{list})
	require.NoError(t, err)

	return storage
}

func TestLookupDomain(t *testing.T) {
	testCases := []struct {
		name    string
		pattern string
		want    string
		wantOK  bool
	}{{
		name:    "plain_host",
		pattern: "Example.COM",
		want:    "example.com",
		wantOK:  true,
	}, {
		name:    "subdomain_wildcard",
		pattern: "*.example.com",
		want:    "example.com",
		wantOK:  true,
	}, {
		name:    "negated",
		pattern: "!example.com",
		wantOK:  false,
	}, {
		name:    "inner_wildcard",
		pattern: "ex*le.com",
		wantOK:  false,
	}, {
		name:    "wildcard_after_prefix",
		pattern: "*.ex*le.com",
		wantOK:  false,
	}, {
		name:    "bare_wildcard",
		pattern: "*.",
		wantOK:  false,
	}, {
		name:    "single_label",
		pattern: "localhost",
		wantOK:  false,
	}, {
		name:    "not_a_domain",
		pattern: "local_host.example",
		wantOK:  false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			domain, ok := lookupDomain(tc.pattern)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, domain)
		})
	}
}

func TestDomainsTable(t *testing.T) {
	rulesText := strings.Join([]string{
		`{"p":"example.com","s":[1]}`,
		`{"p":"*.example.com","s":[2]}`,
		`{"p":"tracker.org","s":[3]}`,
	}, "\n")
	storage := newTestStorage(t, rulesText)
	defer storage.Close()

	table := NewDomainsTable(storage)

	scanner := storage.NewRuleStorageScanner()
	for scanner.Scan() {
		r, idx := scanner.Rule()
		assert.True(t, table.TryAdd(r, idx))
	}

	result := table.MatchAll("example.com")
	require.Len(t, result, 2)
	assert.Equal(t, "example.com", result[0].Pattern())
	assert.Equal(t, "*.example.com", result[1].Pattern())

	result = table.MatchAll("deep.sub.example.com")
	require.Len(t, result, 1)
	assert.Equal(t, "*.example.com", result[0].Pattern())

	assert.Empty(t, table.MatchAll("example.org"))
	assert.Empty(t, table.MatchAll("badexample.com"))

	// Negated rules are not eligible.
	m := rules.NewMatcher()
	negated, err := rules.NewBlockRule(m, "!example.com", []int{4})
	require.NoError(t, err)
	assert.False(t, table.TryAdd(negated, 0))
}

func TestSeqScanTable(t *testing.T) {
	m := rules.NewMatcher()
	table := &SeqScanTable{}

	negated, err := rules.NewBlockRule(m, "!*.example.com", []int{1})
	require.NoError(t, err)
	wildcard, err := rules.NewBlockRule(m, "*tracker*", []int{2})
	require.NoError(t, err)

	assert.True(t, table.TryAdd(negated, 0))
	assert.True(t, table.TryAdd(wildcard, 1))

	// Duplicate patterns are not added twice.
	assert.False(t, table.TryAdd(negated, 2))

	result := table.MatchAll("ads.tracker.org")
	require.Len(t, result, 2)

	result = table.MatchAll("www.example.com")
	require.Len(t, result, 0)

	result = table.MatchAll("example.org")
	require.Len(t, result, 1)
	assert.Equal(t, "!*.example.com", result[0].Pattern())
}
