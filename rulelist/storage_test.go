package rulelist

import (
	"testing"

	"github.com/stdblock/stdblock/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, m *rules.Matcher) *RuleStorage {
	t.Helper()

	list1 := &StringRuleList{
		Matcher:   m,
		RulesText: `{"p":"a.com","s":[1]}` + "\n" + `{"p":"*.b.org","s":[2]}`,
		ID:        1,
	}
	list2 := &StringRuleList{
		Matcher:   m,
		RulesText: `{"p":"!c.net","s":[3]}`,
		ID:        2,
	}

	storage, err := NewRuleStorage([]RuleList{list1, list2})
	require.NoError(t, err)

	return storage
}

func TestRuleStorage(t *testing.T) {
	m := rules.NewMatcher()
	storage := newTestStorage(t, m)
	defer storage.Close()

	scanner := storage.NewRuleStorageScanner()

	var indexes []int64
	var patterns []string
	for scanner.Scan() {
		r, idx := scanner.Rule()
		indexes = append(indexes, idx)
		patterns = append(patterns, r.Pattern())
	}

	assert.Equal(t, []string{"a.com", "*.b.org", "!c.net"}, patterns)
	require.Len(t, indexes, 3)

	// List 1, offset 0; list 1, offset 22; list 2, offset 0.
	assert.Equal(t, int64(1)<<32, indexes[0])
	assert.Equal(t, int64(1)<<32|22, indexes[1])
	assert.Equal(t, int64(2)<<32, indexes[2])

	assert.Equal(t, 0, storage.GetCacheSize())

	r, err := storage.RetrieveRule(indexes[1])
	require.NoError(t, err)
	assert.Equal(t, "*.b.org", r.Pattern())
	assert.Equal(t, 1, storage.GetCacheSize())

	// The second retrieval hits the cache and returns the same instance.
	r2, err := storage.RetrieveRule(indexes[1])
	require.NoError(t, err)
	assert.Same(t, r, r2)
	assert.Equal(t, 1, storage.GetCacheSize())

	assert.Nil(t, storage.MustRetrieveRule(int64(42)<<32))
	assert.NotNil(t, storage.MustRetrieveRule(indexes[2]))
}

func TestNewRuleStorage_duplicateID(t *testing.T) {
	m := rules.NewMatcher()

	list1 := &StringRuleList{Matcher: m, ID: 1}
	list2 := &StringRuleList{Matcher: m, ID: 1}

	_, err := NewRuleStorage([]RuleList{list1, list2})
	assert.Error(t, err)
}
