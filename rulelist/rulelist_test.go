package rulelist

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stdblock/stdblock/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testResourcesDir = "../testdata"

func TestStringRuleListScanner(t *testing.T) {
	r1 := `{"p":"a.com","s":[1]}`
	r2 := `{"p":"*.b.org","s":[2,3]}`
	ruleList := &StringRuleList{
		Matcher:   rules.NewMatcher(),
		RulesText: r1 + "\n\n" + r2,
		ID:        1,
	}
	defer ruleList.Close()
	assert.Equal(t, 1, ruleList.GetID())

	scanner := ruleList.NewScanner()

	require.True(t, scanner.Scan())
	f, idx := scanner.Rule()
	require.NotNil(t, f)
	assert.Equal(t, "a.com", f.Pattern())
	assert.Equal(t, 0, idx)

	require.True(t, scanner.Scan())
	f, idx = scanner.Rule()
	require.NotNil(t, f)
	assert.Equal(t, "*.b.org", f.Pattern())
	assert.Equal(t, len(r1)+2, idx)

	// Finish scanning.
	assert.False(t, scanner.Scan())

	f, err := ruleList.RetrieveRule(0)
	require.NoError(t, err)
	assert.Equal(t, "a.com", f.Pattern())

	f, err = ruleList.RetrieveRule(len(r1) + 2)
	require.NoError(t, err)
	assert.Equal(t, "*.b.org", f.Pattern())

	_, err = ruleList.RetrieveRule(-1)
	assert.ErrorIs(t, err, ErrRuleRetrieval)

	_, err = ruleList.RetrieveRule(len(r1) + 1)
	assert.ErrorIs(t, err, ErrRuleRetrieval)
}

func TestStringRuleListScanner_crlf(t *testing.T) {
	r1 := `{"p":"a.com","s":[1]}`
	r2 := `{"p":"*.b.org","s":[2]}`
	ruleList := &StringRuleList{
		Matcher:   rules.NewMatcher(),
		RulesText: r1 + "\r\n" + r2 + "\r\n",
		ID:        1,
	}
	defer ruleList.Close()

	scanner := ruleList.NewScanner()

	require.True(t, scanner.Scan())
	f, idx := scanner.Rule()
	assert.Equal(t, "a.com", f.Pattern())
	assert.Equal(t, 0, idx)

	require.True(t, scanner.Scan())
	f, idx = scanner.Rule()
	assert.Equal(t, "*.b.org", f.Pattern())
	assert.Equal(t, len(r1)+2, idx)

	assert.False(t, scanner.Scan())

	// The offset reported by the scanner retrieves the same rule.
	f, err := ruleList.RetrieveRule(len(r1) + 2)
	require.NoError(t, err)
	assert.Equal(t, "*.b.org", f.Pattern())
}

func TestRuleScanner_skipsDamagedRules(t *testing.T) {
	rulesText := strings.Join([]string{
		`{"p":"a.com","s":[1]}`,
		`{"p":"b.com"`,
		`not json`,
		`{"s":[4]}`,
		`{"p":"c.com","s":[5]}`,
	}, "\n")

	scanner := NewRuleScanner(strings.NewReader(rulesText), 1, rules.NewMatcher())

	var patterns []string
	for scanner.Scan() {
		r, _ := scanner.Rule()
		patterns = append(patterns, r.Pattern())
	}

	assert.Equal(t, []string{"a.com", "c.com"}, patterns)
}

func TestNewArrayRuleList(t *testing.T) {
	data := []byte(`[
		{"p": "a.com", "s": [3, 1]},
		{"p": "*.b.org", "s": [2]}
	]`)

	ruleList, err := NewArrayRuleList(1, data, rules.NewMatcher())
	require.NoError(t, err)

	scanner := ruleList.NewScanner()

	require.True(t, scanner.Scan())
	f, _ := scanner.Rule()
	assert.Equal(t, "a.com", f.Pattern())
	assert.Equal(t, []int{3, 1}, f.StandardIDs())

	require.True(t, scanner.Scan())
	f, _ = scanner.Rule()
	assert.Equal(t, "*.b.org", f.Pattern())

	assert.False(t, scanner.Scan())

	_, err = NewArrayRuleList(1, []byte(`{"p": "a.com"}`), rules.NewMatcher())
	assert.Error(t, err)
}

func TestNewFileRuleList(t *testing.T) {
	m := rules.NewMatcher()

	ruleList, err := NewFileRuleList(1, filepath.Join(testResourcesDir, "test_rule_list.json"), m)
	require.NoError(t, err)
	defer ruleList.Close()

	scanner := ruleList.NewScanner()

	var patterns []string
	for scanner.Scan() {
		r, _ := scanner.Rule()
		patterns = append(patterns, r.Pattern())
	}

	assert.Equal(t, []string{"*.example.com", "!cdn.example.com", "tracker.org"}, patterns)

	_, err = NewFileRuleList(1, filepath.Join(testResourcesDir, "does_not_exist.json"), m)
	assert.Error(t, err)
}

func TestMarshalRuleList(t *testing.T) {
	m := rules.NewMatcher()

	r1, err := rules.NewBlockRule(m, "a.com", []int{3, 1, 2})
	require.NoError(t, err)
	r2, err := rules.NewBlockRule(m, "*.b.org", []int{10})
	require.NoError(t, err)

	data, err := MarshalRuleList([]*rules.BlockRule{r1, r2})
	require.NoError(t, err)
	assert.Equal(t, `[{"p":"a.com","s":[1,2,3]},{"p":"*.b.org","s":[10]}]`, string(data))

	// The output round-trips through the array rule list.
	ruleList, err := NewArrayRuleList(1, data, m)
	require.NoError(t, err)

	scanner := ruleList.NewScanner()
	require.True(t, scanner.Scan())
	f, _ := scanner.Rule()
	assert.Equal(t, []int{1, 2, 3}, f.StandardIDs())
}
