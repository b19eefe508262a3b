package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockRule_matching(t *testing.T) {
	m := NewMatcher()

	r, err := NewBlockRule(m, "*.example.com", []int{12, 45, 100})
	require.NoError(t, err)

	assert.Equal(t, "*.example.com", r.Pattern())
	assert.True(t, r.IsMatchingHost("example.com"))
	assert.True(t, r.IsMatchingHost("www.example.com"))
	assert.False(t, r.IsMatchingHost("example.org"))

	assert.True(t, r.IsMatchingURL("https://www.example.com/page"))
	assert.False(t, r.IsMatchingURL("https://example.org/"))
	assert.False(t, r.IsMatchingURL("garbage"))
}

func TestBlockRule_standardIDs(t *testing.T) {
	m := NewMatcher()

	ids := []int{3, 1, 2}
	r, err := NewBlockRule(m, "a.com", ids)
	require.NoError(t, err)

	// The rule copies the caller's slice.
	ids[0] = 99
	assert.Equal(t, []int{3, 1, 2}, r.StandardIDs())

	// Mutating the returned copy does not alter the rule.
	got := r.StandardIDs()
	got[0] = 99
	assert.Equal(t, []int{3, 1, 2}, r.StandardIDs())

	// SetStandardIDs replaces the set wholesale and keeps duplicates and
	// negative values as-is: validation is the caller's responsibility.
	r.SetStandardIDs([]int{5, 5, -1})
	assert.Equal(t, []int{5, 5, -1}, r.StandardIDs())
}

func TestBlockRule_data(t *testing.T) {
	m := NewMatcher()

	r, err := NewBlockRuleFromData(m, &RuleData{Pattern: "a.com", StandardIDs: []int{3, 1, 2}})
	require.NoError(t, err)

	data := r.Data()
	assert.Equal(t, "a.com", data.Pattern)
	assert.Equal(t, []int{1, 2, 3}, data.StandardIDs)

	// Data sorts a copy, the rule itself keeps insertion order.
	assert.Equal(t, []int{3, 1, 2}, r.StandardIDs())

	assert.Equal(t, `{"p":"a.com","s":[1,2,3]}`, r.Serialize())
}

func TestBlockRule_roundTrip(t *testing.T) {
	m := NewMatcher()

	r, err := NewBlockRule(m, "!*.example.com", []int{100, 12, 45})
	require.NoError(t, err)

	r2, err := ParseBlockRule(m, r.Serialize())
	require.NoError(t, err)

	assert.Equal(t, r.Pattern(), r2.Pattern())
	assert.ElementsMatch(t, r.StandardIDs(), r2.StandardIDs())
}

func TestParseBlockRule_errors(t *testing.T) {
	m := NewMatcher()

	testCases := []struct {
		name      string
		text      string
		wantParse bool
		wantField string
	}{{
		name:      "malformed_json",
		text:      `{"p": "a.com",`,
		wantParse: true,
	}, {
		name:      "not_json_at_all",
		text:      `hello`,
		wantParse: true,
	}, {
		name:      "missing_s",
		text:      `{"p": "a.com"}`,
		wantField: "s",
	}, {
		name:      "missing_p",
		text:      `{"s": [1, 2]}`,
		wantField: "p",
	}, {
		name:      "s_wrong_type",
		text:      `{"p": "a.com", "s": "nope"}`,
		wantField: "s",
	}, {
		name:      "s_not_numbers",
		text:      `{"p": "a.com", "s": [1, "two"]}`,
		wantField: "s",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseBlockRule(m, tc.text)
			require.Error(t, err)

			if tc.wantParse {
				var parseErr *ParseError
				assert.ErrorAs(t, err, &parseErr)

				return
			}

			var formatErr *FormatError
			require.ErrorAs(t, err, &formatErr)
			assert.Contains(t, formatErr.Field, tc.wantField)
		})
	}
}

func TestParseBlockRule_wrongDocumentShape(t *testing.T) {
	m := NewMatcher()

	// Well-formed JSON of the wrong top-level shape names the rule object,
	// not an empty field.
	_, err := ParseBlockRule(m, `[1, 2]`)

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Empty(t, formatErr.Field)
	assert.Equal(t, "bad rule data: unexpected type array for the rule object", err.Error())
}

func TestParseBlockRule_emptySet(t *testing.T) {
	m := NewMatcher()

	// An explicitly empty set is valid, unlike a missing one.
	r, err := ParseBlockRule(m, `{"p": "a.com", "s": []}`)
	require.NoError(t, err)
	assert.Empty(t, r.StandardIDs())
	assert.Equal(t, `{"p":"a.com","s":[]}`, r.Serialize())
}
