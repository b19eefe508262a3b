package rules

import (
	"encoding/json"
	"errors"

	"github.com/stdblock/stdblock/hostutil"
	"golang.org/x/exp/slices"
)

// RuleData is the persisted form of a block rule:
//
//	{"p": "*.example.com", "s": [12, 45, 100]}
//
// "p" is the match pattern and "s" is the array of standard identifiers,
// serialized sorted in ascending order.
type RuleData struct {
	Pattern     string `json:"p"`
	StandardIDs []int  `json:"s"`
}

// BlockRule binds one match pattern to the set of standard identifiers that
// must be blocked when the pattern matches.  The pattern is immutable after
// construction; the standard-ID set can be replaced wholesale with
// SetStandardIDs.
type BlockRule struct {
	pattern *CompiledPattern

	// standardIDs is the rule's own copy, never aliased with the caller's
	// slice.  It is kept in the order the caller supplied it; serialization
	// sorts a copy.
	standardIDs []int
}

// NewBlockRule compiles the pattern with m and creates a new rule with a copy
// of standardIDs.  The set is stored as-is: no deduplication and no sign
// validation, the caller is trusted.
func NewBlockRule(m *Matcher, pattern string, standardIDs []int) (r *BlockRule, err error) {
	p, err := m.Compile(pattern)
	if err != nil {
		return nil, err
	}

	return &BlockRule{
		pattern:     p,
		standardIDs: slices.Clone(standardIDs),
	}, nil
}

// NewBlockRuleFromData creates a rule from its persisted form.  It returns a
// *FormatError if a required field is absent.
func NewBlockRuleFromData(m *Matcher, data *RuleData) (r *BlockRule, err error) {
	if data.Pattern == "" {
		return nil, &FormatError{Field: "p", msg: "missing or empty"}
	}

	if data.StandardIDs == nil {
		return nil, &FormatError{Field: "s", msg: "missing"}
	}

	return NewBlockRule(m, data.Pattern, data.StandardIDs)
}

// ParseBlockRule parses the serialized JSON text of one rule.  Malformed JSON
// yields a *ParseError, a field of the wrong type yields a *FormatError.
func ParseBlockRule(m *Matcher, text string) (r *BlockRule, err error) {
	data := &RuleData{}
	err = json.Unmarshal([]byte(text), data)
	if err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if typeErr.Field == "" {
				return nil, &FormatError{msg: "unexpected type " + typeErr.Value + " for the rule object"}
			}

			return nil, &FormatError{Field: typeErr.Field, msg: "unexpected type " + typeErr.Value}
		}

		return nil, &ParseError{Err: err}
	}

	return NewBlockRuleFromData(m, data)
}

// Text returns the original pattern text of the rule.
func (r *BlockRule) Text() string {
	return r.pattern.Text()
}

// String returns the serialized rule text.
func (r *BlockRule) String() string {
	return r.Serialize()
}

// Pattern returns the rule's match pattern.
func (r *BlockRule) Pattern() string {
	return r.pattern.Text()
}

// StandardIDs returns a copy of the rule's standard identifiers.  Mutating
// the returned slice does not change the rule.
func (r *BlockRule) StandardIDs() (ids []int) {
	return slices.Clone(r.standardIDs)
}

// SetStandardIDs replaces the rule's standard identifiers wholesale with a
// copy of ids.  Like NewBlockRule, it performs no validation.
func (r *BlockRule) SetStandardIDs(ids []int) {
	r.standardIDs = slices.Clone(ids)
}

// IsMatchingHost reports whether the rule's pattern matches the hostname.
func (r *BlockRule) IsMatchingHost(host string) bool {
	return r.pattern.MatchHost(host)
}

// IsMatchingURL reports whether the rule's pattern matches the host component
// of the URL.  Malformed URLs never match.
func (r *BlockRule) IsMatchingURL(url string) bool {
	return r.pattern.MatchHost(hostutil.ExtractHostname(url))
}

// Data returns the persisted form of the rule.  The standard identifiers are
// sorted in ascending order so that logically identical rules serialize to
// byte-identical output regardless of insertion order.
func (r *BlockRule) Data() (data *RuleData) {
	ids := slices.Clone(r.standardIDs)
	if ids == nil {
		ids = []int{}
	}
	slices.Sort(ids)

	return &RuleData{
		Pattern:     r.pattern.Text(),
		StandardIDs: ids,
	}
}

// Serialize returns the JSON text encoding of the rule's data.
func (r *BlockRule) Serialize() string {
	// Marshaling a RuleData cannot fail: it is a string and a slice of ints.
	text, _ := json.Marshal(r.Data())

	return string(text)
}
