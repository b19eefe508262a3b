// Package rulelist provides rule lists and the rule storage: the persistence
// side of the blocking engine.  Rules are kept in their serialized JSON form
// and deserialized lazily, only when the engine actually needs them.
package rulelist

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/stdblock/stdblock/rules"
)

// ErrRuleRetrieval signals that the rule cannot be retrieved by the index.
const ErrRuleRetrieval errors.Error = "cannot retrieve the rule"

// RuleList represents a set of serialized block rules.
type RuleList interface {
	// GetID returns the rule list identifier.
	GetID() int

	// NewScanner creates a new scanner that reads the list contents.
	NewScanner() *RuleScanner

	// RetrieveRule retrieves a rule by its index in the list.
	RetrieveRule(ruleIdx int) (*rules.BlockRule, error)

	// Close closes the rule list.
	Close() error
}

// StringRuleList represents a string-based rule list: one serialized rule per
// line.  The rule index is the byte offset of the rule's line.
type StringRuleList struct {
	// Matcher is used to compile the rules' patterns.
	Matcher *rules.Matcher

	// RulesText is a string with the serialized rules, one per line.
	RulesText string

	// ID is the rule list identifier.
	ID int
}

// type check
var _ RuleList = (*StringRuleList)(nil)

// GetID returns the rule list identifier.
func (l *StringRuleList) GetID() int {
	return l.ID
}

// NewScanner creates a new scanner that reads the list contents.
func (l *StringRuleList) NewScanner() *RuleScanner {
	return NewRuleScanner(strings.NewReader(l.RulesText), l.ID, l.Matcher)
}

// RetrieveRule deserializes the rule starting at the specified byte offset.
func (l *StringRuleList) RetrieveRule(ruleIdx int) (r *rules.BlockRule, err error) {
	if ruleIdx < 0 || ruleIdx >= len(l.RulesText) {
		return nil, ErrRuleRetrieval
	}

	endOfLine := strings.IndexByte(l.RulesText[ruleIdx:], '\n')
	if endOfLine == -1 {
		endOfLine = len(l.RulesText)
	} else {
		endOfLine += ruleIdx
	}

	line := strings.TrimSpace(l.RulesText[ruleIdx:endOfLine])
	if line == "" {
		return nil, ErrRuleRetrieval
	}

	return rules.ParseBlockRule(l.Matcher, line)
}

// Close implements the RuleList interface.  It is a no-op for string lists.
func (l *StringRuleList) Close() error {
	return nil
}

// NewArrayRuleList creates a rule list from the JSON-array wire format used
// by the settings storage:
//
//	[{"p": "*.example.com", "s": [12, 45]}, …]
//
// The array elements are re-encoded compactly one per line, so the result
// behaves like any other string rule list.
func NewArrayRuleList(id int, data []byte, m *rules.Matcher) (l *StringRuleList, err error) {
	var elems []json.RawMessage
	err = json.Unmarshal(data, &elems)
	if err != nil {
		return nil, errors.Annotate(err, "parsing rule array: %w")
	}

	lines := make([]string, 0, len(elems))
	for _, elem := range elems {
		buf := &bytes.Buffer{}
		err = json.Compact(buf, elem)
		if err != nil {
			return nil, errors.Annotate(err, "compacting rule: %w")
		}

		lines = append(lines, buf.String())
	}

	return &StringRuleList{
		Matcher:   m,
		RulesText: strings.Join(lines, "\n"),
		ID:        id,
	}, nil
}

// NewFileRuleList creates a rule list from the contents of the file at path.
// A file that starts with "[" is treated as the JSON-array wire format,
// anything else as one serialized rule per line.
func NewFileRuleList(id int, path string, m *rules.Matcher) (l *StringRuleList, err error) {
	// nolint: gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "reading rule list: %w")
	}

	if text := bytes.TrimSpace(data); len(text) > 0 && text[0] == '[' {
		return NewArrayRuleList(id, text, m)
	}

	return &StringRuleList{
		Matcher:   m,
		RulesText: string(data),
		ID:        id,
	}, nil
}

// MarshalRuleList serializes rules back to the JSON-array wire format.  The
// output is deterministic: each rule's standard identifiers are serialized
// sorted in ascending order.
func MarshalRuleList(list []*rules.BlockRule) (data []byte, err error) {
	datas := make([]*rules.RuleData, 0, len(list))
	for _, r := range list {
		datas = append(datas, r.Data())
	}

	return json.Marshal(datas)
}
