package rulelist

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/stdblock/stdblock/rules"
)

// RuleScanner implements an interface similar to bufio.Scanner for reading a
// list of serialized rules.  Blank lines are skipped; lines that cannot be
// deserialized are logged and skipped so that one damaged rule does not take
// the whole list down.
type RuleScanner struct {
	scanner *bufio.Scanner
	matcher *rules.Matcher

	// listID is the identifier of the rule list being scanned.
	listID int

	// currentRule is the most recently deserialized rule.
	currentRule *rules.BlockRule

	// currentRuleIdx is the byte offset of the current rule's line.
	currentRuleIdx int

	// currentPos is the byte offset of the next line to read.
	currentPos int
}

// NewRuleScanner creates a new rule scanner that reads the serialized rules
// from reader, one rule per line.
func NewRuleScanner(reader io.Reader, listID int, m *rules.Matcher) *RuleScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Split(scanLinesKeepCR)

	return &RuleScanner{
		scanner: scanner,
		matcher: m,
		listID:  listID,
	}
}

// scanLinesKeepCR is like bufio.ScanLines but keeps the trailing carriage
// return in the token.  The scanner counts byte offsets from the token
// lengths, and dropping the "\r" of CRLF input would make every offset after
// the first line point one byte short of the actual rule.
func scanLinesKeepCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}

// Scan advances the scanner to the next valid rule.  It returns false when
// the scan stops, either by reaching the end of the input or an error.
func (s *RuleScanner) Scan() bool {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		lineIdx := s.currentPos
		s.currentPos += len(line) + 1

		line = strings.TrimSuffix(line, "\r")
		if isBlank(line) {
			continue
		}

		rule, err := rules.ParseBlockRule(s.matcher, line)
		if err != nil {
			slog.Debug(
				"skipping damaged rule",
				"list_id", s.listID,
				"line_idx", lineIdx,
				slogutil.KeyError, err,
			)

			continue
		}

		s.currentRule = rule
		s.currentRuleIdx = lineIdx

		return true
	}

	return false
}

// Rule returns the most recent rule generated by a call to Scan, and the
// index of its line in the list.
func (s *RuleScanner) Rule() (r *rules.BlockRule, idx int) {
	return s.currentRule, s.currentRuleIdx
}

// ListID returns the identifier of the rule list being scanned.
func (s *RuleScanner) ListID() int {
	return s.listID
}

// isBlank returns true if the line contains nothing but whitespace.
func isBlank(line string) bool {
	for i := 0; i < len(line); i++ {
		if c := line[i]; c != ' ' && c != '\t' && c != '\r' {
			return false
		}
	}

	return true
}

// RuleStorageScanner scans multiple RuleScanner instances.  The rule index is
// built from the rule index in the list and the list ID:  the first 4 bytes
// is the list ID, the second 4 bytes is the rule index inside the list.
type RuleStorageScanner struct {
	// Scanners is the list of list scanners backing this combined scanner.
	Scanners []*RuleScanner

	currentScanner *RuleScanner

	// currentScannerIdx is the index of the current scanner.
	currentScannerIdx int
}

// Scan advances to the next rule of the current scanner, switching to the
// next scanner once the current one is exhausted.
func (s *RuleStorageScanner) Scan() bool {
	if len(s.Scanners) == 0 {
		return false
	}

	if s.currentScanner == nil {
		s.currentScannerIdx = 0
		s.currentScanner = s.Scanners[s.currentScannerIdx]
	}

	for {
		if s.currentScanner.Scan() {
			return true
		}

		// Take the next scanner or just return false if there's nothing more.
		if s.currentScannerIdx == len(s.Scanners)-1 {
			return false
		}

		s.currentScannerIdx++
		s.currentScanner = s.Scanners[s.currentScannerIdx]
	}
}

// Rule returns the most recent rule generated by a call to Scan, and its
// storage index.
func (s *RuleStorageScanner) Rule() (r *rules.BlockRule, storageIdx int64) {
	if s.currentScanner == nil {
		return nil, 0
	}

	r, idx := s.currentScanner.Rule()
	if r == nil {
		return nil, 0
	}

	return r, ruleListIdxToStorageIdx(s.currentScanner.ListID(), idx)
}

// ruleListIdxToStorageIdx converts a pair of listID and rule list index to a
// single int64 "storage index".
func ruleListIdxToStorageIdx(listID, ruleIdx int) int64 {
	return int64(listID)<<32 | int64(ruleIdx)&0xFFFFFFFF
}

// storageIdxToRuleListIdx converts the "storage index" back to the rule list
// identifier and the index of the rule in the list.
func storageIdxToRuleListIdx(storageIdx int64) (listID, ruleIdx int) {
	listID = int(storageIdx >> 32)
	ruleIdx = int(int32(storageIdx))
	return listID, ruleIdx
}
