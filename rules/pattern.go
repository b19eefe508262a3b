// Package rules contains the match-pattern matcher and the block rule value
// type that together decide which web standards must be disabled on a page.
package rules

import (
	"regexp"
	"strings"
	"sync"

	"github.com/stdblock/stdblock/hostutil"
)

const (
	// maskNegation negates the whole pattern when it is its first character.
	maskNegation = "!"

	// maskSubdomains matches any subdomain when the pattern starts with it.
	maskSubdomains = "*."

	// maskAnyCharacter matches zero or more of any character.
	maskAnyCharacter = "*"
)

// Regex constants that the pattern compiler is built from.
const (
	RegexStartString  = "^"
	RegexEndString    = "$"
	RegexAnyCharacter = ".*"
)

// patternToRegexp converts the matching part of a pattern (negation already
// stripped) to the text of an anchored regular expression.  Every character
// is literal except "*".
func patternToRegexp(pattern string) string {
	re := regexp.QuoteMeta(pattern)
	re = strings.ReplaceAll(re, `\*`, RegexAnyCharacter)

	return RegexStartString + re + RegexEndString
}

// CompiledPattern is the compiled, reusable form of a match pattern.  It is
// immutable and safe for concurrent use.
type CompiledPattern struct {
	text    string         // original pattern text, including the negation mask
	body    string         // pattern text without the negation mask
	negated bool           // true if the pattern started with "!"
	re      *regexp.Regexp // anchored case-insensitive regexp of body
}

// Text returns the original pattern text.
func (p *CompiledPattern) Text() string {
	return p.text
}

// Negated returns true if the pattern is a negation.
func (p *CompiledPattern) Negated() bool {
	return p.negated
}

// MatchString reports whether the whole input satisfies the pattern.  For
// negated patterns the result is inverted, so it is true exactly when the
// input does not satisfy the un-negated pattern.
func (p *CompiledPattern) MatchString(s string) bool {
	m := p.re.MatchString(s)
	if p.negated {
		return !m
	}

	return m
}

// MatchHost reports whether the pattern matches the hostname.  In addition to
// the plain whole-string match, a "*.example.com" pattern also matches the
// bare "example.com" host: users expect a subdomain wildcard to cover the
// parent domain itself.  The fallback is applied before negation so that
// "!*.example.com" does not match "example.com".
func (p *CompiledPattern) MatchHost(host string) bool {
	if host == "" {
		return false
	}

	m := p.re.MatchString(host)
	if !m && strings.HasPrefix(p.body, maskSubdomains) {
		m = strings.EqualFold(p.body[len(maskSubdomains):], host)
	}

	if p.negated {
		return !m
	}

	return m
}

// Matcher compiles match patterns into predicates over hostnames and URLs.
// Compiled patterns are cached by their exact original text, and the cache is
// unbounded: patterns come from user settings and their number is small, while
// matching happens on every navigation for every rule.
type Matcher struct {
	// cacheMu protects cache.
	cacheMu *sync.RWMutex

	// cache with the patterns that were compiled.
	cache map[string]*CompiledPattern
}

// NewMatcher creates a new matcher with an empty pattern cache.
func NewMatcher() *Matcher {
	return &Matcher{
		cacheMu: &sync.RWMutex{},
		cache:   map[string]*CompiledPattern{},
	}
}

// Compile compiles the pattern or returns the previously compiled instance
// from the cache.  It returns an *InvalidInputError if the matching part of
// the pattern is empty.
func (m *Matcher) Compile(pattern string) (p *CompiledPattern, err error) {
	var ok bool
	func() {
		m.cacheMu.RLock()
		defer m.cacheMu.RUnlock()

		p, ok = m.cache[pattern]
	}()
	if ok {
		return p, nil
	}

	body := pattern
	negated := false
	if strings.HasPrefix(pattern, maskNegation) {
		body = pattern[len(maskNegation):]
		negated = true
	}

	if body == "" {
		return nil, &InvalidInputError{Pattern: pattern}
	}

	re, err := regexp.Compile("(?i)" + patternToRegexp(body))
	if err != nil {
		// Cannot happen: everything except "*" is quoted.
		return nil, &InvalidInputError{Pattern: pattern}
	}

	p = &CompiledPattern{
		text:    pattern,
		body:    body,
		negated: negated,
		re:      re,
	}

	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	m.cache[pattern] = p

	return p, nil
}

// MatchesHost reports whether pattern matches the hostname, applying the
// bare-domain fallback for "*." patterns.
func (m *Matcher) MatchesHost(pattern, host string) (ok bool, err error) {
	p, err := m.Compile(pattern)
	if err != nil {
		return false, err
	}

	return p.MatchHost(host), nil
}

// MatchesURL extracts the host component of url and reports whether pattern
// matches it.  Malformed URLs never match.
func (m *Matcher) MatchesURL(pattern, url string) (ok bool, err error) {
	return m.MatchesHost(pattern, hostutil.ExtractHostname(url))
}

// CacheSize returns the number of patterns in the cache.
func (m *Matcher) CacheSize() (sz int) {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()

	return len(m.cache)
}
