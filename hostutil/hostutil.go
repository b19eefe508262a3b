// Package hostutil contains small helpers for working with hostnames and
// URLs that are used in the hot path of the blocking engine.
package hostutil

import "strings"

// ExtractHostname quickly retrieves the hostname from an URL without
// allocating an url.URL.  It returns an empty string if the URL is malformed
// or has no host component.
func ExtractHostname(url string) string {
	if url == "" {
		return ""
	}

	firstIdx := strings.Index(url, "//")
	if firstIdx == -1 {
		// Non hierarchical structured URL (e.g. stun: or turn:)
		// https://tools.ietf.org/html/rfc4395#section-2.2
		firstIdx = strings.Index(url, ":")
		if firstIdx == -1 {
			return ""
		}
		firstIdx = firstIdx - 1
	} else {
		firstIdx = firstIdx + 2
	}

	nextIdx := 0
	for i := firstIdx; i < len(url); i++ {
		c := url[i]
		if c == '/' || c == ':' || c == '?' {
			nextIdx = i
			break
		}
	}

	if nextIdx == 0 {
		nextIdx = len(url)
	}

	if nextIdx <= firstIdx {
		return ""
	}

	return url[firstIdx:nextIdx]
}

// IsDomainName returns true if name looks like a valid domain name:
// dot-separated labels of letters, digits and hyphens, where labels do not
// start or end with a hyphen, the whole name is at most 253 characters long,
// and the TLD consists of at least two letters.
func IsDomainName(name string) bool {
	if len(name) > 253 {
		return false
	}

	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return false
	}

	for _, label := range labels {
		if !isDomainLabel(label) {
			return false
		}
	}

	tld := labels[len(labels)-1]
	if len(tld) < 2 {
		return false
	}

	for i := 0; i < len(tld); i++ {
		c := tld[i]
		if !isAlpha(c) && !(strings.HasPrefix(tld, "xn--") && (isAlpha(c) || isDigit(c) || c == '-')) {
			return false
		}
	}

	return true
}

func isDomainLabel(label string) bool {
	if len(label) == 0 || len(label) > 63 {
		return false
	}

	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}

	for i := 0; i < len(label); i++ {
		c := label[i]
		if !isAlpha(c) && !isDigit(c) && c != '-' {
			return false
		}
	}

	return true
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
