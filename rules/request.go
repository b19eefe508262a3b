package rules

import (
	"strings"

	"github.com/stdblock/stdblock/hostutil"
	"golang.org/x/net/publicsuffix"
)

// maxURLLength limits the URL length by 4 KiB.  There can be URLs longer than
// a megabyte, and it makes no sense to go through the whole URL.
const maxURLLength = 4 * 1024

// Request represents one navigation to be checked against the block rules.
type Request struct {
	// URL is the full request URL.
	URL string

	// URLLowerCase is the full request URL in lower case.
	URLLowerCase string

	// Hostname is the hostname to match.
	Hostname string

	// Domain is the effective top-level domain of the request with an
	// additional label.
	Domain string

	// SourceURL is the full URL of the source frame.
	SourceURL string

	// SourceHostname is the hostname of the source frame.
	SourceHostname string

	// SourceDomain is the effective top-level domain of the source with an
	// additional label.
	SourceDomain string

	// ThirdParty is true if the request host and the source host belong to
	// different registered domains.
	ThirdParty bool

	// IsHostnameRequest means that the request is for a given Hostname and
	// not for a URL, so the protocol is unknown.
	IsHostnameRequest bool
}

// NewRequest creates a new instance of Request and populates its fields.
func NewRequest(url, sourceURL string) (r *Request) {
	if len(url) > maxURLLength {
		url = url[:maxURLLength]
	}
	if len(sourceURL) > maxURLLength {
		sourceURL = sourceURL[:maxURLLength]
	}

	r = &Request{
		URL:          url,
		URLLowerCase: strings.ToLower(url),
		Hostname:     strings.ToLower(hostutil.ExtractHostname(url)),

		SourceURL:      sourceURL,
		SourceHostname: strings.ToLower(hostutil.ExtractHostname(sourceURL)),
	}

	r.Domain = r.Hostname
	if domain := effectiveTLDPlusOne(r.Hostname); domain != "" {
		r.Domain = domain
	}

	r.SourceDomain = r.SourceHostname
	if sourceDomain := effectiveTLDPlusOne(r.SourceHostname); sourceDomain != "" {
		r.SourceDomain = sourceDomain
	}

	if r.SourceDomain != "" && r.SourceDomain != r.Domain {
		r.ThirdParty = true
	}

	return r
}

// NewRequestForHostname creates a new instance of Request for matching a bare
// hostname.  It uses "http://" as the protocol of the request URL.
func NewRequestForHostname(hostname string) (r *Request) {
	hostname = strings.ToLower(hostname)

	// Do not use fmt.Sprintf or url.URL to achieve better performance.
	// Hostname validation should be performed by the function caller.
	urlStr := "http://" + hostname

	r = &Request{
		URL:               urlStr,
		URLLowerCase:      urlStr,
		Hostname:          hostname,
		IsHostnameRequest: true,
	}

	r.Domain = r.Hostname
	if domain := effectiveTLDPlusOne(r.Hostname); domain != "" {
		r.Domain = domain
	}

	return r
}

// effectiveTLDPlusOne is a faster version of publicsuffix.EffectiveTLDPlusOne
// that avoids using fmt.Errorf when the domain is less or equal the suffix.
func effectiveTLDPlusOne(hostname string) (domain string) {
	hostnameLen := len(hostname)
	if hostnameLen < 1 {
		return ""
	}

	if hostname[0] == '.' || hostname[hostnameLen-1] == '.' {
		return ""
	}

	suffix, _ := publicsuffix.PublicSuffix(hostname)

	i := hostnameLen - len(suffix) - 1
	if i < 0 || hostname[i] != '.' {
		return ""
	}

	return hostname[1+strings.LastIndex(hostname[:i], "."):]
}
