package proxy

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/template"

	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/gomitmproxy/proxyutil"
)

// This code is to be injected in the page
const contentScriptCode = `
<script src="//{{.InjectionHostname}}/content-script.js?hostname={{.Hostname}}&ids={{.IDs}}&ts={{.Timestamp}}"></script>
`

var contentScriptURLTmpl = template.Must(template.New("contentScriptCode").Parse(contentScriptCode))

// contentScriptJS wraps the standard-disabling snippets so that one broken
// snippet does not prevent the others from running.
const contentScriptJS = `(function () {
    if (window.__stdblockApplied) { return; }
    window.__stdblockApplied = true;
{{- range .Snippets}}
    try {
        {{.}}
    } catch (ex) {
        console.error("stdblock: " + ex);
    }
{{- end}}
})();
`

var contentScriptTmpl = template.Must(template.New("contentScriptJS").Parse(contentScriptJS))

type contentScriptURLParameters struct {
	Hostname          string
	IDs               string
	InjectionHostname string
	Timestamp         int64 // just to avoid caching
}

type contentScriptParameters struct {
	Snippets []string // JS snippets for the blocked standards
}

// buildInjectionCode creates HTML code for the content script injection
func (s *Server) buildInjectionCode(session *Session) string {
	params := contentScriptURLParameters{
		Hostname:          session.Request.Hostname,
		IDs:               joinIDs(session.Result.StandardIDs),
		InjectionHostname: s.InjectionHost,
		Timestamp:         s.createdAt.Unix(),
	}
	var data bytes.Buffer
	if err := contentScriptURLTmpl.Execute(&data, params); err != nil {
		log.Error("error building injection code: %v", err)
		return ""
	}

	return data.String()
}

// buildContentScriptCode executes the content script code template
func (s *Server) buildContentScriptCode(standardIDs []int) string {
	params := contentScriptParameters{}
	for _, id := range standardIDs {
		snippet, ok := s.StandardScripts[id]
		if !ok {
			log.Debug("no script for standard %d", id)
			continue
		}
		params.Snippets = append(params.Snippets, snippet)
	}

	var data bytes.Buffer
	if err := contentScriptTmpl.Execute(&data, params); err != nil {
		log.Error("error building content script code: %v", err)
		return ""
	}

	return data.String()
}

// buildContentScript builds the content script content
func (s *Server) buildContentScript(session *Session) *http.Response {
	r := session.HTTPRequest
	if r.Method != http.MethodGet {
		return newNotFoundResponse(r)
	}

	hostname := getQueryParameter(r, "hostname")
	ids := getQueryParameter(r, "ids")
	ts := int64(getQueryParameterUint64(r, "ts"))

	if hostname == "" || ids == "" || ts == 0 {
		return newNotFoundResponse(r)
	}

	if ts == s.createdAt.Unix() && r.Header.Get("If-Modified-Since") != "" {
		// Simply return a 304 Not-Modified response
		res := proxyutil.NewResponse(http.StatusNotModified, nil, r)
		res.Header.Set("Content-Type", "text/javascript; charset=utf-8")

		// re-enable the cache
		enableCache(res)
		return res
	}

	// Re-match the hostname rather than trusting the ids parameter: the
	// engine is the only source of truth for what gets disabled.
	result, _ := s.engine.Match(hostname)
	bodyBytes := []byte(s.buildContentScriptCode(result.StandardIDs))
	contentLen := len(bodyBytes)

	var bodyReader io.Reader

	if s.CompressContentScript {
		b, err := compressGzip(bodyBytes)
		if err != nil {
			log.Error("failed to compress content script: %v", err)
			return proxyutil.NewErrorResponse(r, err)
		}
		contentLen = b.Len()
		bodyReader = io.NopCloser(b)
	} else {
		bodyReader = bytes.NewReader(bodyBytes)
	}

	res := proxyutil.NewResponse(http.StatusOK, bodyReader, r)
	res.Header.Set("Content-Type", "text/javascript; charset=utf-8")
	res.ContentLength = int64(contentLen)

	if s.CompressContentScript {
		res.Header.Set("Content-Encoding", "gzip")
	}

	// make the browser cache the response
	enableCache(res)
	return res
}

// joinIDs serializes the identifiers for the content script URL.
func joinIDs(ids []int) string {
	strs := make([]string, 0, len(ids))
	for _, id := range ids {
		strs = append(strs, strconv.Itoa(id))
	}
	return strings.Join(strs, ",")
}

// newNotFoundResponse is what the injection host answers to anything that is
// not a well-formed content script request.
func newNotFoundResponse(r *http.Request) *http.Response {
	res := proxyutil.NewResponse(http.StatusNotFound, nil, r)
	res.Header.Set("Content-Type", "text/html")
	return res
}

// getQueryParameter returns the value of the named query parameter, or an
// empty string when it is absent or repeated.
func getQueryParameter(r *http.Request, name string) string {
	params, ok := r.URL.Query()[name]
	if !ok || len(params) != 1 {
		return ""
	}
	return params[0]
}

// getQueryParameterUint64 is getQueryParameter for numeric parameters.  Any
// value that does not parse is reported as zero.
func getQueryParameterUint64(r *http.Request, name string) uint64 {
	val, err := strconv.ParseUint(getQueryParameter(r, name), 10, 64)
	if err != nil {
		return 0
	}
	return val
}
