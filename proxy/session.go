package proxy

import (
	"mime"
	"net/http"
	"strings"

	"github.com/stdblock/stdblock"
	"github.com/stdblock/stdblock/rules"
)

// Session contains all the necessary data to process the request and its
// response.  Throughout the HTTP request lifetime, session data is updated
// with new information.
//
// There are two main stages of the HTTP request lifetime:
//  1. Received the HTTP request headers.  At this point we only assume the
//     resource type by the URL and the "Accept" header.  The request itself is
//     never blocked, it goes through unchanged.
//  2. Received the HTTP response headers.  Now we've got the content-type
//     header so we know for sure what type of resource we're dealing with.
//     If this is an HTML document and the page hostname matches the block
//     rules, the content script is injected into the response body.
type Session struct {
	ID      string         // Session identifier
	Request *rules.Request // Request data

	HTTPRequest  *http.Request  // HTTP request data
	HTTPResponse *http.Response // HTTP response data

	MediaType string // Mime media type
	Charset   string // Response charset (if it's possible to parse it from content-type)

	Result *stdblock.BlockResult // Blocking engine result
}

// NewSession creates a new instance of the Session struct and initializes it.
// id -- unique session identifier
// req -- HTTP request data
func NewSession(id string, req *http.Request) *Session {
	s := Session{
		ID:          id,
		Request:     rules.NewRequest(req.URL.String(), req.Referer()),
		HTTPRequest: req,
	}

	return &s
}

// SetResponse sets the response of this session and extracts the media type
// and the charset from its content-type header.
func (s *Session) SetResponse(res *http.Response) {
	s.HTTPResponse = res

	contentType := res.Header.Get("Content-Type")
	mediaType, params, _ := mime.ParseMediaType(contentType)

	s.MediaType = mediaType
	if charset, ok := params["charset"]; ok {
		s.Charset = charset
	}
}

// IsHTMLDocument returns true if the response of this session is an HTML
// document.  The content script can only be injected into HTML documents.
func (s *Session) IsHTMLDocument() bool {
	return isHTMLMediaType(s.MediaType)
}

// assumeDocumentRequest assumes from the request headers whether the request
// is a navigation to an HTML document.  This is just a guess, the response
// content-type header is authoritative.
func assumeDocumentRequest(req *http.Request) bool {
	return isHTMLMediaType(req.Header.Get("Accept"))
}

// isHTMLMediaType checks if the specified media type means an HTML document.
func isHTMLMediaType(mediaType string) bool {
	return strings.HasPrefix(mediaType, "text/html") ||
		strings.HasPrefix(mediaType, "application/xhtml")
}
