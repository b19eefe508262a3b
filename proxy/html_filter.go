package proxy

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

// injectContentScript replaces the response body with a copy that carries the
// content script injection code.  The code goes right before the closing
// head tag so that the script runs before the page's own scripts.
func (s *Server) injectContentScript(session *Session) error {
	res := session.HTTPResponse

	body, err := readBody(res)
	if err != nil {
		return err
	}

	html, err := decodeBody(body, session.Charset)
	if err != nil {
		return err
	}

	html = insertBeforeTag(html, s.buildInjectionCode(session))

	modifiedBody, err := encodeBody(html, session.Charset)
	if err != nil {
		return err
	}

	res.Body = io.NopCloser(bytes.NewReader(modifiedBody))
	res.ContentLength = int64(len(modifiedBody))
	res.Header.Set("Content-Length", strconv.Itoa(len(modifiedBody)))
	return nil
}

// insertBeforeTag inserts the code before the closing head tag.  Falls back
// to the closing body tag, then to prepending the code to the document.
func insertBeforeTag(html, code string) string {
	lower := strings.ToLower(html)

	for _, tag := range []string{"</head>", "</body>"} {
		if idx := strings.Index(lower, tag); idx != -1 {
			return html[:idx] + code + html[idx:]
		}
	}

	return code + html
}
