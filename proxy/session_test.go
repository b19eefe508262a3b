package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSetResponse(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://www.example.com/page", nil)
	require.NoError(t, err)

	session := NewSession("1", req)
	assert.Equal(t, "www.example.com", session.Request.Hostname)

	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
	res := rec.Result()

	session.SetResponse(res)
	assert.Equal(t, "text/html", session.MediaType)
	assert.Equal(t, "ISO-8859-1", session.Charset)
	assert.True(t, session.IsHTMLDocument())

	rec = httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/json")
	session.SetResponse(rec.Result())
	assert.False(t, session.IsHTMLDocument())
}

func TestAssumeDocumentRequest(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://example.com/", nil)
	require.NoError(t, err)

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	assert.True(t, assumeDocumentRequest(req))

	req.Header.Set("Accept", "image/webp,*/*")
	assert.False(t, assumeDocumentRequest(req))
}
