package proxy

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// compressGzip gzip-compresses the content script body for serving.
func compressGzip(body []byte) (buf *bytes.Buffer, err error) {
	buf = &bytes.Buffer{}

	gz := gzip.NewWriter(buf)
	if _, err = gz.Write(body); err != nil {
		return nil, err
	}
	if err = gz.Close(); err != nil {
		return nil, err
	}

	return buf, nil
}

// readBody reads the full response body and transparently decompresses it if
// the response is gzip-encoded.  The Content-Encoding header is removed in
// that case as the modified body is served uncompressed.
func readBody(res *http.Response) ([]byte, error) {
	defer res.Body.Close()

	var reader io.Reader = res.Body
	if strings.EqualFold(res.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(res.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()

		reader = gz
		res.Header.Del("Content-Encoding")
	}

	return io.ReadAll(reader)
}

// decodeBody decodes the response body using the response charset.
// Everything except Latin1 is passed through as UTF-8.
func decodeBody(body []byte, charset string) (string, error) {
	if !isLatin1(charset) {
		return string(body), nil
	}

	r := transform.NewReader(bytes.NewReader(body), charmap.ISO8859_1.NewDecoder())
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	return string(decoded), nil
}

// encodeBody encodes the string back using the response charset.
func encodeBody(str string, charset string) ([]byte, error) {
	if !isLatin1(charset) {
		return []byte(str), nil
	}

	return charmap.ISO8859_1.NewEncoder().Bytes([]byte(str))
}

func isLatin1(charset string) bool {
	return strings.EqualFold(charset, "iso-8859-1") ||
		strings.EqualFold(charset, "latin1")
}
