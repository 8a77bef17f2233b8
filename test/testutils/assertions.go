// Package testutils provides custom assertion helpers
package testutils

import (
	"encoding/json"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addedSpanPattern = regexp.MustCompile(`<span class="[^"]*">(.*?)</span>`)

// AddedFragments returns the text wrapped in added spans, in order
func AddedFragments(html string) []string {
	var out []string
	for _, m := range addedSpanPattern.FindAllStringSubmatch(html, -1) {
		out = append(out, m[1])
	}
	return out
}

// StripSpans removes added spans, keeping their content
func StripSpans(html string) string {
	return addedSpanPattern.ReplaceAllString(html, "$1")
}

// HTTPAssertions provides HTTP-specific assertion methods
type HTTPAssertions struct {
	t *testing.T
}

// NewHTTPAssertions creates a new HTTP assertions helper
func NewHTTPAssertions(t *testing.T) *HTTPAssertions {
	return &HTTPAssertions{t: t}
}

// StatusCode asserts the HTTP status code
func (ha *HTTPAssertions) StatusCode(w *httptest.ResponseRecorder, expectedCode int, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, w, "Response should not be nil")
	assert.Equal(ha.t, expectedCode, w.Code, msgAndArgs...)
}

// JSONResponse asserts that the response is valid JSON and unmarshals it
func (ha *HTTPAssertions) JSONResponse(w *httptest.ResponseRecorder, target interface{}) {
	require.NotNil(ha.t, w, "Response should not be nil")

	contentType := w.Header().Get("Content-Type")
	assert.True(ha.t, strings.Contains(contentType, "application/json"),
		"Response should have JSON content type, got: %s", contentType)

	require.NoError(ha.t, json.Unmarshal(w.Body.Bytes(), target), "Response should be valid JSON")
}

// ErrorCode asserts that the response is an error response with the given code
func (ha *HTTPAssertions) ErrorCode(w *httptest.ResponseRecorder, expectedCode string) {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	ha.JSONResponse(w, &body)
	assert.Equal(ha.t, expectedCode, body.Error.Code, "unexpected error code, message: %s", body.Error.Message)
}

// Header asserts that a header exists with expected value
func (ha *HTTPAssertions) Header(w *httptest.ResponseRecorder, headerName, expectedValue string, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, w, "Response should not be nil")
	assert.Equal(ha.t, expectedValue, w.Header().Get(headerName), msgAndArgs...)
}
