package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/mathexpr/backend"
	"github.com/dekarrin/mathexpr/backend/csource"
	"github.com/dekarrin/mathexpr/cmd/mathserver/api"
	"github.com/dekarrin/mathexpr/cmd/mathserver/history"
)

func newTestAPI(t *testing.T) api.API {
	t.Helper()
	hist, err := history.Open("")
	require.NoError(t, err)
	return api.API{
		Registry: backend.NewDefaultRegistry(csource.Options{}),
		History:  hist,
	}
}

func doJSON(t *testing.T, h http.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestEvaluate_ConstantArithmetic(t *testing.T) {
	a := newTestAPI(t)
	rec := doJSON(t, a.HTTPEvaluate(), http.MethodPost, `{"expression": "2 + 3 * 4"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "14", body["result"])
}

func TestEvaluate_WithVariables(t *testing.T) {
	a := newTestAPI(t)
	rec := doJSON(t, a.HTTPEvaluate(), http.MethodPost, `{"expression": "x^2 + y", "variables": {"x": 3, "y": 1}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "10", body["result"])
}

func TestEvaluate_EmptyExpressionIsBadRequest(t *testing.T) {
	a := newTestAPI(t)
	rec := doJSON(t, a.HTTPEvaluate(), http.MethodPost, `{"expression": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluate_SyntaxErrorIsBadRequest(t *testing.T) {
	a := newTestAPI(t)
	rec := doJSON(t, a.HTTPEvaluate(), http.MethodPost, `{"expression": "2 +"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluate_RuntimeFailureIsBadRequest(t *testing.T) {
	a := newTestAPI(t)
	rec := doJSON(t, a.HTTPEvaluate(), http.MethodPost, `{"expression": "!x", "variables": {"x": -1}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluate_WrongContentTypeIsBadRequest(t *testing.T) {
	a := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"expression": "1"}`))
	rec := httptest.NewRecorder()
	a.HTTPEvaluate()(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDerive_Polynomial(t *testing.T) {
	a := newTestAPI(t)
	rec := doJSON(t, a.HTTPDerive(), http.MethodPost,
		`{"expression": "x^2", "with_respect_to": "x", "variables": {"x": 5}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "10", body["result"])
}

func TestDerive_UnboundVariableIsBadRequest(t *testing.T) {
	a := newTestAPI(t)
	rec := doJSON(t, a.HTTPDerive(), http.MethodPost,
		`{"expression": "x^2", "with_respect_to": "y"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDerive_MissingWithRespectToIsBadRequest(t *testing.T) {
	a := newTestAPI(t)
	rec := doJSON(t, a.HTTPDerive(), http.MethodPost, `{"expression": "x^2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz_OK(t *testing.T) {
	a := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	a.HTTPHealthz()(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHistory_RecordsSuccessfulEvaluations(t *testing.T) {
	a := newTestAPI(t)
	hist, err := history.Open(t.TempDir() + "/history.db")
	require.NoError(t, err)
	defer hist.Close()
	a.History = hist

	doJSON(t, a.HTTPEvaluate(), http.MethodPost, `{"expression": "1 + 1"}`)

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rec := httptest.NewRecorder()
	a.HTTPHistory()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "evaluate", entries[0]["Operation"])
	assert.Equal(t, "2", entries[0]["Result"])
}

func TestHistory_BadLimitIsBadRequest(t *testing.T) {
	a := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/history?limit=notanumber", nil)
	rec := httptest.NewRecorder()
	a.HTTPHistory()(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
