package main

import (
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

func newTestRouter(t *testing.T, secret []byte) http.Handler {
	t.Helper()
	hist, err := history.Open("")
	require.NoError(t, err)
	a := api.API{Registry: backend.NewDefaultRegistry(csource.Options{}), History: hist}
	return newRouter(a, secret)
}

func TestRouter_HealthzNeedsNoAuth(t *testing.T) {
	r := newTestRouter(t, []byte("0123456789012345678901234567890123456789"))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_EvaluateRejectedWithoutToken(t *testing.T) {
	r := newTestRouter(t, []byte("0123456789012345678901234567890123456789"))
	req := httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(`{"expression":"1+1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_EvaluateAllowedWithNoSecretConfigured(t *testing.T) {
	r := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(`{"expression":"1+1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
