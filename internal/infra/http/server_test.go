package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s := New(":0", false, nil)
	rec := doGet(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReady(t *testing.T) {
	s := New(":0", false, func(context.Context) error { return nil })
	rec := doGet(t, s, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "READY", rec.Body.String())
}

func TestReady_DependencyDown(t *testing.T) {
	s := New(":0", false, func(context.Context) error { return errors.New("db down") })
	rec := doGet(t, s, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db down")
}

func TestMetricsExposure(t *testing.T) {
	s := New(":0", true, nil)
	assert.Equal(t, http.StatusOK, doGet(t, s, "/metrics").Code)

	s = New(":0", false, nil)
	assert.Equal(t, http.StatusNotFound, doGet(t, s, "/metrics").Code)
}
