package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func failing(message string) Checker {
	return CheckerFunc(func(context.Context) error { return errors.New(message) })
}

var passing = CheckerFunc(func(context.Context) error { return nil })

func TestMultiChecker(t *testing.T) {
	assert.NoError(t, NewMultiChecker().Check(context.Background()))
	assert.NoError(t, NewMultiChecker(passing, passing).Check(context.Background()))

	checker := NewMultiChecker(passing, failing("snapshot unreadable"))
	checker.Add(failing("metrics down"))
	err := checker.Check(context.Background())
	assert.ErrorContains(t, err, "snapshot unreadable")
	assert.ErrorContains(t, err, "metrics down")
}

func TestHealthCheckHttpHandler(t *testing.T) {
	mux := http.NewServeMux()
	SetupHttpMux(mux, passing)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthCheckHttpHandler(failing("snapshot unreadable")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "snapshot unreadable")
}
