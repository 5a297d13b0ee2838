package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peakline/catalog-search/pkg/logger"
)

func TestRequestLogger_ExtractsIdentityHeaders(t *testing.T) {
	base := slog.New(slog.NewTextHandler(io.Discard, nil))

	var gotUser, gotSession string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = logger.UserIDFromContext(r.Context())
		gotSession = logger.SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	req.Header.Set("X-User-ID", "u-42")
	req.Header.Set("X-Session-ID", "s-99")
	rec := httptest.NewRecorder()
	RequestLogger(base)(inner).ServeHTTP(rec, req)

	assert.Equal(t, "u-42", gotUser)
	assert.Equal(t, "s-99", gotSession)
}

func TestRequestLogger_InstallsContextLogger(t *testing.T) {
	base := slog.New(slog.NewTextHandler(io.Discard, nil))

	var got *slog.Logger
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logger.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	rec := httptest.NewRecorder()
	RequestLogger(base)(inner).ServeHTTP(rec, req)

	assert.NotNil(t, got)
	assert.NotEqual(t, slog.Default(), got, "handler should see the request-scoped logger")
}

func TestRequestLogger_MissingHeadersLeaveContextEmpty(t *testing.T) {
	base := slog.New(slog.NewTextHandler(io.Discard, nil))

	var gotUser, gotSession string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = logger.UserIDFromContext(r.Context())
		gotSession = logger.SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	rec := httptest.NewRecorder()
	RequestLogger(base)(inner).ServeHTTP(rec, req)

	assert.Empty(t, gotUser)
	assert.Empty(t, gotSession)
}
