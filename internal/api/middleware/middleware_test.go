package middleware

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute_SurvivesRequestCopies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/providers/{id}", Route(func(w http.ResponseWriter, r *http.Request) {}))

	// Requester copies the request before the mux sees it.
	var handler http.Handler = Requester("user-1")(mux)

	info := &routeInfo{}
	req := httptest.NewRequest(http.MethodGet, "/api/providers/p1", nil)
	req = req.WithContext(context.WithValue(req.Context(), routeKey{}, info))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "GET /api/providers/{id}", info.pattern)
	assert.Empty(t, req.Pattern)
}

func TestRequester(t *testing.T) {
	var got string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequesterIDFromContext(r.Context())
	})

	tests := []struct {
		name      string
		header    string
		defaultID string
		want      string
	}{
		{name: "header wins", header: " user-9 ", defaultID: "user-1", want: "user-9"},
		{name: "default applies", defaultID: "user-1", want: "user-1"},
		{name: "anonymous", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = "unset"
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequesterHeader, tt.header)
			}
			Requester(tt.defaultID)(capture).ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestCacheControl(t *testing.T) {
	handler := CacheControl(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for path, want := range map[string]string{
		"/api/specialties":               "public, max-age=3600",
		"/api/providers/search":          "public, max-age=60, must-revalidate",
		"/api/providers/p1/availability": "private, no-cache, must-revalidate",
		"/api/appointments":              "private, no-cache, must-revalidate",
	} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Header().Get("Cache-Control"), path)
	}
}

func TestResponseOptimization_ETag(t *testing.T) {
	handler := ResponseOptimization(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"specialties":[]}`))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/specialties", nil))
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, `{"specialties":[]}`, w.Body.String())
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))

	for _, ifNoneMatch := range []string{etag, "W/" + etag, `"other", ` + etag, "*"} {
		req := httptest.NewRequest(http.MethodGet, "/api/specialties", nil)
		req.Header.Set("If-None-Match", ifNoneMatch)
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotModified, w.Code, ifNoneMatch)
		assert.Empty(t, w.Body.String(), ifNoneMatch)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/specialties", nil)
	req.Header.Set("If-None-Match", `"stale"`)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResponseOptimization_ErrorsCarryNoETag(t *testing.T) {
	handler := ResponseOptimization(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/providers/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("ETag"))
	assert.Equal(t, `{"error":"not found"}`, w.Body.String())
}

func TestResponseOptimization_Gzip(t *testing.T) {
	large := strings.Repeat(`{"id":"p1"},`, 200)
	handler := ResponseOptimization(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/small" {
			_, _ = w.Write([]byte("ok"))
			return
		}
		_, _ = w.Write([]byte(large))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/providers/search", nil)
	req.Header.Set("Accept-Encoding", "br, gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, large, string(plain))

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/providers/search", nil)
	req.Header.Set("Accept-Encoding", "gzip;q=0")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, large, w.Body.String())
}

func TestResponseOptimization_WritesPassThrough(t *testing.T) {
	handler := ResponseOptimization(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(strings.Repeat("x", 2*minGzipSize)))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/appointments", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("ETag"))
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Len(t, w.Body.String(), 2*minGzipSize)
}

func TestGenerateCacheKey(t *testing.T) {
	a := generateCacheKey(httptest.NewRequest(http.MethodGet, "/api/providers/search?location=1,2&radius=5", nil))
	b := generateCacheKey(httptest.NewRequest(http.MethodGet, "/api/providers/search?radius=5&location=1,2", nil))
	c := generateCacheKey(httptest.NewRequest(http.MethodGet, "/api/providers/search?radius=6&location=1,2", nil))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	require.True(t, strings.HasPrefix(a, CacheKeyPrefix+"/api/providers/search:"))
}
