package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrap_Order(t *testing.T) {
	var calls []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner"}, calls)
}

func TestMakeRouteFinder(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /api/sales/{session}", okHandler())
	find := MakeRouteFinder(mux)

	route, ok := find(httptest.NewRequest(http.MethodGet, "/api/sales/abc", nil))
	require.True(t, ok)
	assert.Equal(t, "GET /api/sales/{session}", route)

	_, ok = find(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.False(t, ok)
	assert.Equal(t, "unknown", routeOf(find, httptest.NewRequest(http.MethodGet, "/nope", nil)))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	t.Run("reuses valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "till-7-0001")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, "till-7-0001", seen)
		assert.Equal(t, "till-7-0001", w.Header().Get(RequestIDHeader))
	})

	for name, id := range map[string]string{
		"missing":      "",
		"too long":     strings.Repeat("x", maxRequestIDLength+1),
		"non-printing": "bad\nid",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if id != "" {
				req.Header[RequestIDHeader] = []string{id}
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Len(t, seen, 36)
			assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
		})
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := Wrap(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		InjectLogger(zap.New(core)),
		Recovery(),
	)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal server error"}`, w.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Panic recovered", logs.All()[0].Message)
}

func TestInjectLoggerAndLogRequests(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sales", func(w http.ResponseWriter, r *http.Request) {
		zctx.From(r.Context()).Info("Inside")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /api/fail", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	find := MakeRouteFinder(mux)
	h := Wrap(mux, RequestID(), InjectLogger(zap.New(core)), LogRequests(find))

	req := httptest.NewRequest(http.MethodPost, "/api/sales", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/fail", nil))

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "Inside", entries[0].Message)
	assert.Equal(t, "rid-1", entries[0].ContextMap()["request_id"])

	served := entries[1]
	assert.Equal(t, "Request served", served.Message)
	assert.Equal(t, "POST /api/sales", served.ContextMap()["route"])
	assert.EqualValues(t, http.StatusCreated, served.ContextMap()["status"])

	failed := entries[2]
	assert.Equal(t, zapcore.WarnLevel, failed.Level)
	assert.EqualValues(t, http.StatusBadGateway, failed.ContextMap()["status"])
}

func TestCORS(t *testing.T) {
	t.Run("preflight allowed", func(t *testing.T) {
		h := CORS(CORSConfig{AllowOrigins: []string{"https://Shop.example"}, MaxAge: 600})(okHandler())
		req := httptest.NewRequest(http.MethodOptions, "/api/sales", nil)
		req.Header.Set("Origin", "https://shop.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "api_key")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://Shop.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "api_key", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("origin rejected", func(t *testing.T) {
		h := CORS(CORSConfig{AllowOrigins: []string{"https://shop.example"}})(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard with credentials echoes origin", func(t *testing.T) {
		h := CORS(CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true})(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://till.example")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, "https://till.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})
}
