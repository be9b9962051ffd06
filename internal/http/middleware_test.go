package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("attaches a request scoped logger to the context", func(t *testing.T) {
		t.Parallel()

		var buffer bytes.Buffer
		base := slog.New(slog.NewJSONHandler(&buffer, nil))

		called := false
		handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			if LoggerFromContext(r.Context()) == nil {
				t.Error("expected a logger in the request context")
			}
			w.WriteHeader(http.StatusNoContent)
		}))

		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if !called {
			t.Fatal("expected the wrapped handler to run")
		}
		if res.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", res.Code)
		}

		output := buffer.String()
		if !strings.Contains(output, "request started") || !strings.Contains(output, "request completed") {
			t.Fatalf("expected start and completion log lines, got %q", output)
		}
		if !strings.Contains(output, `"path":"/sessions"`) {
			t.Fatalf("expected the request path in log attributes, got %q", output)
		}
	})

	t.Run("numbers requests sequentially", func(t *testing.T) {
		t.Parallel()

		var buffer bytes.Buffer
		base := slog.New(slog.NewJSONHandler(&buffer, nil))

		handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/payments", nil)
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}

		output := buffer.String()
		if !strings.Contains(output, `"request_id":1`) || !strings.Contains(output, `"request_id":2`) {
			t.Fatalf("expected sequential request IDs, got %q", output)
		}
	})
}
