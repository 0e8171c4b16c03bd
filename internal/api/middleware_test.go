package api

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/google/uuid"

	"github.com/jordancooper-dev/keygate/internal/auth"
	"github.com/jordancooper-dev/keygate/models"
)

func TestRequireAPIKey(t *testing.T) {
	validator := &fakeValidator{
		accept: "sk_good",
		key:    &models.APIKey{ID: uuid.New(), ClientID: "acme", IsActive: true},
	}
	router := testRouter(newFakeStore(), validator)

	t.Run("valid key passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		req.Header.Set(APIKeyHeader, "sk_good")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("missing and wrong keys are rejected identically", func(t *testing.T) {
		var bodies []string
		for _, key := range []string{"", "sk_wrong"} {
			req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
			if key != "" {
				req.Header.Set(APIKeyHeader, key)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected status 401, got %d", w.Code)
			}
			if got := w.Header().Get("WWW-Authenticate"); got != "ApiKey" {
				t.Errorf("expected WWW-Authenticate: ApiKey, got %q", got)
			}
			bodies = append(bodies, w.Body.String())
		}

		if bodies[0] != bodies[1] {
			t.Errorf("rejection bodies differ: %q vs %q", bodies[0], bodies[1])
		}
	})

	t.Run("store failure is a 500, not a rejection", func(t *testing.T) {
		broken := &fakeValidator{err: auth.ErrStoreUnavailable}
		router := testRouter(newFakeStore(), broken)

		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		req.Header.Set(APIKeyHeader, "sk_good")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", w.Code)
		}
		if w.Header().Get("WWW-Authenticate") != "" {
			t.Error("store failures must not carry an auth challenge")
		}
	})

	t.Run("key management routes need no key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/keys", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
	})
}

func TestCorrelationIDMiddleware(t *testing.T) {
	router := testRouter(newFakeStore(), nil)
	validID := regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

	t.Run("echoes a well-formed inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		req.Header.Set(CorrelationIDHeader, "req-abc_123")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if got := w.Header().Get(CorrelationIDHeader); got != "req-abc_123" {
			t.Errorf("expected inbound id echoed back, got %q", got)
		}
	})

	t.Run("replaces a malformed inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		req.Header.Set(CorrelationIDHeader, "not valid id!")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		got := w.Header().Get(CorrelationIDHeader)
		if got == "not valid id!" {
			t.Error("malformed id must not be echoed back")
		}
		if !validID.MatchString(got) {
			t.Errorf("replacement id %q is not well formed", got)
		}
	})

	t.Run("generates an id when none is supplied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if got := w.Header().Get(CorrelationIDHeader); !validID.MatchString(got) {
			t.Errorf("expected a generated id, got %q", got)
		}
	})
}
