package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/artisanhubapp/artisanhub/internal/auth"
	"github.com/artisanhubapp/artisanhub/internal/lifecycle"
	"github.com/artisanhubapp/artisanhub/internal/models"
)

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/metrics", nil)
	rec := httptest.NewRecorder()

	env.handlers.RequireAuth(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireAuthRejectsGarbageToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/metrics", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()

	env.handlers.RequireAuth(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireAuthPutsActorInContext(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	want := lifecycle.Actor{ID: uuid.New(), Role: models.RoleArtisan}
	token, err := env.verifier.Issue(want, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	var got lifecycle.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth.ActorFromContext(r.Context())
		if !ok {
			t.Fatal("expected actor in context")
		}
		got = actor
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	env.handlers.RequireAuth(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if got.ID != want.ID || got.Role != want.Role {
		t.Fatalf("expected actor %+v, got %+v", want, got)
	}
}

func TestSecurityHeadersSet(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	env.handlers.SecurityHeaders(next).ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected DENY, got %q", got)
	}
}
