package handlers

import (
	"net/http"
	"strings"

	"github.com/artisanhubapp/artisanhub/internal/auth"
)

// RequireAuth verifies the bearer token and puts the actor in the request
// context. The engine layer still receives the actor explicitly; nothing
// below the handlers reads it from context.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeAPIError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		actor, err := h.verifier.Verify(token)
		if err != nil {
			h.loggerFromContext(r.Context()).Debug("rejected bearer token", "error", err)
			writeAPIError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
			return
		}

		ctx := auth.WithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
