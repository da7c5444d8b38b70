package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"taskboard/services"
	"taskboard/utilities"
)

type actorKey struct{}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func withActor(ctx context.Context, actor services.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the authenticated user stored by AuthMiddleware.
func ActorFrom(ctx context.Context) (services.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(services.Actor)
	return actor, ok
}

// AuthMiddleware verifies the bearer token and stores the acting user in the
// request context. Requests without a usable token get a 401 envelope.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := h.accounts.Authenticate(r.Context(), bearerToken(r))
		var f *services.Failure
		if errors.As(err, &f) {
			utilities.LogDebug("AuthMiddleware: %s %s rejected: %s", r.Method, r.URL.Path, f.Message)
			writeFailure(w, f)
			return
		}
		if err != nil {
			writeResult(w, "AuthMiddleware: authentication failed", nil, err, http.StatusOK)
			return
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), *actor)))
	})
}

// currentActor fetches the actor or writes a 401. Routes behind
// AuthMiddleware always have one.
func currentActor(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		writeFailure(w, &services.Failure{Code: services.CodeUnauthenticated, Message: "authentication required"})
	}
	return actor, ok
}
