package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/zelo-saude/agendamento/internal/appointment"
)

const actorKey contextKey = "actor"

// actorClaims is what the platform's identity service puts in its bearer
// tokens: the subject is the actor's id, role is patient or practitioner.
type actorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ActorMiddleware verifies the bearer token and injects the authenticated
// Actor into the request context. The core trusts the claims as given; it
// never mints tokens.
func ActorMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing_token", "Authorization: Bearer token required")
				return
			}

			var claims actorClaims
			parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !parsed.Valid {
				writeError(w, http.StatusUnauthorized, "invalid_token", "token is invalid or expired")
				return
			}

			id, err := uuid.Parse(claims.Subject)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token", "subject must be a UUID")
				return
			}

			role := appointment.Role(claims.Role)
			if role != appointment.RolePatient && role != appointment.RolePractitioner {
				writeError(w, http.StatusUnauthorized, "invalid_token", "unknown role")
				return
			}

			actor := appointment.Actor{ID: id, Role: role}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
		})
	}
}

// ActorFromContext returns the authenticated actor placed by ActorMiddleware.
func ActorFromContext(ctx context.Context) (appointment.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(appointment.Actor)
	return actor, ok
}
