package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/adboard-be/internal/models"
)

// Authenticator resolves request credentials into a user account.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
}

type contextKey string

// ActorKey is the context key for the authenticated user.
const ActorKey = contextKey("actor")

// WithActor returns a copy of ctx carrying the authenticated user.
func WithActor(ctx context.Context, actor models.User) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// ActorFromContext returns the authenticated user stored by Middleware.
func ActorFromContext(ctx context.Context) (models.User, bool) {
	actor, ok := ctx.Value(ActorKey).(models.User)
	return actor, ok
}

// Middleware creates a middleware for protecting routes. It accepts HTTP
// Basic credentials checked against the stored hash, or a bearer token
// issued by /login.
func Middleware(authn Authenticator, tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := resolve(r, authn, tokens)
			if !ok {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func resolve(r *http.Request, authn Authenticator, tokens *TokenIssuer) (models.User, bool) {
	ctx := r.Context()

	if email, password, ok := r.BasicAuth(); ok {
		user, err := authn.Authenticate(ctx, email, password)
		if err != nil {
			log.Warn().Err(err).Str("email", email).Msg("Basic authentication failed")
			return models.User{}, false
		}
		return user, true
	}

	header := r.Header.Get("Authorization")
	tokenStr, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenStr == "" || tokens == nil {
		return models.User{}, false
	}

	claims, err := tokens.Validate(tokenStr)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid bearer token")
		return models.User{}, false
	}
	id, _ := claims.UserID()
	user, err := authn.GetUserByID(ctx, id)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", id).Msg("User from token not found")
		return models.User{}, false
	}
	return user, true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="adboard"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "Authentication required",
		"status":  http.StatusUnauthorized,
	})
}
