package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/time-capsule/internal/apperror"
	"github.com/sakif/time-capsule/internal/model"
)

// Messages sent back with 401 responses from the guard.
const (
	MsgNoToken     = "Not authorized, no token"
	MsgTokenFailed = "Not authorized, token failed"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "user", u), ANY package that knows the string "user"
// can read or shadow your value. Using a package-private type prevents collisions.
type contextKey string

const userKey contextKey = "user"

// UserLookup resolves a token subject to a user record without the password hash.
// repository.UserRepository satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// GUARD STEPS:
//  1. Authorization header missing or not starting with "Bearer" → 401 MsgNoToken
//  2. The token is the second space-separated field of the header
//  3. Signature, issuer or expiry check fails → 401 MsgTokenFailed
//  4. The subject is looked up in the identity store
//  5. The user goes into the request context and the chain continues
//
// A valid token whose user no longer exists still passes: the context then
// holds a nil user and handlers decide what to do with it (see UserFromContext).
//
// MIDDLEWARE PATTERN IN GO:
// A middleware is a function that takes an http.Handler and returns a new
// http.Handler. Chi applies them in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer") {
				writeUnauthorized(w, MsgNoToken)
				return
			}

			userID, err := tokens.Validate(bearerToken(header))
			if err != nil {
				logger.Warn("token verification failed",
					"path", r.URL.Path,
					"error", err,
				)
				writeUnauthorized(w, MsgTokenFailed)
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			switch {
			case errors.Is(err, apperror.ErrNotFound):
				logger.Warn("token subject no longer exists", "user_id", userID)
				user = nil
			case err != nil:
				logger.Error("resolving token subject", "user_id", userID, "error", err)
				writeUnauthorized(w, MsgTokenFailed)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying u. A nil u is stored as a nil
// identity, which UserFromContext reports as unauthenticated.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext retrieves the authenticated user from the request context.
//
// Returns (nil, false) if the guard did not run or the token's user no longer
// exists. Returns (user, true) otherwise.
//
// Usage in handlers:
//
//	user, ok := auth.UserFromContext(r.Context())
//	if !ok {
//	    // no usable identity
//	}
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, _ := ctx.Value(userKey).(*model.User)
	return u, u != nil
}

// bearerToken returns the second space-separated field of the header, or ""
// when there is none. An empty token then fails verification.
func bearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
