package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"storefront/apperr"
	"storefront/auth"
	"storefront/globals"
	"storefront/utils"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticate verifies the bearer token and stores its claims in the
// request context. WebSocket upgrades may pass the token as ?access_token=
// because browsers cannot set headers on them.
func Authenticate(tokens TokenVerifier) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			tokenString, ok := bearerToken(r)
			if !ok && websocket.IsWebSocketUpgrade(r) {
				tokenString = r.URL.Query().Get("access_token")
				ok = tokenString != ""
			}
			if !ok {
				utils.RespondWithError(w, http.StatusUnauthorized, "Missing token")
				return
			}

			claims, err := tokens.Verify(tokenString)
			if err != nil {
				utils.RespondWithError(w, http.StatusUnauthorized, apperr.Message(err))
				return
			}

			ctx := context.WithValue(r.Context(), globals.ClaimsKey, claims)
			next(w, r.WithContext(ctx), ps)
		}
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !claims.Admin {
			utils.RespondWithError(w, http.StatusForbidden, "Unauthorized")
			return
		}
		next(w, r, ps)
	}
}

func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(globals.ClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, globals.ClaimsKey, claims)
}

// CanAccessUser reports whether the caller may act on userID's resources.
func CanAccessUser(claims *auth.Claims, userID string) bool {
	if claims == nil {
		return false
	}
	return claims.Admin || claims.UserID == userID
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Chain composes handle middlewares; the first one listed runs first.
func Chain(mws ...func(httprouter.Handle) httprouter.Handle) func(httprouter.Handle) httprouter.Handle {
	return func(final httprouter.Handle) httprouter.Handle {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}
