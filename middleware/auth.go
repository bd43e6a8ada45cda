package middleware

import (
	"context"
	"net/http"

	"keijiban-backend/constants"
	"keijiban-backend/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

// Auth vérifie la session: token JWT en en-tête Authorization ou dans le cookie de session
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, msg := sessionToken(r)
			if tokenString == "" {
				utils.RespondError(w, http.StatusUnauthorized, msg)
				return
			}

			claims, err := utils.ValidateToken(tokenString, jwtSecret)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, constants.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionToken retourne le token de la requête, ou le message d'erreur à renvoyer
func sessionToken(r *http.Request) (string, string) {
	if header := r.Header.Get(constants.HeaderAuthorization); header != "" {
		token, ok := utils.ExtractBearer(header)
		if !ok {
			return "", constants.ErrInvalidTokenFormat
		}
		return token, ""
	}
	if cookie, err := r.Cookie(constants.SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, ""
	}
	return "", constants.ErrMissingToken
}

// GetUserFromContext récupère les informations de l'utilisateur depuis le contexte
func GetUserFromContext(ctx context.Context) *utils.Claims {
	claims, ok := ctx.Value(UserContextKey).(*utils.Claims)
	if !ok {
		return nil
	}
	return claims
}

// WithUser place des revendications dans le contexte
func WithUser(ctx context.Context, claims *utils.Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}
