package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"pocketbank/internal/service"
)

type contextKey string

const accessContextKey contextKey = "access"

// authenticated validates the bearer token, resolves the caller's Access
// through the identity store, and stores it in the request context.
func (h *Handler) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			h.respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			h.respondError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return h.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			h.respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			h.respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		sub, ok := claims["sub"].(string)
		if !ok {
			h.respondError(w, http.StatusUnauthorized, "invalid token payload")
			return
		}
		userID, err := uuid.Parse(sub)
		if err != nil {
			h.respondError(w, http.StatusUnauthorized, "invalid token subject")
			return
		}

		access, err := h.identity.ResolveAccess(r.Context(), userID)
		if err != nil {
			h.respondError(w, http.StatusUnauthorized, "unknown user")
			return
		}

		ctx := context.WithValue(r.Context(), accessContextKey, access)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessFrom(r *http.Request) service.Access {
	access, _ := r.Context().Value(accessContextKey).(service.Access)
	return access
}
