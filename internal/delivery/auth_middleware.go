package delivery

import (
	"context"
	"net/http"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
	"github.com/video-db/videodb-capture-quickstart/internal/ports"
)

type contextKey string

const userKey contextKey = "user"

// AuthMiddleware resolves the X-Access-Token header against the user
// table and stores the user on the request context.
func AuthMiddleware(users ports.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Access-Token")
			if token == "" {
				http.Error(w, "missing access token", http.StatusUnauthorized)
				return
			}

			user, err := users.GetByAccessToken(r.Context(), token)
			if err != nil || user == nil {
				http.Error(w, "invalid access token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom returns the authenticated user; only valid behind
// AuthMiddleware.
func UserFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}
