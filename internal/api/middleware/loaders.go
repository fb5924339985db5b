package middleware

import (
	"net/http"

	"github.com/zatekoja/hospital-booking/backend/internal/application/loaders"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
)

// Dataloaders attaches a fresh set of request-scoped loaders
func Dataloaders(accounts repositories.AccountRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := loaders.WithLoaders(r.Context(), loaders.NewLoaders(accounts))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
