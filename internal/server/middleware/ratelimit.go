package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"cookplane/internal/store"
	"cookplane/pkg/api"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware limits request rates per authenticated user.
// Limits come from the users table; a limit of 0 means unlimited.
func RateLimitMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limiters := sync.Map{} // user ID -> *cachedLimiter

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(api.ErrorResponse{
					Error: "Unauthorized",
					Code:  api.CodeUnauthorized,
				})
				return
			}

			if user.RateLimit > 0 {
				limiter := getOrCreateLimiter(&limiters, user, 5*time.Minute)
				if !limiter.Allow() {
					w.Header().Set("Retry-After", "1")
					http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

func getOrCreateLimiter(limiters *sync.Map, user *store.User, ttl time.Duration) *rate.Limiter {
	if v, ok := limiters.Load(user.ID); ok {
		cached := v.(*cachedLimiter)
		if time.Now().Before(cached.expiresAt) {
			return cached.limiter
		}
		// expired, need to create new
	}

	limiter := rate.NewLimiter(
		rate.Limit(user.RateLimit),
		user.RateLimitBurst,
	)
	limiters.Store(user.ID, &cachedLimiter{
		limiter:   limiter,
		expiresAt: time.Now().Add(ttl),
	})
	return limiter
}
