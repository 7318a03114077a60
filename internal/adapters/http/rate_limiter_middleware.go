package http

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"payment-gateway/internal/core/ports"
)

// RateLimiterMiddleware limits request frequency per client IP.
type RateLimiterMiddleware struct {
	repo   ports.RateLimiterRepository
	limit  int
	window time.Duration
	logger *slog.Logger
}

func NewRateLimiterMiddleware(repo ports.RateLimiterRepository, limit int, window time.Duration, logger *slog.Logger) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		repo:   repo,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

func (m *RateLimiterMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			m.logger.Error("failed to extract client ip", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := m.repo.IsAllowed(r.Context(), ip, m.limit, m.window)
		if err != nil {
			// Fail open: a broken rate limiter must not take down all
			// traffic.
			m.logger.Error("rate limit check failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			writeJSONError(w, "too many requests", http.StatusTooManyRequests, m.logger)
			return
		}

		next.ServeHTTP(w, r)
	})
}
