package middleware

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"mindmesh-backend/infrastructure/config"
	"mindmesh-backend/pkg/auth"
	"mindmesh-backend/pkg/common"
)

// Authenticate validates the bearer token on every request and attaches the
// user context. Requests are also rate limited per client IP before the token
// is even parsed.
func Authenticate(cfg *config.Config, logger *zap.Logger) func(next http.Handler) http.Handler {
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
	})
	if err != nil {
		logger.Error("JWT validator unavailable, rejecting all authenticated routes", zap.Error(err))
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				common.RespondError(w, http.StatusUnauthorized,
					common.StandardErrorCodes.Unauthorized, "authentication unavailable")
			})
		}
	}

	ipLimiter := auth.NewIPRateLimiter(120)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ipLimiter.Allow(clientIP(r)) {
				common.RespondError(w, http.StatusTooManyRequests,
					"TOO_MANY_REQUESTS", "rate limit exceeded")
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				common.RespondError(w, http.StatusUnauthorized,
					common.StandardErrorCodes.Unauthorized, "missing bearer token")
				return
			}

			user, err := validator.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.Debug("Token rejected", zap.Error(err))
				common.RespondError(w, http.StatusUnauthorized,
					common.StandardErrorCodes.Unauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
