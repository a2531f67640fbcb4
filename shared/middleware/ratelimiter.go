package middleware

import (
	"fmt"
	"net"
	"net/http"

	"github.com/goteo-dev/goteo/shared/logger"
	"github.com/goteo-dev/goteo/shared/middleware/ratelimiter"
	"github.com/goteo-dev/goteo/shared/utils"
)

// RateLimit rejects requests once identity's bucket is empty. Admins are
// never limited.
func RateLimit(rl *ratelimiter.Limiter, identity func(r *http.Request) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if viewer := GetViewerFromContext(r); viewer != nil && viewer.Admin {
				next.ServeHTTP(w, r)
				return
			}

			key, err := identity(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if !rl.Allow(key) {
				logger.FromContext(r.Context()).Warn("rate limit exceeded", "key", key)
				http.Error(w, "Rate limit exceeded, try again later", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ViewerIdentity keys signed-in viewers by id and everyone else by IP.
func ViewerIdentity(r *http.Request) (string, error) {
	if viewer := GetViewerFromContext(r); viewer != nil {
		return "user:" + string(viewer.Id), nil
	}
	ip, err := GetIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + ip, nil
}

// GetIP extracts the client IP from RemoteAddr. Forwarding headers are not
// trusted.
func GetIP(r *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("invalid IP address: %s", ip)
	}
	return ip, nil
}
