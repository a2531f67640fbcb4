package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goteo-dev/goteo/shared/domain"
	jwt_internal "github.com/goteo-dev/goteo/shared/jwt"
	"github.com/goteo-dev/goteo/shared/logger"
	"github.com/goteo-dev/goteo/shared/utils"
)

// Key to store the viewer in the request context
type key int

const ViewerKey key = 0

// Auth resolves the viewer from the access token issued by the outer
// application.
type Auth struct {
	jwtService jwt_internal.JwtService
}

func NewAuth(jwtService jwt_internal.JwtService) *Auth {
	return &Auth{jwtService: jwtService}
}

// NeedAuth returns middleware that requires authentication
func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return a.auth(false)
}

// AdminOnly returns middleware that requires admin authentication
func (a *Auth) AdminOnly() func(http.Handler) http.Handler {
	return a.auth(true)
}

// OptionalAuth populates the viewer when the token is valid and lets
// anonymous requests through.
func (a *Auth) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewer, _ := a.extractViewer(r)
			if viewer != nil {
				next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), viewer)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *Auth) extractViewer(r *http.Request) (*domain.Viewer, error) {
	// Cookie first (browser clients), then the Authorization header
	var tokenString string
	accessCookie, err := r.Cookie("accessToken")
	if err == nil {
		tokenString = accessCookie.Value
	} else if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		tokenString = token
	}

	if tokenString == "" {
		return nil, errNoToken
	}

	token, err := a.jwtService.DecodeToken(tokenString)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidClaims
	}

	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return nil, errInvalidClaims
	}

	// admin is optional, absent means a regular user
	isAdmin, _ := claims["admin"].(bool)

	return &domain.Viewer{Id: domain.UserId(uid), Admin: isAdmin}, nil
}

var (
	errNoToken       = errorString("no token")
	errInvalidClaims = errorString("invalid claims")
)

type errorString string

func (e errorString) Error() string { return string(e) }

func (a *Auth) auth(adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewer, err := a.extractViewer(r)
			if err != nil {
				switch err {
				case errNoToken:
					http.Error(w, "Please sign-in", http.StatusUnauthorized)
				case errInvalidClaims:
					logger.FromContext(r.Context()).Error("invalid jwt claims")
					http.Error(w, "Invalid token", http.StatusUnauthorized)
				default:
					utils.WriteErrorAndStatusCode(w, err)
				}
				return
			}

			if adminOnly && !viewer.Admin {
				http.Error(w, "Access denied. Only for admin", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), viewer)))
		})
	}
}

func WithViewer(ctx context.Context, viewer *domain.Viewer) context.Context {
	return context.WithValue(ctx, ViewerKey, viewer)
}

// GetViewerFromContext returns nil for anonymous requests.
func GetViewerFromContext(r *http.Request) *domain.Viewer {
	viewer, ok := r.Context().Value(ViewerKey).(*domain.Viewer)
	if !ok {
		return nil
	}
	return viewer
}
