package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goteo-dev/goteo/shared/domain"
	jwt_internal "github.com/goteo-dev/goteo/shared/jwt"
	"github.com/stretchr/testify/assert"
)

func TestAuth(t *testing.T) {
	jwtService := jwt_internal.New("test_secret", time.Hour)
	admin := &domain.Viewer{Id: "root", Admin: true}
	tokenAdmin, _ := jwtService.NewToken(*admin)
	user := &domain.Viewer{Id: "ann"}
	token, _ := jwtService.NewToken(*user)

	tests := []struct {
		name           string
		adminOnly      bool
		cookie         *http.Cookie
		bearer         string
		expectedStatus int
		expectedViewer *domain.Viewer
	}{
		{
			name:           "Valid token - Admin",
			adminOnly:      true,
			cookie:         &http.Cookie{Name: "accessToken", Value: tokenAdmin},
			expectedStatus: http.StatusOK,
			expectedViewer: admin,
		},
		{
			name:           "Valid token - Non-admin",
			cookie:         &http.Cookie{Name: "accessToken", Value: token},
			expectedStatus: http.StatusOK,
			expectedViewer: user,
		},
		{
			name:           "Bearer header",
			bearer:         token,
			expectedStatus: http.StatusOK,
			expectedViewer: user,
		},
		{
			name:           "No token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid token",
			cookie:         &http.Cookie{Name: "accessToken", Value: "invalid_token"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Non-admin accessing admin route",
			adminOnly:      true,
			cookie:         &http.Cookie{Name: "accessToken", Value: token},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://example.com", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rr := httptest.NewRecorder()
			authMw := NewAuth(jwtService)
			var middleware func(http.Handler) http.Handler
			if tt.adminOnly {
				middleware = authMw.AdminOnly()
			} else {
				middleware = authMw.NeedAuth()
			}

			var gotViewer *domain.Viewer
			handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotViewer = GetViewerFromContext(r)
				w.WriteHeader(http.StatusOK)
			}))
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectedViewer, gotViewer)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	jwtService := jwt_internal.New("test_secret", time.Hour)
	token, _ := jwtService.NewToken(domain.Viewer{Id: "ann"})
	mw := NewAuth(jwtService).OptionalAuth()

	run := func(req *http.Request) (*domain.Viewer, int) {
		var got *domain.Viewer
		rr := httptest.NewRecorder()
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetViewerFromContext(r)
		})).ServeHTTP(rr, req)
		return got, rr.Code
	}

	anon, code := run(httptest.NewRequest("GET", "/", nil))
	assert.Nil(t, anon)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "broken"})
	anon, code = run(req)
	assert.Nil(t, anon)
	assert.Equal(t, http.StatusOK, code)

	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	viewer, _ := run(req)
	assert.Equal(t, &domain.Viewer{Id: "ann"}, viewer)
}
