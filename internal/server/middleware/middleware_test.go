package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/farmhub/internal/domain/apperr"
	"github.com/mamadbah2/farmhub/internal/domain/models"
)

type tokenAuthenticator map[string]*models.User

func (a tokenAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.Auth("Authentication required")
	}
	user, ok := a[token]
	if !ok {
		return nil, apperr.Auth("Invalid or expired token")
	}
	return user, nil
}

func TestAuthenticateTokenSources(t *testing.T) {
	gin.SetMode(gin.TestMode)
	users := tokenAuthenticator{
		"header-token": {Username: "header"},
		"cookie-token": {Username: "cookie"},
	}

	r := gin.New()
	r.GET("/me", Authenticate(users, zaptest.NewLogger(t)), func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.String(http.StatusOK, user.Username)
	})

	cases := []struct {
		name   string
		header string
		cookie string
		status int
		user   string
	}{
		{"bearer header", "Bearer header-token", "", http.StatusOK, "header"},
		{"header wins over cookie", "Bearer header-token", "cookie-token", http.StatusOK, "header"},
		{"cookie only", "", "cookie-token", http.StatusOK, "cookie"},
		{"empty bearer falls back to cookie", "Bearer ", "cookie-token", http.StatusOK, "cookie"},
		{"bare scheme falls back to cookie", "Bearer", "cookie-token", http.StatusOK, "cookie"},
		{"other scheme falls back to cookie", "Basic YWxpY2U6cHc=", "cookie-token", http.StatusOK, "cookie"},
		{"empty bearer without cookie", "Bearer ", "", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer nope", "cookie-token", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.user != "" {
				assert.Equal(t, tc.user, rec.Body.String())
			}
		})
	}
}

func TestAuthenticateHidesUnclassifiedErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Authenticate(failingAuthenticator{}, zaptest.NewLogger(t)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

type failingAuthenticator struct{}

func (failingAuthenticator) Authenticate(context.Context, string) (*models.User, error) {
	return nil, context.DeadlineExceeded
}
