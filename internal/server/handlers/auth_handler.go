package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/server/middleware"
	"github.com/mamadbah2/farmhub/internal/service/auth"
)

// AuthHandler exposes sign-up, sign-in and the profile endpoints.
type AuthHandler struct {
	svc          *auth.Service
	cookieSecure bool
	logger       *zap.Logger
}

// NewAuthHandler constructs the HTTP handler adapter.
func NewAuthHandler(svc *auth.Service, cookieSecure bool, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{svc: svc, cookieSecure: cookieSecure, logger: logger}
}

// Signup registers a local account.
func (h *AuthHandler) Signup(c *gin.Context) {
	var in auth.RegisterInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}

	session, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.startSession(c, http.StatusCreated, session)
}

// Signin authenticates with an email or username and a password.
func (h *AuthHandler) Signin(c *gin.Context) {
	var in auth.LoginInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}

	session, err := h.svc.Login(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.startSession(c, http.StatusOK, session)
}

// Google signs in a user whose identity the client obtained from Google.
func (h *AuthHandler) Google(c *gin.Context) {
	var in auth.FederatedInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}

	session, err := h.svc.FederatedSignIn(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.startSession(c, http.StatusOK, session)
}

// Signout clears the session cookie.
func (h *AuthHandler) Signout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, "", -1, "/", "", h.cookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out successfully"})
}

// Profile returns the current user.
func (h *AuthHandler) Profile(c *gin.Context) {
	user, err := h.svc.Profile(c.Request.Context(), owner(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile changes the username, farm name or avatar.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var in auth.ProfileInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), owner(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword replaces the password after verifying the current one.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var in auth.PasswordInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), owner(c), in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (h *AuthHandler) startSession(c *gin.Context, status int, session *auth.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, session.Token, int(h.svc.TokenTTL().Seconds()), "/", "", h.cookieSecure, true)
	c.JSON(status, session)
}
