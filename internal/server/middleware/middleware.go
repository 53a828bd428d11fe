// Package middleware holds the gin middlewares shared by every route group.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/domain/apperr"
	"github.com/mamadbah2/farmhub/internal/domain/models"
)

const (
	// CookieName is the session cookie set by the sign-in handlers.
	CookieName = "access_token"
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"

	userKey      = "farmhub.user"
	requestIDKey = "farmhub.request_id"
)

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Authenticate rejects requests without a valid session and attaches the
// user to the context otherwise.
func Authenticate(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		user, err := auth.Authenticate(c.Request.Context(), tokenFrom(c))
		if err != nil {
			status, message := http.StatusUnauthorized, "Authentication required"
			if appErr, ok := apperr.As(err); ok {
				status, message = appErr.StatusCode(), appErr.Message
			} else {
				logger.Error("authentication failed", zap.Error(err), zap.String("request_id", RequestID(c)))
				status, message = http.StatusInternalServerError, "Internal server error"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": message})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// tokenFrom prefers a non-empty bearer token and falls back to the session
// cookie.
func tokenFrom(c *gin.Context) string {
	if fields := strings.Fields(c.GetHeader("Authorization")); len(fields) == 2 && fields[0] == "Bearer" {
		return fields[1]
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}

// CurrentUser returns the user attached by Authenticate.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// RequestIDMiddleware propagates the caller's X-Request-ID or mints one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestID returns the id assigned to the current request.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logger logs one line per completed request.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", RequestID(c)))
	}
}

// Metrics records request counts and latencies on reg, labelled by route
// template so that ids do not explode cardinality.
func Metrics(reg prometheus.Registerer) gin.HandlerFunc {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farmhub_http_requests_total",
		Help: "HTTP requests handled, by method, route and status.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "farmhub_http_request_duration_seconds",
		Help:    "HTTP request latency, by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	reg.MustRegister(requests, duration)

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
