// Package middleware provides HTTP middleware components
// following the Chain of Responsibility pattern
package middleware

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/alchemorsel/recipediff/internal/infrastructure/config"
	"github.com/alchemorsel/recipediff/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipediff/internal/infrastructure/security"
	"github.com/alchemorsel/recipediff/pkg/errors"
	"github.com/andybalholm/brotli"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Context keys set by the middleware
const (
	RequestIDKey = "request_id"
	UserIDKey    = "user_id"

	RequestIDHeader = "X-Request-ID"
)

// TokenVerifier verifies bearer tokens
type TokenVerifier interface {
	Verify(token string) (*security.Identity, error)
}

// Middleware provides all middleware functions
type Middleware struct {
	config   *config.Config
	logger   *zap.Logger
	limiters *ipLimiters
	metrics  *monitoring.MetricsCollector
	verifier TokenVerifier
}

// New creates a new middleware instance. metrics may be nil.
func New(cfg *config.Config, logger *zap.Logger, metrics *monitoring.MetricsCollector, verifier TokenVerifier) *Middleware {
	return &Middleware{
		config:   cfg,
		logger:   logger,
		limiters: newIPLimiters(cfg.RateLimit),
		metrics:  metrics,
		verifier: verifier,
	}
}

// RequestID adds a unique request ID to the context
func (m *Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if request ID exists in header
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// Logger provides structured logging for requests
func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		// Skip logging for health checks
		if strings.HasPrefix(path, "/health") {
			return
		}

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.String()

		if raw != "" {
			path = path + "?" + raw
		}

		fields := []zap.Field{
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("user_agent", c.Request.UserAgent()),
		}

		// Add user ID if authenticated
		if userID := c.GetString(UserIDKey); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}

		switch {
		case statusCode >= 500:
			m.logger.Error("Server error", append(fields, zap.String("error", errorMessage))...)
		case statusCode >= 400:
			m.logger.Warn("Client error", append(fields, zap.String("error", errorMessage))...)
		default:
			m.logger.Info("Request completed", fields...)
		}
	}
}

// Recovery recovers from panics and returns 500 error
func (m *Middleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("Panic recovered",
					zap.String("request_id", c.GetString(RequestIDKey)),
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())),
				)

				appErr := errors.NewInternalError("An unexpected error occurred")
				c.AbortWithStatusJSON(appErr.StatusCode(), errors.ToErrorResponse(appErr, c.GetString(RequestIDKey)))
			}
		}()

		c.Next()
	}
}

// CORS handles Cross-Origin Resource Sharing. Every origin is allowed in
// development.
func (m *Middleware) CORS() gin.HandlerFunc {
	if !m.config.Server.EnableCORS {
		return func(c *gin.Context) { c.Next() }
	}

	corsConfig := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	switch origins := m.config.Server.AllowedOrigins; {
	case m.config.IsDevelopment() || contains(origins, "*"):
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	case len(origins) == 0:
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	default:
		corsConfig.AllowOrigins = origins
	}

	return cors.New(corsConfig)
}

// RateLimit limits the number of requests per client IP
func (m *Middleware) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.config.RateLimit.Enable {
			c.Next()
			return
		}

		if !m.limiters.allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			_ = c.Error(errors.NewTooManyRequestsError())
			c.Abort()
			return
		}

		c.Next()
	}
}

// Tracing starts a server span per request
func (m *Middleware) Tracing() gin.HandlerFunc {
	if !m.config.Monitoring.EnableTracing {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(m.config.App.Name)
}

// Metrics records request counts and latencies
func (m *Middleware) Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.metrics.RequestStarted()
		defer m.metrics.RequestFinished()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.metrics.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// Security adds security headers
func (m *Middleware) Security() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if m.config.IsProduction() {
			c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// Timeout bounds the request context
func (m *Middleware) Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// BodyLimit caps the size of request bodies
func (m *Middleware) BodyLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit := m.config.Server.MaxBodyBytes; limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// ErrorHandler turns the errors attached by handlers into the API error
// response. Handlers call c.Error and return without writing a body.
func (m *Middleware) ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := toAppError(err)
		requestID := c.GetString(RequestIDKey)

		if appErr.StatusCode() >= http.StatusInternalServerError {
			m.logger.Error("Request error",
				zap.String("request_id", requestID),
				zap.String("code", string(appErr.Code)),
				zap.String("message", appErr.Message),
				zap.Error(err),
				zap.String("stack", appErr.StackTrace),
			)
		}

		c.JSON(appErr.StatusCode(), errors.ToErrorResponse(appErr, requestID))
	}
}

func toAppError(err error) *errors.AppError {
	var maxBytes *http.MaxBytesError
	if stderrors.As(err, &maxBytes) {
		return errors.NewBadRequestError("request body too large").
			WithMetadata("limit", maxBytes.Limit)
	}
	return errors.Wrap(err, "An unexpected error occurred")
}

// Auth requires a valid bearer token and stores the caller's user id
func (m *Middleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok || m.verifier == nil {
			_ = c.Error(errors.NewUnauthorizedError("Authorization token required"))
			c.Abort()
			return
		}

		identity, err := m.verifier.Verify(token)
		if err != nil {
			m.logger.Debug("Token rejected",
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.Error(err),
			)
			_ = c.Error(errors.NewUnauthorizedError("Invalid or expired token").WithCause(err))
			c.Abort()
			return
		}

		c.Set(UserIDKey, identity.UserID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Compression compresses responses with brotli or gzip, whichever the
// client prefers
func (m *Middleware) Compression() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.config.Server.EnableCompression || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		original := c.Writer
		compressor := brotli.HTTPCompressor(original, c.Request)
		c.Writer = &compressWriter{ResponseWriter: original, w: compressor}
		completed := false
		defer func() {
			c.Writer = original
			if !completed {
				// A handler panicked. Leave the stream unterminated so
				// Recovery can write a plain error body.
				if !original.Written() {
					original.Header().Del("Content-Encoding")
					original.Header().Del("Vary")
				}
				return
			}
			if err := compressor.Close(); err != nil && !stderrors.Is(err, http.ErrBodyNotAllowed) {
				m.logger.Debug("Failed to flush compressed response", zap.Error(err))
			}
		}()

		c.Next()
		completed = true
	}
}

type compressWriter struct {
	gin.ResponseWriter
	w io.Writer
}

func (cw *compressWriter) Write(b []byte) (int, error) {
	cw.Header().Del("Content-Length")
	return cw.w.Write(b)
}

func (cw *compressWriter) WriteString(s string) (int, error) {
	return cw.Write([]byte(s))
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
