package security

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxBodyBytes   int64         `json:"max_body_bytes"`
	RequestTimeout time.Duration `json:"request_timeout"`
	AllowedOrigins []string      `json:"allowed_origins"`
	ContentTypes   []string      `json:"content_types"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxBodyBytes:   4 << 20,
		RequestTimeout: 30 * time.Second,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		ContentTypes: []string{
			"application/json",
			"application/yaml",
			"application/x-yaml",
			"text/yaml",
		},
	}
}

// SecurityMiddleware bundles the request guards mounted on the API router
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{config: config}
}

// SecurityHeaders adds security headers to responses
func (sm *SecurityMiddleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "no-referrer")

	// responses are data only
	c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

	if c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	c.Next()
}

// ValidateContentType rejects request bodies that are neither JSON nor YAML
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	contentType := strings.ToLower(c.GetHeader("Content-Type"))

	if contentType == "" || c.Request.ContentLength == 0 {
		c.Next()
		return
	}

	for _, allowed := range sm.config.ContentTypes {
		if strings.HasPrefix(contentType, allowed) {
			c.Next()
			return
		}
	}

	appErr := apperrors.NewValidationError("unsupported content type", contentType)
	appErr.RequestID = c.GetHeader("X-Request-ID")
	c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, appErr.Response())
}

// LimitBody caps how much of a request body handlers may read
func (sm *SecurityMiddleware) LimitBody(c *gin.Context) {
	if c.Request.Body != nil && sm.config.MaxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	}
	c.Next()
}

// BodyTooLarge converts a read failure caused by LimitBody into a validation error
func BodyTooLarge(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperrors.NewValidationError(
			"request body too large",
			fmt.Sprintf("limit is %d bytes", maxErr.Limit),
		)
	}
	return err
}

// RequestTimeout enforces request timeout
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}

// CORSConfig builds the CORS handler for the configured origins. A "*"
// entry allows every origin without credentials.
func (sm *SecurityMiddleware) CORSConfig() gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	origins := make([]string, 0, len(sm.config.AllowedOrigins))
	for _, origin := range sm.config.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			config.AllowAllOrigins = true
			config.AllowCredentials = false
			origins = nil
			break
		}
		if origin != "" {
			origins = append(origins, origin)
		}
	}

	if !config.AllowAllOrigins {
		if len(origins) == 0 {
			// nothing configured: behave as same-origin only
			return func(c *gin.Context) { c.Next() }
		}
		config.AllowOrigins = origins
	}

	return cors.New(config)
}
