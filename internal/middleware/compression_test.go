package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCompressionRouter(cm *CompressionMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(cm.Handler())

	r.GET("/large", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": strings.Repeat("coefficient ", 500)})
	})
	r.GET("/small", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/text", func(c *gin.Context) {
		c.String(http.StatusOK, strings.Repeat("plain ", 500))
	})
	r.DELETE("/empty", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/error", func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": strings.Repeat("missing ", 500)})
	})
	return r
}

func TestCompressionMiddleware(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())
	r := setupCompressionRouter(cm)

	tests := []struct {
		name             string
		method           string
		path             string
		acceptEncoding   string
		expectedStatus   int
		expectCompressed bool
	}{
		{"large json", http.MethodGet, "/large", "gzip, deflate", http.StatusOK, true},
		{"large json without gzip", http.MethodGet, "/large", "", http.StatusOK, false},
		{"small json", http.MethodGet, "/small", "gzip", http.StatusOK, false},
		{"plain text", http.MethodGet, "/text", "gzip", http.StatusOK, false},
		{"no content", http.MethodDelete, "/empty", "gzip", http.StatusNoContent, false},
		{"aborted with body", http.MethodGet, "/error", "gzip", http.StatusNotFound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if !tt.expectCompressed {
				assert.Empty(t, w.Header().Get("Content-Encoding"))
				return
			}

			assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
			assert.Contains(t, w.Header().Values("Vary"), "Accept-Encoding")

			gz, err := gzip.NewReader(w.Body)
			require.NoError(t, err)
			body, err := io.ReadAll(gz)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(body), "{"))
		})
	}
}

func TestCompressionStats(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())
	r := setupCompressionRouter(cm)

	for _, path := range []string{"/large", "/small"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	stats := cm.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, int64(1), stats["compressed_requests"])
	assert.Less(t, stats["compression_ratio"].(float64), 1.0)
	assert.Greater(t, stats["compression_savings"].(float64), 0.0)
}

func TestCompressionSkipsEncodedResponses(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(cm.Handler())
	r.GET("/encoded", func(c *gin.Context) {
		c.Header("Content-Encoding", "br")
		c.Data(http.StatusOK, "application/json", []byte(strings.Repeat("x", 4096)))
	})

	req := httptest.NewRequest(http.MethodGet, "/encoded", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	assert.Equal(t, 4096, w.Body.Len())
}
