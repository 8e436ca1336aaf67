package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig selects between the permissive development policy and the
// allow-list used in production.
type CORSConfig struct {
	Production       bool
	AllowedOrigins   []string
	AllowCredentials bool
}

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Origin, Content-Type, Authorization, X-Request-ID"
)

// CORSMiddleware configures CORS headers.
//   - Outside production any origin ("*") is allowed.
//   - In production the incoming Origin is reflected only when it is in
//     AllowedOrigins; Access-Control-Allow-Credentials is added when enabled.
func CORSMiddleware(cfg CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if origin := strings.TrimSpace(o); origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		c.Header("Vary", "Origin")

		if !cfg.Production {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", corsMethods)
			c.Header("Access-Control-Allow-Headers", corsHeaders)
		} else if origin := c.Request.Header.Get("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Methods", corsMethods)
				c.Header("Access-Control-Allow-Headers", corsHeaders)
				if cfg.AllowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
			}
		}

		if c.Request.Method == http.MethodOptions {
			// Preflight: with a rejected origin the headers above are absent
			// and the browser blocks the request.
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
