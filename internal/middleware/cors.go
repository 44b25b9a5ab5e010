package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS sets cross-origin headers and answers preflight requests. The
// allowlist is a comma-separated set of origins; "*" (or an empty list)
// allows every origin. Requests from origins outside the list get no CORS
// headers at all.
func CORS(allowlist string) gin.HandlerFunc {
	allowAll := false
	origins := make(map[string]struct{})
	for _, o := range strings.Split(allowlist, ",") {
		o = strings.TrimSpace(o)
		switch o {
		case "":
		case "*":
			allowAll = true
		default:
			origins[o] = struct{}{}
		}
	}
	if len(origins) == 0 {
		allowAll = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		_, listed := origins[origin]
		switch {
		case allowAll:
			setCORSHeaders(c, "*")
		case listed:
			setCORSHeaders(c, origin)
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.Header("Access-Control-Max-Age", "86400")
}
