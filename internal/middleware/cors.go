package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS allows the POS UI origins. "*" (or an empty list) allows any origin,
// which is what local development uses.
func CORS(origins string) gin.HandlerFunc {
	permitidos := make(map[string]bool)
	cualquiera := strings.TrimSpace(origins) == ""
	for _, o := range strings.Split(origins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			cualquiera = true
		}
		if o != "" {
			permitidos[o] = true
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case cualquiera:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && permitidos[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
