package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	headerName = "X-Request-ID"
	ctxKey     = "request_id"
)

// Middleware tags every request with an ID and echoes it on the response,
// reusing a caller-supplied X-Request-ID when present so attainment runs
// can be traced across the calling platform's logs.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(headerName)
		if reqID == "" {
			reqID = generateID()
		}

		c.Set(ctxKey, reqID)
		c.Writer.Header().Set(headerName, reqID)

		c.Next()
	}
}

// Value returns the request ID stored in the Gin context, or empty when the
// middleware did not run.
func Value(c *gin.Context) string {
	if v, exists := c.Get(ctxKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func generateID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}

	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
