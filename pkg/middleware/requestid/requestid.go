package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// Header is the wire name of the correlation id, echoed back on every
	// response.
	Header = "X-Request-ID"

	contextKey = "request_id"
)

// Middleware tags each request with a correlation id, reusing the caller's
// header when present. The access logger and error responses pick it up from
// the context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = newID()
		}
		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)
		c.Next()
	}
}

// Value returns the correlation id for the request, or "" outside the
// middleware.
func Value(c *gin.Context) string {
	v, ok := c.Get(contextKey)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}

// newID produces 16 random bytes hex-encoded, falling back to a timestamp if
// the entropy source fails.
func newID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
