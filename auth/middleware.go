package auth

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"cosmossdk.io/log"
	"github.com/gin-gonic/gin"
)

// Inbound request signature header set.
const (
	HeaderKeyID     = "X-Api-Key-Id"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// Middleware enforces the request-signature scheme on every route it
// wraps. The body is read once and restored for downstream handlers.
func Middleware(verifier *SignatureVerifier, logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		keyID := c.GetHeader(HeaderKeyID)
		signature := c.GetHeader(HeaderSignature)
		tsHeader := c.GetHeader(HeaderTimestamp)
		if keyID == "" || signature == "" || tsHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing signature headers"})
			return
		}

		timestamp, err := strconv.ParseInt(tsHeader, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid timestamp"})
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "unable to read request body"})
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		if err := verifier.Verify(c.Request.Context(), keyID, timestamp, signature, c.Request.Method, c.Request.URL.Path, body); err != nil {
			logger.Debug("Request authentication failed", "key_id", keyID, "path", c.Request.URL.Path, "error", err)
			status := http.StatusUnauthorized
			if errors.Is(err, ErrExpiredTimestamp) {
				status = http.StatusForbidden
			}
			c.AbortWithStatusJSON(status, gin.H{"message": err.Error()})
			return
		}

		c.Set("key_id", keyID)
		c.Next()
	}
}
