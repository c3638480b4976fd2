package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the id across the gateway, the outbox and the projector logs
	CorrelationIDHeader = "X-Correlation-ID"

	CorrelationIDKey = "correlation_id"

	maxCorrelationIDLength = 128
)

// CorrelationID echoes a caller-supplied id or mints one. Ids that are too long or
// carry non-printable characters are replaced so they cannot pollute the logs.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if !validCorrelationID(correlationID) {
			correlationID = uuid.NewString()
		}

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)

		c.Next()
	}
}

// GetCorrelationID returns "" outside a CorrelationID chain
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}

func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}

// abortWithError writes the error envelope shared with the handlers
func abortWithError(c *gin.Context, status int, code, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(status, response)
}
