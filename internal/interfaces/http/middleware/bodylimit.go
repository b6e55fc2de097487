package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PayloadTooLargeMessage is the error body for oversized requests
const PayloadTooLargeMessage = "Payload too large"

// BodyLimit rejects requests whose declared length exceeds maxBytes with 413
// and caps the body reader for chunked requests. Handlers detect a capped
// read with IsBodyTooLarge.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": PayloadTooLargeMessage})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// IsBodyTooLarge reports whether err came from reading past the BodyLimit cap
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
