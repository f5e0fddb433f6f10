package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success writes a 200 envelope.
func Success(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": msg,
		"data":    data,
	})
}

// Fail writes a 400 envelope.
func Fail(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
		"data":    data,
	})
}

// AbortWithJSONError aborts with the {error, message} body used by the
// panic endpoints.
func AbortWithJSONError(c *gin.Context, status int, errText, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   errText,
		"message": message,
	})
}
