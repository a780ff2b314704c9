package httpapi

import (
	"github.com/gin-gonic/gin"
)

// Error codes returned in the "code" field of failed responses.
const (
	CodeInvalidParam     = "invalid_param"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeExpired          = "expired"
	CodeStoreUnavailable = "store_unavailable"
	CodeInternal         = "internal"
)

// success writes data under the "data" key.
func success(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}

// fail writes an error body and stops the handler chain.
func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": msg,
	})
}
