package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peerchat/peerchat/internal/common"
)

// Recovery turns panics into the uniform 500 envelope instead of gin's
// default plain-text response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic recovered path=%s err=%v", c.FullPath(), r)
				common.Fail(c, http.StatusInternalServerError, 50000, "internal error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
