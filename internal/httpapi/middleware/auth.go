package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/peerchat/peerchat/internal/auth"
	"github.com/peerchat/peerchat/internal/common"
)

const (
	SubjectKey  = "auth.subject"
	UsernameKey = "auth.username"
)

// AuthRequired validates the bearer token and stashes the subject and
// preferred username on the context. Missing or invalid tokens are 401.
func AuthRequired(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(strings.TrimPrefix(h, "Bearer "), secret, issuer)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid token")
			c.Abort()
			return
		}

		c.Set(SubjectKey, claims.Subject)
		c.Set(UsernameKey, claims.Username)
		c.Next()
	}
}

// Subject returns the authenticated subject set by AuthRequired.
func Subject(c *gin.Context) (string, bool) {
	v, ok := c.Get(SubjectKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func Username(c *gin.Context) string {
	v, ok := c.Get(UsernameKey)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
