package middleware

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/peerchat/peerchat/internal/store/redisstore"
)

// TrackPresence refreshes the requester's online flag and last-seen on
// every authenticated request. Runs after AuthRequired. A presence store
// hiccup never fails the request.
func TrackPresence(store *redisstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store != nil {
			if sub, ok := Subject(c); ok {
				if err := store.Touch(c.Request.Context(), sub); err != nil {
					log.Printf("presence touch failed subject=%s err=%v", sub, err)
				}
			}
		}
		c.Next()
	}
}
