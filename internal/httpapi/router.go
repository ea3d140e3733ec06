package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peerchat/peerchat/internal/chat"
	"github.com/peerchat/peerchat/internal/common"
	"github.com/peerchat/peerchat/internal/config"
	"github.com/peerchat/peerchat/internal/httpapi/handlers"
	"github.com/peerchat/peerchat/internal/httpapi/middleware"
	"github.com/peerchat/peerchat/internal/store/redisstore"
	"gorm.io/gorm"
)

func NewRouter(db *gorm.DB, cfg config.Config, presence *redisstore.Store, events chat.EventPublisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, presence, events)

	r.GET("/ping", h.Ping)

	// local-auth fallback for development without an identity provider
	if cfg.LocalAuth {
		r.POST("/auth/register", h.Register)
		r.POST("/auth/login", h.Login)
	}

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret, cfg.JWTIssuer))
	authGroup.Use(middleware.TrackPresence(presence))
	authGroup.GET("/users", h.ListUsers)
	authGroup.GET("/users/me", h.Me)
	authGroup.POST("/chats", h.CreateChat)
	authGroup.GET("/chats", h.ListChats)
	authGroup.GET("/chats/:chat_id/messages", h.ListChatMessages)
	authGroup.POST("/chats/:chat_id/messages", h.SendChatMessage)
	authGroup.PATCH("/messages/:message_id", h.UpdateMessageFlags)
	return r
}
