package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/peerchat/peerchat/internal/chat"
	"github.com/peerchat/peerchat/internal/common"
	"github.com/peerchat/peerchat/internal/config"
	"github.com/peerchat/peerchat/internal/models"
	"github.com/peerchat/peerchat/internal/store/redisstore"
	"gorm.io/gorm"
)

type Handler struct {
	DB       *gorm.DB
	Cfg      config.Config
	Presence *redisstore.Store
	Users    *models.UserRepo
	ChatSvc  *chat.Service
}

// NewHandler wires the chat service on top of the shared DB handle.
// presence and events may be nil (tests, degraded dev setups).
func NewHandler(db *gorm.DB, cfg config.Config, presence *redisstore.Store, events chat.EventPublisher) *Handler {
	users := models.NewUserRepo(db)
	chatSvc := chat.NewService(chat.NewRepo(db), users, events)
	return &Handler{
		DB:       db,
		Cfg:      cfg,
		Presence: presence,
		Users:    users,
		ChatSvc:  chatSvc,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}
