package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/peerchat/peerchat/internal/chat"
	"github.com/peerchat/peerchat/internal/common"
	"github.com/peerchat/peerchat/internal/httpapi/middleware"
)

type sendMessageReq struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	chatID := c.Param("chat_id")

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	m, err := h.ChatSvc.SendMessage(c.Request.Context(), chatID, sub, req.Content)
	if err != nil {
		failChat(c, err)
		return
	}

	common.OK(c, gin.H{"message_id": m.ID})
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	chatID := c.Param("chat_id")

	limit, _ := strconv.Atoi(c.Query("limit"))
	var afterID uint64
	if v := c.Query("after_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			afterID = n
		}
	}

	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), chatID, sub, limit, afterID)
	if err != nil {
		failChat(c, err)
		return
	}

	var nextAfterID uint64
	if len(msgs) > 0 {
		nextAfterID = msgs[len(msgs)-1].ID
	}

	common.OK(c, gin.H{
		"messages":      msgs,
		"next_after_id": nextAfterID,
	})
}

type updateMessageReq struct {
	Delivered *bool `json:"delivered"`
	Read      *bool `json:"read"`
}

// UpdateMessageFlags applies delivery/read receipts. Flags only move
// forward; read implies delivered.
func (h *Handler) UpdateMessageFlags(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	messageID, err := strconv.ParseUint(c.Param("message_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid message id")
		return
	}

	var req updateMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Delivered == nil && req.Read == nil {
		common.Fail(c, http.StatusBadRequest, 10005, "nothing to update")
		return
	}

	var m *chat.Message
	if req.Read != nil && *req.Read {
		m, err = h.ChatSvc.MarkRead(c.Request.Context(), messageID, sub)
	} else if req.Delivered != nil && *req.Delivered {
		m, err = h.ChatSvc.MarkDelivered(c.Request.Context(), messageID, sub)
	} else {
		// flags never go back to false
		common.Fail(c, http.StatusBadRequest, 10006, "flags cannot be cleared")
		return
	}
	if err != nil {
		failChat(c, err)
		return
	}

	common.OK(c, gin.H{
		"message_id": m.ID,
		"delivered":  m.Delivered,
		"read":       m.Read,
	})
}
