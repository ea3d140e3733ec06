package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peerchat/peerchat/internal/common"
	"github.com/peerchat/peerchat/internal/httpapi/middleware"
)

type createChatReq struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id" binding:"required"`
	Name       string `json:"name"`
}

// CreateChat opens (or returns) the single chat for the requester and the
// receiver. An explicit sender_id is accepted for API compatibility but
// must match the authenticated subject.
func (h *Handler) CreateChat(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.SenderID != "" && req.SenderID != sub {
		common.Fail(c, http.StatusForbidden, 40301, "not a participant")
		return
	}

	chatRow, err := h.ChatSvc.CreateChat(c.Request.Context(), sub, req.ReceiverID, req.Name)
	if err != nil {
		failChat(c, err)
		return
	}

	common.OK(c, gin.H{"chat_id": chatRow.ChatID})
}

// ListChats returns the requester's chats, most recently active first.
// A user_id query other than the requester's own is refused.
func (h *Handler) ListChats(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	if q := c.Query("user_id"); q != "" && q != sub {
		common.Fail(c, http.StatusForbidden, 40301, "not a participant")
		return
	}

	chats, err := h.ChatSvc.ListChats(c.Request.Context(), sub)
	if err != nil {
		failChat(c, err)
		return
	}

	common.OK(c, gin.H{"chats": chats})
}
