package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peerchat/peerchat/internal/chat"
	"github.com/peerchat/peerchat/internal/common"
)

// failChat maps the chat error taxonomy onto HTTP statuses and envelope
// codes. Unauthorized access to existing chats is 403, unknown ids 404.
func failChat(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrInvalidParticipant):
		common.Fail(c, http.StatusBadRequest, 10010, "invalid participant")
	case errors.Is(err, chat.ErrSelfChat):
		common.Fail(c, http.StatusBadRequest, 10011, "chat with self not allowed")
	case errors.Is(err, chat.ErrEmptyContent):
		common.Fail(c, http.StatusBadRequest, 10012, "empty content")
	case errors.Is(err, chat.ErrChatNotFound):
		common.Fail(c, http.StatusNotFound, 40404, "chat not found")
	case errors.Is(err, chat.ErrMessageNotFound):
		common.Fail(c, http.StatusNotFound, 40405, "message not found")
	case errors.Is(err, chat.ErrNotAParticipant):
		common.Fail(c, http.StatusForbidden, 40301, "not a participant")
	default:
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}
