package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/peerchat/peerchat/internal/common"
	"github.com/peerchat/peerchat/internal/httpapi/middleware"
	"github.com/peerchat/peerchat/internal/models"
	"github.com/peerchat/peerchat/internal/store/redisstore"
)

type userView struct {
	UserID   string     `json:"user_id"`
	Username string     `json:"username"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

func (h *Handler) userViews(c *gin.Context, users []models.User) []userView {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.UserID)
	}

	presence := map[string]redisstore.Presence{}
	if h.Presence != nil {
		if snap, err := h.Presence.Snapshot(c.Request.Context(), ids); err == nil {
			presence = snap
		}
	}

	out := make([]userView, 0, len(users))
	for _, u := range users {
		v := userView{UserID: u.UserID, Username: u.Username}
		if p, ok := presence[u.UserID]; ok {
			v.Online = p.Online
			if !p.LastSeen.IsZero() {
				ls := p.LastSeen
				v.LastSeen = &ls
			}
		}
		out = append(out, v)
	}
	return out
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Users.List(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.OK(c, gin.H{"users": h.userViews(c, users)})
}

// Me returns the requester, provisioning the row from token claims on
// first contact.
func (h *Handler) Me(c *gin.Context) {
	sub, ok := middleware.Subject(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	user, err := h.Users.Ensure(c.Request.Context(), sub, middleware.Username(c))
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	views := h.userViews(c, []models.User{*user})
	common.OK(c, views[0])
}
