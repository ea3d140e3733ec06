package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/peerchat/peerchat/internal/chat"
	"github.com/peerchat/peerchat/internal/config"
	"github.com/peerchat/peerchat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// one named in-memory DB per test so pooled connections share state
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.User{}, &chat.Chat{}, &chat.Message{}))

	cfg := config.Config{
		JWTSecret: "test-secret",
		JWTIssuer: "peerchat",
		LocalAuth: true,
	}
	return NewRouter(gdb, cfg, nil, nil)
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w, env
}

func registerUser(t *testing.T, r *gin.Engine, username string) (userID, token string) {
	t.Helper()
	w, env := do(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "pass-" + username,
	})
	require.Equal(t, http.StatusOK, w.Code, "register %s: %s", username, w.Body.String())

	var data struct {
		UserID string `json:"user_id"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.UserID)
	require.NotEmpty(t, data.Token)
	return data.UserID, data.Token
}

func TestRouter_EndToEndChatFlow(t *testing.T) {
	r := newTestRouter(t)

	aliceID, aliceTok := registerUser(t, r, "alice")
	bobID, bobTok := registerUser(t, r, "bob")
	_, carolTok := registerUser(t, r, "carol")

	// unauthenticated requests are rejected
	w, _ := do(t, r, http.MethodGet, "/chats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// alice opens a chat with bob
	w, env := do(t, r, http.MethodPost, "/chats", aliceTok, gin.H{"receiver_id": bobID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created struct {
		ChatID string `json:"chat_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.ChatID)

	// bob opening the reverse direction lands in the same chat
	w, env = do(t, r, http.MethodPost, "/chats", bobTok, gin.H{"receiver_id": aliceID})
	require.Equal(t, http.StatusOK, w.Code)
	var again struct {
		ChatID string `json:"chat_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.Equal(t, created.ChatID, again.ChatID)

	// spoofing the sender is refused
	w, _ = do(t, r, http.MethodPost, "/chats", aliceTok, gin.H{"sender_id": bobID, "receiver_id": aliceID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// alice sends a message
	w, env = do(t, r, http.MethodPost, "/chats/"+created.ChatID+"/messages", aliceTok, gin.H{"content": "hi"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sent struct {
		MessageID uint64 `json:"message_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	require.NotZero(t, sent.MessageID)

	// bob lists the chat and sees it fresh
	w, env = do(t, r, http.MethodGet, "/chats/"+created.ChatID+"/messages", bobTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Messages []chat.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed.Messages, 1)
	assert.Equal(t, "hi", listed.Messages[0].Content)
	assert.False(t, listed.Messages[0].Delivered)
	assert.False(t, listed.Messages[0].Read)

	// carol is not a participant
	w, _ = do(t, r, http.MethodGet, "/chats/"+created.ChatID+"/messages", carolTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = do(t, r, http.MethodPost, "/chats/"+created.ChatID+"/messages", carolTok, gin.H{"content": "intrusion"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// alice cannot receipt her own message
	patchPath := fmt.Sprintf("/messages/%d", sent.MessageID)
	w, _ = do(t, r, http.MethodPatch, patchPath, aliceTok, gin.H{"read": true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// bob marks it read; delivered follows
	w, env = do(t, r, http.MethodPatch, patchPath, bobTok, gin.H{"read": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var flags struct {
		Delivered bool `json:"delivered"`
		Read      bool `json:"read"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &flags))
	assert.True(t, flags.Delivered)
	assert.True(t, flags.Read)

	// listing chats is scoped to the requester
	w, _ = do(t, r, http.MethodGet, "/chats?user_id="+bobID, aliceTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, env = do(t, r, http.MethodGet, "/chats", aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var chats struct {
		Chats []chat.Chat `json:"chats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &chats))
	require.Len(t, chats.Chats, 1)
	assert.Equal(t, created.ChatID, chats.Chats[0].ChatID)
}

func TestRouter_ValidationAndAuthEdges(t *testing.T) {
	r := newTestRouter(t)

	aliceID, aliceTok := registerUser(t, r, "dana")
	_, bobTok := registerUser(t, r, "eli")

	// self chat is rejected
	w, _ := do(t, r, http.MethodPost, "/chats", aliceTok, gin.H{"receiver_id": aliceID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown receiver
	w, _ = do(t, r, http.MethodPost, "/chats", aliceTok, gin.H{"receiver_id": "no-such-user"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// blank content fails after binding passes
	w, env := do(t, r, http.MethodPost, "/chats", aliceTok, gin.H{"receiver_id": mustUserID(t, r, bobTok)})
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		ChatID string `json:"chat_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	w, _ = do(t, r, http.MethodPost, "/chats/"+created.ChatID+"/messages", aliceTok, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown chat and message ids are 404
	w, _ = do(t, r, http.MethodGet, "/chats/01UNKNOWNCHAT0000000000000/messages", aliceTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, r, http.MethodPatch, "/messages/424242", aliceTok, gin.H{"delivered": true})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// bad token
	w, _ = do(t, r, http.MethodGet, "/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// login flow issues a working token
	w, env = do(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "dana@example.com",
		"password": "pass-dana",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))

	w, env = do(t, r, http.MethodGet, "/users/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		UserID string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, aliceID, me.UserID)

	// wrong password
	w, _ = do(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "dana@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_UsersListing(t *testing.T) {
	r := newTestRouter(t)

	_, tok := registerUser(t, r, "fred")
	registerUser(t, r, "gina")

	w, env := do(t, r, http.MethodGet, "/users", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Users []struct {
			UserID   string `json:"user_id"`
			Username string `json:"username"`
			Online   bool   `json:"online"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Users, 2)
	assert.Equal(t, "fred", data.Users[0].Username)
	assert.Equal(t, "gina", data.Users[1].Username)
}

func mustUserID(t *testing.T, r *gin.Engine, token string) string {
	t.Helper()
	w, env := do(t, r, http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		UserID string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	return me.UserID
}
