package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateChatOrGetExisting tries to create a chat, but if the unordered
// pair already has one, it returns the existing chat instead. The loser
// of a concurrent create gets the winner's row.
func (r *Repo) CreateChatOrGetExisting(ctx context.Context, c *Chat) (*Chat, bool, error) {
	err := r.db.WithContext(ctx).Create(c).Error
	if err == nil {
		return c, true, nil
	}

	existing, getErr := r.GetChatByPairKey(ctx, c.PairKey)
	if getErr == nil {
		return existing, false, nil
	}

	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}

func (r *Repo) GetChatByChatID(ctx context.Context, chatID string) (*Chat, error) {
	var c Chat
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) GetChatByPairKey(ctx context.Context, pairKey string) (*Chat, error) {
	var c Chat
	if err := r.db.WithContext(ctx).
		Where("pair_key = ?", pairKey).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChatsForUser returns chats where the user is either side, most
// recently active first.
func (r *Repo) ListChatsForUser(ctx context.Context, userID string) ([]Chat, error) {
	var chats []Chat
	if err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&chats).Error; err != nil {
		return nil, err
	}
	return chats, nil
}

// AppendMessage inserts the message and bumps the chat's last_message_at
// in one transaction: a failed activity bump rolls the insert back, so the
// ledger and the chat ordering never diverge.
func (r *Repo) AppendMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&Chat{}).
			Where("chat_id = ? AND last_message_at < ?", m.ChatID, m.CreatedAt).
			Update("last_message_at", m.CreatedAt).Error
	})
}

func (r *Repo) GetMessageByID(ctx context.Context, id uint64) (*Message, error) {
	var m Message
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns messages in ASC creation order, ties broken by id.
func (r *Repo) ListMessages(ctx context.Context, chatID string, limit int, afterID uint64) ([]Message, error) {
	q := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Limit(limit)

	if afterID > 0 {
		q = q.Where("id > ?", afterID)
	}

	var msgs []Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repo) MarkMessageDelivered(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&Message{}).
		Where("id = ?", id).
		Update("delivered", true).Error
}

// MarkMessageRead sets read, which implies delivered.
func (r *Repo) MarkMessageRead(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"delivered": true,
			"read_flag": true,
		}).Error
}

// TouchChatLastMessage only moves the timestamp forward: a slow concurrent
// send must not overwrite a newer activity mark with an older one.
func (r *Repo) TouchChatLastMessage(ctx context.Context, chatID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&Chat{}).
		Where("chat_id = ? AND last_message_at < ?", chatID, at).
		Update("last_message_at", at).Error
}
