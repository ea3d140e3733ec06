package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/peerchat/peerchat/internal/common"
	"gorm.io/gorm"
)

// UserDirectory resolves whether a subject id belongs to a known user.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// EventPublisher receives a notification for every appended message.
// Publishing is best effort: a failure never fails the send.
type EventPublisher interface {
	PublishMessageSent(ctx context.Context, ev MessageSentEvent) error
}

type MessageSentEvent struct {
	MessageID  uint64 `json:"message_id"`
	ChatID     string `json:"chat_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
}

type Service struct {
	repo   *Repo
	users  UserDirectory
	events EventPublisher
}

func NewService(repo *Repo, users UserDirectory, events EventPublisher) *Service {
	return &Service{repo: repo, users: users, events: events}
}

// CreateChat is idempotent on the unordered {sender, receiver} pair:
// calling it twice, in either argument order, yields the same chat.
func (s *Service) CreateChat(ctx context.Context, senderID, receiverID, name string) (*Chat, error) {
	senderID = strings.TrimSpace(senderID)
	receiverID = strings.TrimSpace(receiverID)
	if senderID == "" || receiverID == "" {
		return nil, ErrInvalidParticipant
	}
	if senderID == receiverID {
		return nil, ErrSelfChat
	}

	for _, id := range []string{senderID, receiverID} {
		known, err := s.users.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !known {
			return nil, ErrInvalidParticipant
		}
	}

	cid, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	c := &Chat{
		ChatID:        cid,
		SenderID:      senderID,
		ReceiverID:    receiverID,
		PairKey:       PairKeyFor(senderID, receiverID),
		Name:          name,
		LastMessageAt: time.Now(),
	}

	chat, _, err := s.repo.CreateChatOrGetExisting(ctx, c)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *Service) ListChats(ctx context.Context, userID string) ([]Chat, error) {
	return s.repo.ListChatsForUser(ctx, userID)
}

func (s *Service) GetChat(ctx context.Context, chatID, requesterID string) (*Chat, error) {
	c, err := s.repo.GetChatByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	if !c.HasParticipant(requesterID) {
		return nil, ErrNotAParticipant
	}
	return c, nil
}

// SendMessage appends to the ledger: delivered=false, read=false, and the
// chat's last_message_at moves forward with the new message.
func (s *Service) SendMessage(ctx context.Context, chatID, senderID, content string) (*Message, error) {
	c, err := s.GetChat(ctx, chatID, senderID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	m := &Message{
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.repo.AppendMessage(ctx, m); err != nil {
		return nil, err
	}

	if s.events != nil {
		ev := MessageSentEvent{
			MessageID:  m.ID,
			ChatID:     chatID,
			SenderID:   senderID,
			ReceiverID: c.PeerOf(senderID),
		}
		if err := s.events.PublishMessageSent(ctx, ev); err != nil {
			log.Printf("publish message_sent failed chat_id=%s message_id=%d err=%v", chatID, m.ID, err)
		}
	}

	return m, nil
}

func (s *Service) ListMessages(ctx context.Context, chatID, requesterID string, limit int, afterID uint64) ([]Message, error) {
	if _, err := s.GetChat(ctx, chatID, requesterID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.repo.ListMessages(ctx, chatID, limit, afterID)
}

// MarkDelivered records a delivery receipt. Only the participant on the
// other side of the message may issue it.
func (s *Service) MarkDelivered(ctx context.Context, messageID uint64, requesterID string) (*Message, error) {
	m, err := s.receiverGuard(ctx, messageID, requesterID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkMessageDelivered(ctx, m.ID); err != nil {
		return nil, err
	}
	m.Delivered = true
	return m, nil
}

// MarkRead records a read receipt; read implies delivered.
func (s *Service) MarkRead(ctx context.Context, messageID uint64, requesterID string) (*Message, error) {
	m, err := s.receiverGuard(ctx, messageID, requesterID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkMessageRead(ctx, m.ID); err != nil {
		return nil, err
	}
	m.Delivered = true
	m.Read = true
	return m, nil
}

// receiverGuard loads the message and verifies the requester is a chat
// participant other than the message's sender: a user cannot mark their
// own message delivered or read.
func (s *Service) receiverGuard(ctx context.Context, messageID uint64, requesterID string) (*Message, error) {
	m, err := s.repo.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	c, err := s.repo.GetChatByChatID(ctx, m.ChatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}

	if !c.HasParticipant(requesterID) || m.SenderID == requesterID {
		return nil, ErrNotAParticipant
	}
	return m, nil
}
