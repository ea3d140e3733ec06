package chat

import "time"

// Chat is a private conversation between exactly two users. PairKey is
// the sorted unordered pair; its unique index guarantees at most one chat
// per pair even under concurrent creates.
type Chat struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ChatID        string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"chat_id"`
	SenderID      string    `gorm:"type:varchar(64);index;not null" json:"sender_id"`
	ReceiverID    string    `gorm:"type:varchar(64);index;not null" json:"receiver_id"`
	PairKey       string    `gorm:"type:varchar(129);uniqueIndex;not null" json:"-"`
	Name          string    `gorm:"type:varchar(128)" json:"name,omitempty"`
	LastMessageAt time.Time `gorm:"index;not null" json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Chat) TableName() string { return "chats" }

// PairKeyFor builds the storage key for the unordered {a, b} pair.
func PairKeyFor(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// HasParticipant is the access guard: every directory/ledger operation
// that exposes chat contents checks it before reading or mutating.
func (c *Chat) HasParticipant(userID string) bool {
	return c.SenderID == userID || c.ReceiverID == userID
}

// PeerOf returns the other participant.
func (c *Chat) PeerOf(userID string) string {
	if c.SenderID == userID {
		return c.ReceiverID
	}
	return c.SenderID
}

type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    string    `gorm:"type:varchar(26);index;not null" json:"chat_id"`
	SenderID  string    `gorm:"type:varchar(64);index;not null" json:"sender_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Delivered bool      `gorm:"not null;default:false" json:"delivered"`
	Read      bool      `gorm:"column:read_flag;not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }
