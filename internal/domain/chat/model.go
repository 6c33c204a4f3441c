package chat

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessages caps stored history; older messages are dropped first.
const MaxMessages = 50

// Message senders.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Message is one turn of the assistant conversation, stored inside the
// chat row's JSONB message array.
type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat maps to the chats table. Each user has at most one row.
type Chat struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	Messages  []Message `db:"messages" json:"messages"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
