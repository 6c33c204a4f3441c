package chat

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// GetByUser returns the user's chat row, or nil when none exists.
	GetByUser(ctx context.Context, userID uuid.UUID) (*Chat, error)
	// Upsert writes the message array, creating the row on first use.
	Upsert(ctx context.Context, userID uuid.UUID, messages []Message) error
}
