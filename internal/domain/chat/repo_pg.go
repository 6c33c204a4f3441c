package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) GetByUser(ctx context.Context, userID uuid.UUID) (*Chat, error) {
	var c Chat
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, messages, created_at, updated_at
		FROM chats WHERE user_id = $1`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.Messages, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) Upsert(ctx context.Context, userID uuid.UUID, messages []Message) error {
	if messages == nil {
		messages = []Message{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chats (id, user_id, messages)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET messages = EXCLUDED.messages, updated_at = now()`,
		uuid.New(), userID, messages,
	)
	return err
}
