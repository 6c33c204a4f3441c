package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthmate/healthmate/internal/platform/ai"
)

// FallbackReply is returned to the user when the assistant backend fails.
const FallbackReply = "I apologize, but I encountered an error processing your request. Please try again later."

type Service struct {
	chats Repository
	ai    ai.Client
	log   zerolog.Logger
}

func NewService(chats Repository, aiClient ai.Client, log zerolog.Logger) *Service {
	return &Service{chats: chats, ai: aiClient, log: log}
}

// SendMessage appends the user's message, asks the assistant for a reply with
// the prior conversation as context, appends the reply, and trims the history
// to the most recent MaxMessages. AI failure yields a fixed apology instead
// of an error.
func (s *Service) SendMessage(ctx context.Context, userID uuid.UUID, text string) (Message, Message, error) {
	text = strings.TrimSpace(text)

	existing, err := s.chats.GetByUser(ctx, userID)
	if err != nil {
		return Message{}, Message{}, err
	}
	var messages []Message
	if existing != nil {
		messages = existing.Messages
	}

	history := make([]ai.Turn, len(messages))
	for i, m := range messages {
		history[i] = ai.Turn{Sender: m.Sender, Text: m.Text}
	}

	userMsg := Message{Sender: SenderUser, Text: text, Timestamp: time.Now()}
	messages = append(messages, userMsg)

	reply, err := s.ai.Chat(ctx, text, history)
	if err != nil {
		s.log.Warn().Err(err).Msg("assistant reply failed, sending fallback")
		reply = FallbackReply
	}
	aiMsg := Message{Sender: SenderAI, Text: reply, Timestamp: time.Now()}
	messages = append(messages, aiMsg)

	if len(messages) > MaxMessages {
		messages = messages[len(messages)-MaxMessages:]
	}

	if err := s.chats.Upsert(ctx, userID, messages); err != nil {
		return Message{}, Message{}, err
	}
	return userMsg, aiMsg, nil
}

// History returns the stored conversation, empty when none exists.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]Message, error) {
	c, err := s.chats.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return []Message{}, nil
	}
	return c.Messages, nil
}

// Clear empties the conversation in place. Reports whether a chat existed.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) (bool, error) {
	c, err := s.chats.GetByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}
	return true, s.chats.Upsert(ctx, userID, []Message{})
}
