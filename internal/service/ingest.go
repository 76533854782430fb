package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	tgmodels "github.com/go-telegram/bot/models"

	"ratingbot/internal/models"
	"ratingbot/internal/repository"
	"ratingbot/pkg/logger"
	"ratingbot/pkg/metrics"
)

// commandPrefix marks a message as a command rather than rateable
// content for ordering purposes. Command messages are still persisted.
const commandPrefix = "/"

// IngestService turns one inbound Telegram update into at most one
// store mutation plus at most one outbound command response. It owns
// the dedup cursor: the highest message id ever stored, seeded from the
// store at construction and advanced under lock on every insert.
type IngestService struct {
	repo      repository.MessageRepository
	responder *CommandResponder
	log       *logger.Logger
	metrics   *metrics.Metrics

	mu     sync.Mutex
	cursor int64
}

// NewIngestService builds the service and recovers the cursor from
// MAX(id) over the store (0 when empty), so restarts keep treating
// previously seen ids as duplicates.
func NewIngestService(repo repository.MessageRepository, responder *CommandResponder, log *logger.Logger, m *metrics.Metrics) (*IngestService, error) {
	cursor, err := repo.MaxID()
	if err != nil {
		return nil, err
	}
	return &IngestService{
		repo:      repo,
		responder: responder,
		log:       log,
		metrics:   m,
		cursor:    cursor,
	}, nil
}

// Cursor returns the current dedup cursor.
func (s *IngestService) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// HandleUpdate processes a single webhook update. Updates without a
// message payload are ignored. Returned errors are storage failures;
// duplicate deliveries and replies to unknown targets are silent
// no-ops.
func (s *IngestService) HandleUpdate(ctx context.Context, update *tgmodels.Update) error {
	if update == nil || update.Message == nil {
		return nil
	}
	msg := update.Message

	if s.metrics != nil {
		s.metrics.UpdatesReceived.Add(ctx, 1)
	}

	id := int64(msg.ID)
	chatID := msg.Chat.ID
	timestamp := int64(msg.Date)

	// Commands act on existing data, so they are dispatched before the
	// current message is persisted. A message can be a command and a
	// reply at the same time; both effects apply.
	if command, ok := commandToken(msg.Text); ok {
		if err := s.responder.Dispatch(ctx, command, chatID); err != nil {
			return err
		}
	}

	var replyToID int64
	if msg.ReplyToMessage != nil {
		replyToID = int64(msg.ReplyToMessage.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id <= s.cursor {
		// Duplicate webhook delivery
		s.log.Debug("skipping duplicate message", "message_id", id, "cursor", s.cursor)
		if s.metrics != nil {
			s.metrics.DuplicatesSkipped.Add(ctx, 1)
		}
		return nil
	}

	err := s.repo.Create(&models.Message{
		ID:        id,
		ChatID:    chatID,
		Timestamp: timestamp,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateID) {
			// Lost a race against a concurrent delivery of the same
			// id; the row exists, so this delivery is a no-op.
			if id > s.cursor {
				s.cursor = id
			}
			return nil
		}
		return err
	}
	// Advance only after the insert is durable, so a failed insert
	// leaves the cursor pointing at the last confirmed row.
	s.cursor = id
	if s.metrics != nil {
		s.metrics.MessagesStored.Add(ctx, 1)
	}

	if replyToID != 0 {
		target, err := s.repo.GetByID(replyToID)
		if err != nil {
			return err
		}
		if target == nil {
			// Reply to a message outside the store (older than the
			// bot, or never delivered); not an error.
			s.log.Debug("reply target unknown", "message_id", id, "reply_to", replyToID)
			return nil
		}
		if _, err := s.repo.IncrementRating(replyToID); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.RatingsApplied.Add(ctx, 1)
		}
	}

	return nil
}

// commandToken strips the command prefix and reports whether the text
// is a command at all. The whole remainder is the token, so "/best of"
// yields "best of", which no query matches; that mirrors how the bot
// always behaved.
func commandToken(text string) (string, bool) {
	if !strings.HasPrefix(text, commandPrefix) || len(text) == len(commandPrefix) {
		return "", false
	}
	return text[len(commandPrefix):], true
}
