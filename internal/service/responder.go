package service

import (
	"context"
	"fmt"
	"time"

	"ratingbot/internal/repository"
	"ratingbot/pkg/logger"
	"ratingbot/pkg/metrics"
)

// Recognized command tokens (case-sensitive, after the "/" prefix)
const (
	cmdBest  = "best"
	cmdToday = "today"
	cmdHour  = "hour"

	daySeconds  = 86400
	hourSeconds = 3600
)

// Sender posts a single reply-threaded message to a chat. Implemented
// by the Telegram client; tests substitute a recording fake.
type Sender interface {
	SendReply(ctx context.Context, chatID int64, text string, replyToID int64) error
}

// CommandResponder runs the ranked queries behind the /best, /today and
// /hour commands and replies with a "#<rank>" message threaded to each
// result, best first.
type CommandResponder struct {
	repo      repository.MessageRepository
	sender    Sender
	log       *logger.Logger
	metrics   *metrics.Metrics
	topLimit  int
	minRating int64
	now       func() time.Time
}

func NewCommandResponder(repo repository.MessageRepository, sender Sender, log *logger.Logger, m *metrics.Metrics, topLimit int, minRating int64) *CommandResponder {
	return &CommandResponder{
		repo:      repo,
		sender:    sender,
		log:       log,
		metrics:   m,
		topLimit:  topLimit,
		minRating: minRating,
		now:       time.Now,
	}
}

// Dispatch runs the query for a recognized command and sends the ranked
// replies. Unrecognized commands are dropped without a response. Send
// failures are logged and do not stop the remaining sends; each reply
// is best-effort, at most once.
func (r *CommandResponder) Dispatch(ctx context.Context, command string, chatID int64) error {
	var since int64
	switch command {
	case cmdBest:
		since = 0
	case cmdToday:
		since = r.now().Unix() - daySeconds
	case cmdHour:
		since = r.now().Unix() - hourSeconds
	default:
		return nil
	}

	if r.metrics != nil {
		r.metrics.CommandsHandled.Add(ctx, 1)
	}

	ids, err := r.repo.TopRated(chatID, r.minRating, since, r.topLimit)
	if err != nil {
		return err
	}

	for i, id := range ids {
		text := fmt.Sprintf("#%d", i+1)
		if err := r.sender.SendReply(ctx, chatID, text, id); err != nil {
			r.log.LogError(err, "failed to send command reply",
				"chat_id", chatID,
				"reply_to", id,
				"rank", i+1,
			)
			if r.metrics != nil {
				r.metrics.RepliesFailed.Add(ctx, 1)
			}
			continue
		}
		if r.metrics != nil {
			r.metrics.RepliesSent.Add(ctx, 1)
		}
	}
	return nil
}
