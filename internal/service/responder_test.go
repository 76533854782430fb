package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratingbot/internal/models"
	"ratingbot/internal/repository"
)

func newTestResponder(t *testing.T, repo repository.MessageRepository, sender Sender, now time.Time) *CommandResponder {
	t.Helper()

	responder := NewCommandResponder(repo, sender, testLogger(), nil, 5, 1)
	responder.now = func() time.Time { return now }
	return responder
}

func seedRated(t *testing.T, repo repository.MessageRepository, id int64, chatID int64, timestamp int64, rating int64) {
	t.Helper()

	require.NoError(t, repo.Create(&models.Message{ID: id, ChatID: chatID, Timestamp: timestamp}))
	for r := int64(0); r < rating; r++ {
		_, err := repo.IncrementRating(id)
		require.NoError(t, err)
	}
}

func TestDispatchBestRankOrder(t *testing.T) {
	repo := newTestRepo(t)
	sender := &fakeSender{}
	now := time.Now()
	responder := newTestResponder(t, repo, sender, now)

	seedRated(t, repo, 10, 7, now.Unix(), 5)
	seedRated(t, repo, 11, 7, now.Unix(), 3)
	seedRated(t, repo, 12, 7, now.Unix(), 1)
	seedRated(t, repo, 13, 7, now.Unix(), 0)

	require.NoError(t, responder.Dispatch(context.Background(), "best", 7))

	sends := sender.sent()
	require.Len(t, sends, 3)
	assert.Equal(t, sentReply{chatID: 7, text: "#1", replyToID: 10}, sends[0])
	assert.Equal(t, sentReply{chatID: 7, text: "#2", replyToID: 11}, sends[1])
	assert.Equal(t, sentReply{chatID: 7, text: "#3", replyToID: 12}, sends[2])
}

func TestDispatchHourWindow(t *testing.T) {
	repo := newTestRepo(t)
	sender := &fakeSender{}
	now := time.Now()
	responder := newTestResponder(t, repo, sender, now)

	// Rated, but two hours old: outside the window
	seedRated(t, repo, 1, 7, now.Unix()-7200, 2)
	// Rated and half an hour old: inside
	seedRated(t, repo, 2, 7, now.Unix()-1800, 1)

	require.NoError(t, responder.Dispatch(context.Background(), "hour", 7))

	sends := sender.sent()
	require.Len(t, sends, 1)
	assert.Equal(t, int64(2), sends[0].replyToID)
}

func TestDispatchTodayWindow(t *testing.T) {
	repo := newTestRepo(t)
	sender := &fakeSender{}
	now := time.Now()
	responder := newTestResponder(t, repo, sender, now)

	// Two days old stays out, two hours old is in
	seedRated(t, repo, 1, 7, now.Unix()-2*86400, 4)
	seedRated(t, repo, 2, 7, now.Unix()-7200, 1)

	require.NoError(t, responder.Dispatch(context.Background(), "today", 7))

	sends := sender.sent()
	require.Len(t, sends, 1)
	assert.Equal(t, int64(2), sends[0].replyToID)
}

func TestDispatchUnknownCommandIgnored(t *testing.T) {
	repo := newTestRepo(t)
	sender := &fakeSender{}
	responder := newTestResponder(t, repo, sender, time.Now())

	seedRated(t, repo, 1, 7, time.Now().Unix(), 3)

	require.NoError(t, responder.Dispatch(context.Background(), "bestest", 7))
	require.NoError(t, responder.Dispatch(context.Background(), "Best", 7))

	assert.Empty(t, sender.sent())
}

func TestDispatchEmptyResultSendsNothing(t *testing.T) {
	repo := newTestRepo(t)
	sender := &fakeSender{}
	responder := newTestResponder(t, repo, sender, time.Now())

	require.NoError(t, responder.Dispatch(context.Background(), "best", 7))

	assert.Empty(t, sender.sent())
}

func TestDispatchSendFailureContinues(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()
	sender := &fakeSender{failOn: map[int64]bool{11: true}}
	responder := newTestResponder(t, repo, sender, now)

	seedRated(t, repo, 10, 7, now.Unix(), 3)
	seedRated(t, repo, 11, 7, now.Unix(), 2)
	seedRated(t, repo, 12, 7, now.Unix(), 1)

	require.NoError(t, responder.Dispatch(context.Background(), "best", 7))

	// The failed #2 send does not stop #3; ranks keep their position
	sends := sender.sent()
	require.Len(t, sends, 2)
	assert.Equal(t, sentReply{chatID: 7, text: "#1", replyToID: 10}, sends[0])
	assert.Equal(t, sentReply{chatID: 7, text: "#3", replyToID: 12}, sends[1])
}
