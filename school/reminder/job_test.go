package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/school/model"
)

type fakeEvents struct {
	events []model.Event
	err    error
	within []int
}

func (f *fakeEvents) ListUpcomingEvents(_ context.Context, withinDays int) ([]model.Event, error) {
	f.within = append(f.within, withinDays)
	return f.events, f.err
}

type post struct {
	chatID int64
	text   string
}

type fakePoster struct {
	mu    sync.Mutex
	posts []post
	fail  map[string]bool
}

func (f *fakePoster) Post(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[text] {
		return errors.New("chat not found")
	}
	f.posts = append(f.posts, post{chatID: chatID, text: text})
	return nil
}

func (f *fakePoster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func TestJobPostsOneReminderPerEvent(t *testing.T) {
	day := time.Date(2026, time.May, 14, 0, 0, 0, 0, time.Local)
	src := &fakeEvents{events: []model.Event{
		{Name: "Концерт", Date: day, Description: "Актовый зал, 15:00"},
		{Name: "Экскурсия", Date: day, Description: "Сбор у входа"},
	}}
	poster := &fakePoster{}
	job := NewJob(src, poster, 7747368501)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []int{1}, src.within)
	require.Len(t, poster.posts, 2)
	assert.Equal(t, post{chatID: 7747368501, text: "🔔 Напоминание: Концерт завтра!\nАктовый зал, 15:00"}, poster.posts[0])
	assert.Equal(t, "🔔 Напоминание: Экскурсия завтра!\nСбор у входа", poster.posts[1].text)
}

func TestJobWithoutEventsPostsNothing(t *testing.T) {
	poster := &fakePoster{}
	require.NoError(t, NewJob(&fakeEvents{}, poster, 1).Run(context.Background()))
	assert.Zero(t, poster.count())
}

func TestJobContinuesAfterPostFailure(t *testing.T) {
	src := &fakeEvents{events: []model.Event{{Name: "А", Description: "x"}, {Name: "Б", Description: "y"}}}
	poster := &fakePoster{fail: map[string]bool{Text(src.events[0]): true}}

	err := NewJob(src, poster, 1).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, poster.count())
}

func TestJobReturnsSourceError(t *testing.T) {
	poster := &fakePoster{}
	err := NewJob(&fakeEvents{err: errors.New("db down")}, poster, 1).Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, poster.count())
}

func TestJobBatchLogCountsQueuedPosts(t *testing.T) {
	buf := &bytes.Buffer{}
	prev := logger.L
	logger.L = slog.New(slog.NewJSONHandler(buf, nil))
	t.Cleanup(func() { logger.L = prev })

	src := &fakeEvents{events: []model.Event{{Name: "А", Description: "x"}, {Name: "Б", Description: "y"}}}
	poster := &fakePoster{fail: map[string]bool{Text(src.events[0]): true}}
	require.Error(t, NewJob(src, poster, 1).Run(context.Background()))

	var batch map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["event"] == "reminder.batch" {
			batch = rec
		}
	}
	require.NotNil(t, batch, buf.String())
	assert.EqualValues(t, 1, batch["queued"])
	assert.EqualValues(t, 2, batch["events"])
	assert.Equal(t, "fail", batch["status"])
	assert.NotContains(t, batch, "sent")
}
