package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	coreconfig "github.com/m3rciful/schoolbot/core/config"

	tele "gopkg.in/telebot.v4"
)

func TestRateLimiterAllow(t *testing.T) {
	l := newRateLimiter(time.Second)
	t0 := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	assert.True(t, l.allow(1, t0))
	assert.False(t, l.allow(1, t0.Add(500*time.Millisecond)))
	assert.True(t, l.allow(2, t0.Add(500*time.Millisecond)))
	assert.True(t, l.allow(1, t0.Add(time.Second)))
}

func TestRateLimiterPrunesStaleUsers(t *testing.T) {
	l := newRateLimiter(time.Second)
	l.pruneSize = 4
	t0 := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	for id := int64(1); id <= 3; id++ {
		l.allow(id, t0)
	}
	l.allow(4, t0.Add(2*time.Second))

	assert.Len(t, l.last, 1)
	assert.Equal(t, 4, l.pruneSize)
}

func TestRateLimiterGrowsWhenAllFresh(t *testing.T) {
	l := newRateLimiter(time.Minute)
	l.pruneSize = 2
	t0 := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	l.allow(1, t0)
	l.allow(2, t0)

	assert.Len(t, l.last, 2)
	assert.Equal(t, 4, l.pruneSize)
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, coreconfig.UpdateMessage, updateKind(tele.Update{Message: &tele.Message{}}))
	assert.Equal(t, coreconfig.UpdateCallback, updateKind(tele.Update{Callback: &tele.Callback{}}))
	assert.Equal(t, coreconfig.UpdateInlineQuery, updateKind(tele.Update{Query: &tele.Query{}}))
	assert.Empty(t, updateKind(tele.Update{}))
}
