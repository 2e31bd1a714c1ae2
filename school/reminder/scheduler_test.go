package reminder

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDaily(t *testing.T) {
	d, err := ParseDaily("09:30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 9, d.Hour)
	assert.Equal(t, 30, d.Minute)
	assert.Equal(t, "daily 09:30", d.String())

	_, err = ParseDaily("9 утра", time.UTC)
	require.Error(t, err)
}

func TestDailyScheduleNext(t *testing.T) {
	d := DailySchedule{Hour: 9, Minute: 0, Loc: time.UTC}

	before := time.Date(2026, time.March, 1, 8, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC), d.Next(before))

	exact := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC), d.Next(exact))

	endOfMonth := time.Date(2026, time.March, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC), d.Next(endOfMonth))
}

func TestDailyScheduleUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	d := DailySchedule{Hour: 9, Loc: loc}

	// 03:30 UTC is 08:30 at UTC+5.
	now := time.Date(2026, time.March, 1, 3, 30, 0, 0, time.UTC)
	assert.True(t, d.Next(now).Equal(time.Date(2026, time.March, 1, 4, 0, 0, 0, time.UTC)))
}

type countingJob struct {
	runs    atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	if j.active.Add(1) > 1 {
		j.overlap.Store(true)
	}
	time.Sleep(2 * time.Millisecond)
	j.active.Add(-1)
	j.runs.Add(1)
	return nil
}

type everySchedule time.Duration

func (e everySchedule) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

func TestSchedulerFiresUntilStopped(t *testing.T) {
	job := &countingJob{}
	s := NewScheduler(job, everySchedule(5*time.Millisecond))

	require.NoError(t, s.Start(context.Background()))
	require.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	require.Eventually(t, func() bool { return job.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
	require.ErrorIs(t, s.Stop(), ErrNotRunning)

	stopped := job.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, job.runs.Load())
	assert.False(t, job.overlap.Load())
}

func TestSchedulerStopsWithContext(t *testing.T) {
	job := &countingJob{}
	s := NewScheduler(job, everySchedule(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()
	require.NoError(t, s.Stop())
	assert.Zero(t, job.runs.Load())
}

func TestRunOnceDoesNotOverlapLoop(t *testing.T) {
	job := &countingJob{}
	s := NewScheduler(job, everySchedule(time.Millisecond))
	require.NoError(t, s.Start(context.Background()))

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RunOnce(context.Background()))
	}
	require.NoError(t, s.Stop())
	assert.False(t, job.overlap.Load())
}
