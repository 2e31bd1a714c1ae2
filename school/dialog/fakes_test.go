package dialog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/m3rciful/schoolbot/core/telegram/state"
	"github.com/m3rciful/schoolbot/school/model"
	"github.com/m3rciful/schoolbot/school/store"
)

type fakeStore struct {
	mu        sync.Mutex
	users     map[int64]model.User
	lessons   map[string]string
	events    []model.Event
	upcoming  []model.Event
	schedules []model.ScheduleRow
	inserted  []model.Event
	err       error
	withinArg int
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[int64]model.User{}, lessons: map[string]string{}}
}

func (f *fakeStore) UserExists(_ context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.users[userID]
	return ok, nil
}

func (f *fakeStore) InsertUser(_ context.Context, u model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.UserID] = u
	return nil
}

func (f *fakeStore) ScheduleLessons(_ context.Context, className, day string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	l, ok := f.lessons[className+"|"+day]
	if !ok {
		return "", store.ErrNotFound
	}
	return l, nil
}

func (f *fakeStore) ListEvents(context.Context) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events, f.err
}

func (f *fakeStore) ListUpcomingEvents(_ context.Context, withinDays int) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.withinArg = withinDays
	return f.upcoming, f.err
}

func (f *fakeStore) InsertScheduleRow(_ context.Context, row model.ScheduleRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.schedules = append(f.schedules, row)
	return nil
}

func (f *fakeStore) InsertEvent(_ context.Context, e model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, e)
	return nil
}

type sentReply struct {
	chatID   int64
	text     string
	keyboard [][]string
}

type fakeNotifier struct {
	mu      sync.Mutex
	replies []sentReply
	err     error
}

func (f *fakeNotifier) Send(_ context.Context, chatID int64, text string, keyboard [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.replies = append(f.replies, sentReply{chatID: chatID, text: text, keyboard: keyboard})
	return nil
}

func (f *fakeNotifier) last() sentReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return sentReply{}
	}
	return f.replies[len(f.replies)-1]
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies)
}

type fakeAI struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (f *fakeAI) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeAI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeChecker struct{ password string }

func (f fakeChecker) Check(candidate string) bool { return candidate == f.password }

// brokenStates fails every read and records writes.
type brokenStates struct {
	cleared int
}

func (b *brokenStates) Get(context.Context, int64) (state.State, error) {
	return "", errors.New("state backend down")
}

func (b *brokenStates) Set(context.Context, int64, state.State) error { return nil }

func (b *brokenStates) Clear(context.Context, int64) error {
	b.cleared++
	return nil
}

type harness struct {
	router   *Router
	store    *fakeStore
	states   state.Store
	notifier *fakeNotifier
	ai       *fakeAI
}

var testToday = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)

func newHarness(states state.Store) (*harness, error) {
	if states == nil {
		states = state.NewMemoryStore()
	}
	h := &harness{
		store:    newFakeStore(),
		states:   states,
		notifier: &fakeNotifier{},
		ai:       &fakeAI{answer: "ответ модели"},
	}
	r, err := NewRouter(Deps{
		Store:    h.store,
		States:   h.states,
		Notifier: h.notifier,
		AI:       h.ai,
		Admin:    fakeChecker{password: "school123"},
		Now:      func() time.Time { return testToday },
	})
	if err != nil {
		return nil, err
	}
	h.router = r
	return h, nil
}
