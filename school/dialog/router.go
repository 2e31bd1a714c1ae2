// Package dialog routes inbound text to exactly one handler and keeps the
// per-user admin conversation state.
package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/telegram/state"
	"github.com/m3rciful/schoolbot/school/faq"
	"github.com/m3rciful/schoolbot/school/model"
)

// Conversation states beyond state.StateIdle.
const (
	StateAwaitingAdminPassword state.State = "awaiting_admin_password"
	StateAwaitingScheduleInput state.State = "awaiting_schedule_input"
	StateAwaitingEventInput    state.State = "awaiting_event_input"
)

// Rule names reported for each handled message.
const (
	RuleStart          = "start"
	RuleState          = "state"
	RuleSchedulePrompt = "schedule_prompt"
	RuleScheduleQuery  = "schedule_query"
	RuleEvents         = "events"
	RuleFAQMenu        = "faq_menu"
	RuleFAQ            = "faq"
	RuleAdmin          = "admin"
	RuleFallback       = "fallback"
)

// Messages of at most this many runes skip the free-text fallback.
const minFreeTextRunes = 3

// Message is one inbound text with its sender.
type Message struct {
	UserID    int64
	ChatID    int64
	Text      string
	Username  string
	FirstName string
	LastName  string
}

// Datastore is the persistence used by the handlers.
type Datastore interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	InsertUser(ctx context.Context, u model.User) error
	ScheduleLessons(ctx context.Context, className, day string) (string, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	ListUpcomingEvents(ctx context.Context, withinDays int) ([]model.Event, error)
	InsertScheduleRow(ctx context.Context, row model.ScheduleRow) error
	InsertEvent(ctx context.Context, e model.Event) error
}

// Notifier delivers one reply, with an optional reply keyboard.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string, keyboard [][]string) error
}

// Completer answers free text with a generated reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// PasswordChecker validates the admin password.
type PasswordChecker interface {
	Check(password string) bool
}

// Deps are the collaborators of a Router. Now defaults to time.Now.
type Deps struct {
	Store    Datastore
	States   state.Store
	Notifier Notifier
	AI       Completer
	Admin    PasswordChecker
	FAQ      *faq.Matcher
	Now      func() time.Time
}

// reply is what a handler wants sent back; Route performs the single send.
type reply struct {
	text     string
	keyboard [][]string
}

// turn carries one message through the rule table.
type turn struct {
	msg   Message
	text  string
	cmd   string
	state state.State
}

type rule struct {
	name   string
	match  func(t *turn) bool
	handle func(ctx context.Context, t *turn) reply
}

// Router evaluates rules top to bottom and runs the first that matches.
type Router struct {
	deps          Deps
	rules         []rule
	continuations map[state.State]func(ctx context.Context, t *turn) reply
}

// NewRouter wires the rule table.
func NewRouter(deps Deps) (*Router, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("dialog: nil datastore")
	case deps.States == nil:
		return nil, fmt.Errorf("dialog: nil state store")
	case deps.Notifier == nil:
		return nil, fmt.Errorf("dialog: nil notifier")
	case deps.AI == nil:
		return nil, fmt.Errorf("dialog: nil completer")
	case deps.Admin == nil:
		return nil, fmt.Errorf("dialog: nil password checker")
	}
	if deps.FAQ == nil {
		deps.FAQ = faq.School()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := &Router{deps: deps}
	r.rules = []rule{
		{RuleStart, isCommand("/start"), r.handleStart},
		{RuleState, func(t *turn) bool { return t.state != state.StateIdle }, r.handleContinuation},
		{RuleSchedulePrompt, isText(ButtonSchedule), r.handleSchedulePrompt},
		{RuleScheduleQuery, r.isScheduleQuery, r.handleScheduleQuery},
		{RuleEvents, isText(ButtonEvents), r.handleEvents},
		{RuleFAQMenu, isText(ButtonFAQ, ButtonOtherQuestion), r.handleFAQMenu},
		{RuleFAQ, func(t *turn) bool { return r.deps.FAQ.IsQuestion(t.text) }, r.handleFAQ},
		{RuleAdmin, isCommand("/admin", "/add_schedule", "/add_event"), r.handleAdminCommand},
		{RuleFallback, func(*turn) bool { return true }, r.handleFallback},
	}
	r.continuations = map[state.State]func(ctx context.Context, t *turn) reply{
		StateAwaitingAdminPassword: r.continuePassword,
		StateAwaitingScheduleInput: r.continueScheduleInput,
		StateAwaitingEventInput:    r.continueEventInput,
	}
	return r, nil
}

// Route handles one message and sends exactly one reply. It returns the name of
// the rule that handled the message; the error is non-nil only if the reply
// could not be delivered.
func (r *Router) Route(ctx context.Context, msg Message) (string, error) {
	t := &turn{
		msg:  msg,
		text: strings.TrimSpace(msg.Text),
	}
	t.cmd = parseCommand(t.text)
	t.state = r.loadState(ctx, msg.UserID)

	for _, rl := range r.rules {
		if !rl.match(t) {
			continue
		}
		out := rl.handle(ctx, t)
		if err := r.deps.Notifier.Send(ctx, msg.ChatID, out.text, out.keyboard); err != nil {
			return rl.name, fmt.Errorf("reply %s: %w", rl.name, err)
		}
		return rl.name, nil
	}
	// The fallback rule always matches.
	return "", nil
}

func (r *Router) loadState(ctx context.Context, userID int64) state.State {
	st, err := r.deps.States.Get(ctx, userID)
	if err != nil {
		logger.Error(ctx, "dialog", "state.get",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return state.StateIdle
	}
	return st
}

func (r *Router) setState(ctx context.Context, userID int64, st state.State) {
	if err := r.deps.States.Set(ctx, userID, st); err != nil {
		logger.Error(ctx, "dialog", "state.set",
			slog.String("status", "fail"),
			slog.String("next_state", string(st)),
			slog.String("err", err.Error()),
		)
	}
}

func (r *Router) clearState(ctx context.Context, userID int64) {
	if err := r.deps.States.Clear(ctx, userID); err != nil {
		logger.Error(ctx, "dialog", "state.clear",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

// parseCommand returns the lowercased "/command" of text, without a "@bot" suffix.
func parseCommand(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	head := strings.Fields(text)[0]
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head)
}

func isCommand(names ...string) func(t *turn) bool {
	return func(t *turn) bool {
		for _, n := range names {
			if t.cmd == n {
				return true
			}
		}
		return false
	}
}

func isText(labels ...string) func(t *turn) bool {
	return func(t *turn) bool {
		for _, l := range labels {
			if t.text == l {
				return true
			}
		}
		return false
	}
}
