package dialog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/schoolbot/core/telegram/state"
	"github.com/m3rciful/schoolbot/school/faq"
	"github.com/m3rciful/schoolbot/school/model"
)

const (
	testUser int64 = 42
	testChat int64 = 4200
)

func (h *harness) say(t *testing.T, text string) string {
	t.Helper()
	before := h.notifier.count()
	rule, err := h.router.Route(context.Background(), Message{
		UserID:    testUser,
		ChatID:    testChat,
		Text:      text,
		Username:  "anna_k",
		FirstName: "Анна",
	})
	require.NoError(t, err)
	require.Equal(t, before+1, h.notifier.count(), "exactly one reply per message")
	return rule
}

func (h *harness) stateOf(t *testing.T) state.State {
	t.Helper()
	st, err := h.states.Get(context.Background(), testUser)
	require.NoError(t, err)
	return st
}

func mustHarness(t *testing.T) *harness {
	t.Helper()
	h, err := newHarness(nil)
	require.NoError(t, err)
	return h
}

func TestNewRouterRequiresDeps(t *testing.T) {
	_, err := NewRouter(Deps{})
	require.Error(t, err)
}

func TestStartRegistersUserAndGreets(t *testing.T) {
	h := mustHarness(t)

	assert.Equal(t, RuleStart, h.say(t, "/start"))
	got := h.notifier.last()
	assert.Equal(t, testChat, got.chatID)
	assert.Equal(t, fmt.Sprintf(textGreeting, "Анна"), got.text)
	assert.Equal(t, mainMenu, got.keyboard)
	assert.Contains(t, h.store.users, testUser)

	h.say(t, "/start@school_bot payload")
	assert.Len(t, h.store.users, 1)
}

func TestStartGreetsWhenDatastoreFails(t *testing.T) {
	h := mustHarness(t)
	h.store.err = errors.New("db down")

	assert.Equal(t, RuleStart, h.say(t, "/start"))
	assert.Equal(t, fmt.Sprintf(textGreeting, "Анна"), h.notifier.last().text)
}

func TestStartClearsPendingState(t *testing.T) {
	h := mustHarness(t)
	h.say(t, "/admin")
	require.Equal(t, StateAwaitingAdminPassword, h.stateOf(t))

	assert.Equal(t, RuleStart, h.say(t, "/start"))
	assert.Equal(t, state.StateIdle, h.stateOf(t))
}

func TestSchedulePromptAndQuery(t *testing.T) {
	h := mustHarness(t)
	h.store.lessons["7А|Понедельник"] = "Математика, Физика"

	assert.Equal(t, RuleSchedulePrompt, h.say(t, ButtonSchedule))
	assert.Equal(t, textSchedulePrompt, h.notifier.last().text)

	assert.Equal(t, RuleScheduleQuery, h.say(t, "7A Понедельник"))
	assert.Equal(t, "📚 Расписание для 7А на Понедельник:\nМатематика, Физика", h.notifier.last().text)

	assert.Equal(t, RuleScheduleQuery, h.say(t, "9А Суббота"))
	assert.Equal(t, textScheduleNotFound, h.notifier.last().text)

	h.store.err = errors.New("db down")
	assert.Equal(t, RuleScheduleQuery, h.say(t, "7А Понедельник"))
	assert.Equal(t, textScheduleError, h.notifier.last().text)
	assert.Zero(t, h.ai.calls())
}

func TestEventsGroupedAroundToday(t *testing.T) {
	h := mustHarness(t)
	h.store.events = []model.Event{
		{Name: "Концерт", Date: testToday.AddDate(0, 0, 5), Description: "Актовый зал"},
		{Name: "Линейка", Date: time.Date(2026, time.March, 10, 0, 0, 0, 0, time.Local)},
		{Name: "Ярмарка", Date: testToday.AddDate(0, 0, -1), Description: "Двор"},
	}

	assert.Equal(t, RuleEvents, h.say(t, ButtonEvents))
	want := textEventsHeader +
		"\n\n" + textEventsUpcoming + ":\nКонцерт (15.03.2026)\nАктовый зал\nЛинейка (10.03.2026)" +
		"\n\n" + textEventsPast + ":\nЯрмарка (09.03.2026)\nДвор"
	assert.Equal(t, want, h.notifier.last().text)
}

func TestEventsEmptyAndError(t *testing.T) {
	h := mustHarness(t)
	h.say(t, ButtonEvents)
	assert.Equal(t, textNoEvents, h.notifier.last().text)

	h.store.err = errors.New("db down")
	h.say(t, ButtonEvents)
	assert.Equal(t, textEventsError, h.notifier.last().text)
}

func TestFAQMenu(t *testing.T) {
	h := mustHarness(t)

	assert.Equal(t, RuleFAQMenu, h.say(t, ButtonFAQ))
	got := h.notifier.last()
	assert.Equal(t, textFAQMenu, got.text)
	questions := faq.School().Questions()
	require.Len(t, got.keyboard, len(questions)+1)
	assert.Equal(t, []string{questions[0]}, got.keyboard[0])
	assert.Equal(t, []string{ButtonOtherQuestion}, got.keyboard[len(got.keyboard)-1])

	assert.Equal(t, RuleFAQMenu, h.say(t, ButtonOtherQuestion))
	assert.Equal(t, textOtherQuestion, h.notifier.last().text)
}

func TestFAQAnswersBeforeAI(t *testing.T) {
	h := mustHarness(t)

	assert.Equal(t, RuleFAQ, h.say(t, "Когда каникулы?"))
	assert.Equal(t, faq.VacationAnswer, h.notifier.last().text)
	assert.Equal(t, mainMenu, h.notifier.last().keyboard)

	assert.Equal(t, RuleFAQ, h.say(t, "Кружки"))
	assert.Contains(t, h.notifier.last().text, "кружков")
	assert.Zero(t, h.ai.calls())

	// A keyword missing its last letter is routed here but only the model can answer it.
	assert.Equal(t, RuleFAQ, h.say(t, "кружк"))
	assert.Equal(t, 1, h.ai.calls())
}

func TestFAQFirstEntryWins(t *testing.T) {
	h := mustHarness(t)
	h.say(t, "Собрание будет во время каникулы?")
	assert.Equal(t, faq.VacationAnswer, h.notifier.last().text)
}

func TestFAQFallsBackToAI(t *testing.T) {
	h := mustHarness(t)

	assert.Equal(t, RuleFAQ, h.say(t, "Как связаться с учителем?"))
	assert.Equal(t, "ответ модели", h.notifier.last().text)
	assert.Equal(t, 1, h.ai.calls())

	h.ai.err = errors.New("upstream 503")
	h.say(t, "Сколько длится перемена?")
	assert.Equal(t, textAIUnavailable, h.notifier.last().text)
	assert.Equal(t, mainMenu, h.notifier.last().keyboard)
}

func TestFallbackShortcuts(t *testing.T) {
	h := mustHarness(t)

	assert.Equal(t, RuleFallback, h.say(t, "хочу отдыхать летом"))
	assert.Equal(t, faq.VacationAnswer, h.notifier.last().text)

	h.store.upcoming = []model.Event{{Name: "Собрание 7А", Date: time.Date(2026, time.March, 20, 0, 0, 0, 0, time.Local)}}
	assert.Equal(t, RuleFallback, h.say(t, "когда встреча с родителями"))
	assert.Equal(t, textNearestEvents+"\nСобрание 7А (20.03.2026)", h.notifier.last().text)
	assert.Equal(t, nearestEventsDays, h.store.withinArg)

	h.store.upcoming = nil
	h.say(t, "родительское собрание скоро")
	assert.Equal(t, textNoNearestEvents, h.notifier.last().text)
	assert.Zero(t, h.ai.calls())
}

func TestFallbackCallsAIOnce(t *testing.T) {
	h := mustHarness(t)

	assert.Equal(t, RuleFallback, h.say(t, "расскажи про олимпиаду"))
	assert.Equal(t, 1, h.ai.calls())
	assert.Equal(t, "ответ модели", h.notifier.last().text)
}

func TestFallbackShortTextGetsHint(t *testing.T) {
	h := mustHarness(t)

	assert.Equal(t, RuleFallback, h.say(t, "ок"))
	assert.Equal(t, textShortHint, h.notifier.last().text)
	assert.Equal(t, mainMenu, h.notifier.last().keyboard)
	assert.Zero(t, h.ai.calls())
}

func TestAdminPasswordAlwaysReturnsToIdle(t *testing.T) {
	for _, tc := range []struct {
		password string
		want     string
	}{
		{"school123", textAccessGranted},
		{"wrong", textAccessDenied},
	} {
		t.Run(tc.password, func(t *testing.T) {
			h := mustHarness(t)
			assert.Equal(t, RuleAdmin, h.say(t, "/admin"))
			assert.Equal(t, textPasswordPrompt, h.notifier.last().text)
			require.Equal(t, StateAwaitingAdminPassword, h.stateOf(t))

			assert.Equal(t, RuleState, h.say(t, tc.password))
			assert.Equal(t, tc.want, h.notifier.last().text)
			assert.Equal(t, state.StateIdle, h.stateOf(t))
		})
	}
}

func TestPendingStateOverridesMenuText(t *testing.T) {
	h := mustHarness(t)
	h.say(t, "/admin")

	assert.Equal(t, RuleState, h.say(t, ButtonEvents))
	assert.Equal(t, textAccessDenied, h.notifier.last().text)
	assert.Equal(t, state.StateIdle, h.stateOf(t))
}

func TestAddScheduleRequiresThreeFields(t *testing.T) {
	h := mustHarness(t)

	h.say(t, "/add_schedule")
	require.Equal(t, StateAwaitingScheduleInput, h.stateOf(t))
	h.say(t, "7А Понедельник")
	assert.Equal(t, textAddScheduleFormat, h.notifier.last().text)
	assert.Empty(t, h.store.schedules)
	assert.Equal(t, state.StateIdle, h.stateOf(t))

	h.say(t, "/add_schedule")
	h.say(t, "7А Понедельник Математика,Физика Химия")
	assert.Equal(t, textAddScheduleFormat, h.notifier.last().text)
	assert.Empty(t, h.store.schedules)

	h.say(t, "/add_schedule")
	h.say(t, "7А Понедельник Математика,Физика,Химия")
	assert.Equal(t, textScheduleAdded, h.notifier.last().text)
	require.Len(t, h.store.schedules, 1)
	assert.Equal(t, model.ScheduleRow{ClassName: "7А", Day: "Понедельник", Lessons: "Математика,Физика,Химия"}, h.store.schedules[0])
	assert.Equal(t, state.StateIdle, h.stateOf(t))
}

func TestAddScheduleStoreFailure(t *testing.T) {
	h := mustHarness(t)
	h.say(t, "/add_schedule")
	h.store.err = errors.New("db down")

	h.say(t, "7А Понедельник Математика")
	assert.Equal(t, textSaveFailed, h.notifier.last().text)
	assert.Equal(t, state.StateIdle, h.stateOf(t))
}

func TestAddEvent(t *testing.T) {
	h := mustHarness(t)

	h.say(t, "/add_event")
	require.Equal(t, StateAwaitingEventInput, h.stateOf(t))
	h.say(t, "Концерт | 25.10.2026 | Актовый зал")
	assert.Equal(t, textEventAdded, h.notifier.last().text)
	require.Len(t, h.store.inserted, 1)
	ev := h.store.inserted[0]
	assert.Equal(t, "Концерт", ev.Name)
	assert.Equal(t, "Актовый зал", ev.Description)
	assert.Equal(t, "25.10.2026", ev.Date.Format(model.DateLayout))
	assert.Equal(t, state.StateIdle, h.stateOf(t))
}

func TestAddEventRejectsBadInput(t *testing.T) {
	h := mustHarness(t)

	h.say(t, "/add_event")
	h.say(t, "Концерт 25.10.2026")
	assert.Equal(t, textAddEventFormat, h.notifier.last().text)

	h.say(t, "/add_event")
	h.say(t, "Концерт | завтра | Актовый зал")
	assert.Equal(t, fmt.Sprintf(textAddEventDate, "завтра"), h.notifier.last().text)
	assert.Empty(t, h.store.inserted)
	assert.Equal(t, state.StateIdle, h.stateOf(t))
}

func TestUnknownStateResetsToIdle(t *testing.T) {
	h := mustHarness(t)
	require.NoError(t, h.states.Set(context.Background(), testUser, state.State("awaiting_unknown")))

	assert.Equal(t, RuleState, h.say(t, "что угодно"))
	assert.Equal(t, textShortHint, h.notifier.last().text)
	assert.Equal(t, state.StateIdle, h.stateOf(t))
}

func TestStateReadErrorTreatedAsIdle(t *testing.T) {
	broken := &brokenStates{}
	h, err := newHarness(broken)
	require.NoError(t, err)

	assert.Equal(t, RuleEvents, h.say(t, ButtonEvents))
	assert.Equal(t, RuleFallback, h.say(t, "ок"))
}

func TestRouteReturnsNotifierError(t *testing.T) {
	h := mustHarness(t)
	h.notifier.err = errors.New("telegram down")

	rule, err := h.router.Route(context.Background(), Message{UserID: testUser, ChatID: testChat, Text: ButtonFAQ})
	require.Error(t, err)
	assert.Equal(t, RuleFAQMenu, rule)
}

func TestParseCommand(t *testing.T) {
	assert.Equal(t, "/start", parseCommand("/START@School_Bot ref"))
	assert.Equal(t, "/admin", parseCommand("/admin"))
	assert.Equal(t, "", parseCommand("admin"))
}
