package dialog

import (
	"fmt"

	coretelegram "github.com/m3rciful/schoolbot/core/telegram"
	tghelpers "github.com/m3rciful/schoolbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// HandleTelegram adapts a telebot text update to Route.
func (r *Router) HandleTelegram(c tele.Context) (string, error) {
	ctx := tghelpers.Context(c)
	msg := Message{Text: c.Text()}
	if u := c.Sender(); u != nil {
		msg.UserID = u.ID
		msg.Username = u.Username
		msg.FirstName = u.FirstName
		msg.LastName = u.LastName
	}
	if chat := c.Chat(); chat != nil {
		msg.ChatID = chat.ID
	} else {
		msg.ChatID = msg.UserID
	}
	return r.Route(ctx, msg)
}

// HandleMedia answers non-text messages with a hint and the main menu.
func (r *Router) HandleMedia(c tele.Context) error {
	ctx := tghelpers.Context(c)
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	return r.deps.Notifier.Send(ctx, chat.ID, textMediaHint, mainMenu)
}

// RegisterCommands publishes the bot commands. Operator commands stay out of the menu.
func RegisterCommands(reg *coretelegram.Registry) error {
	cmds := []struct {
		name string
		cmd  coretelegram.Command
	}{
		{"/start", coretelegram.Command{Description: "Начать работу с ботом"}},
		{"/admin", coretelegram.Command{Description: "Вход для администратора"}},
		{"/add_schedule", coretelegram.Command{Description: "Добавить расписание", Hidden: true}},
		{"/add_event", coretelegram.Command{Description: "Добавить событие", Hidden: true}},
	}
	for _, c := range cmds {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			return fmt.Errorf("register %s: %w", c.name, err)
		}
	}
	return nil
}
