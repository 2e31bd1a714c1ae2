package router

import (
	tg "github.com/m3rciful/schoolbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// RuleHandler processes one update and reports the name of the rule that handled it.
type RuleHandler func(c tele.Context) (rule string, err error)

// TextOptions controls routing of non-text updates.
type TextOptions struct {
	// UnknownMedia answers photos, documents and stickers. Nil ignores them.
	UnknownMedia tele.HandlerFunc
}

// TextRoutes binds the rule handler to text updates. Commands arrive as text too,
// so the handler sees every message and owns the precedence between them.
func TextRoutes(handle RuleHandler, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		s := begin(c, "text")
		rule, err := handle(c)
		s.rule = rule
		s.done(c, err)
		return err
	}

	routes := []tg.Route{{Endpoint: tele.OnText, Handler: text}}
	if opts.UnknownMedia != nil {
		media := func(c tele.Context) error {
			s := begin(c, "unknown_media")
			err := opts.UnknownMedia(c)
			s.done(c, err)
			return err
		}
		for _, ep := range []string{tele.OnPhoto, tele.OnDocument, tele.OnSticker} {
			routes = append(routes, tg.Route{Endpoint: ep, Handler: media})
		}
	}
	return routes
}
