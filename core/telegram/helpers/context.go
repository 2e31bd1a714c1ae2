// Package helpers carries the request-scoped logging context through telebot handlers.
package helpers

import (
	"context"

	"github.com/m3rciful/schoolbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const requestKey = "request_ctx"

// IDs returns the update, chat and sender ids of c. Missing parts are zero.
// Private chats without a chat object fall back to the sender id.
func IDs(c tele.Context) (updateID int, chatID, userID int64) {
	updateID = c.Update().ID
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	chatID = userID
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	return updateID, chatID, userID
}

// Context returns the request context of c, creating and caching it on
// first use. The request id has the form update:chat:user.
func Context(c tele.Context) context.Context {
	if ctx, ok := c.Get(requestKey).(context.Context); ok {
		return ctx
	}
	updateID, chatID, userID := IDs(c)
	ctx := logger.WithRID(context.Background(), logger.BuildRID(updateID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	c.Set(requestKey, ctx)
	return ctx
}

// Tag names the handler on the cached context so later log lines carry it.
func Tag(c tele.Context, handler string) context.Context {
	ctx := Context(c)
	if handler == "" || logger.HandlerFrom(ctx) == handler {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	c.Set(requestKey, ctx)
	return ctx
}
