package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/schoolbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// commandRe is the name format Telegram accepts in setMyCommands.
var commandRe = regexp.MustCompile(`^/[a-z0-9_]{1,32}$`)

// Command describes an entry of the bot command menu.
type Command struct {
	Description string
	// Hidden commands are routed normally but left out of the menu.
	Hidden bool
}

// Registry holds the commands advertised to Telegram clients.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// RegisterCommand adds a command such as "/add_event". Names must be unique.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	name = strings.TrimSpace(name)
	switch {
	case !commandRe.MatchString(name):
		return r.reject(name, "bad_name", fmt.Errorf("command %q: want / followed by up to 32 of a-z, 0-9, _", name))
	case strings.TrimSpace(cmd.Description) == "":
		return r.reject(name, "no_description", fmt.Errorf("command %q: empty description", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[name]; dup {
		return r.reject(name, "duplicate", fmt.Errorf("command %q already registered", name))
	}
	r.commands[name] = cmd
	return nil
}

func (r *Registry) reject(name, reason string, err error) error {
	logger.Warn(context.Background(), "tg.wire", "register.command.skip",
		slog.String("status", "skip"),
		slog.String("name", name),
		slog.String("reason", reason),
	)
	return err
}

// ListCommands returns commands sorted by name, optionally without hidden ones.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []tele.Command
	for name, c := range r.commands {
		if !visibleOnly || !c.Hidden {
			list = append(list, tele.Command{Text: name[1:], Description: c.Description})
		}
	}
	slices.SortFunc(list, func(a, b tele.Command) int { return strings.Compare(a.Text, b.Text) })
	return list
}

// SetupCommands publishes the visible commands as the bot menu. A failure
// only costs the menu, so it is logged and not returned.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	cmds := reg.ListCommands(true)
	if bot == nil || len(cmds) == 0 {
		return
	}
	ctx := context.Background()
	if err := bot.SetCommands(cmds); err != nil {
		logger.Error(ctx, "tg.wire", "register.commands.set",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Info(ctx, "tg.wire", "register.commands.set",
		slog.String("status", "ok"),
		slog.Int("count", len(cmds)),
	)
}
