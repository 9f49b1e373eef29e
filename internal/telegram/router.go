package telegram

import (
	"context"
	"regexp"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Request is a single update being handled together with the API session
// it arrived on.
type Request struct {
	API    API
	Update *tgbotapi.Update
}

// Message returns the message the update is about: the inbound message or
// the message carrying the pressed inline button.
func (r *Request) Message() *tgbotapi.Message {
	return effectiveMessage(r.Update)
}

// Chat returns the chat the update belongs to.
func (r *Request) Chat() *tgbotapi.Chat {
	return effectiveChat(r.Update)
}

// CallbackData returns the pressed button's data, if any.
func (r *Request) CallbackData() string {
	if r.Update.CallbackQuery == nil {
		return ""
	}
	return r.Update.CallbackQuery.Data
}

func effectiveMessage(update *tgbotapi.Update) *tgbotapi.Message {
	switch {
	case update.Message != nil:
		return update.Message
	case update.CallbackQuery != nil:
		return update.CallbackQuery.Message
	case update.EditedMessage != nil:
		return update.EditedMessage
	}
	return nil
}

func effectiveChat(update *tgbotapi.Update) *tgbotapi.Chat {
	if msg := effectiveMessage(update); msg != nil {
		return msg.Chat
	}
	return nil
}

// HandlerFunc handles a routed update.
type HandlerFunc func(ctx context.Context, req *Request) error

type route struct {
	name    string
	pattern *regexp.Regexp
	handler HandlerFunc
}

// Router maps updates to handlers. Callback routes are tried in
// registration order and the first match wins.
type Router struct {
	callbacks []route
	commands  map[string]route
	fallback  *route
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{commands: make(map[string]route)}
}

// Callback registers a handler for callback data matching cmd.
func (r *Router) Callback(cmd Command, h HandlerFunc) {
	r.callbacks = append(r.callbacks, route{
		name:    cmd.Name(),
		pattern: regexp.MustCompile(cmd.Pattern()),
		handler: h,
	})
}

// Command registers a handler for a slash command.
func (r *Router) Command(cmd Command, h HandlerFunc) {
	r.commands[cmd.Name()] = route{name: cmd.Name(), handler: h}
}

// Fallback registers the handler for slash commands nobody else handles.
func (r *Router) Fallback(cmd Command, h HandlerFunc) {
	r.fallback = &route{name: cmd.Name(), handler: h}
}

// Match returns the route name and handler for an update. Plain text and
// unsupported update kinds do not match.
func (r *Router) Match(update *tgbotapi.Update) (string, HandlerFunc, bool) {
	if cq := update.CallbackQuery; cq != nil {
		for _, rt := range r.callbacks {
			if rt.pattern.MatchString(cq.Data) {
				return rt.name, rt.handler, true
			}
		}
		return "", nil, false
	}

	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return "", nil, false
	}

	if rt, ok := r.commands[msg.Command()]; ok {
		return rt.name, rt.handler, true
	}
	if r.fallback != nil {
		return r.fallback.name, r.fallback.handler, true
	}
	return "", nil, false
}
