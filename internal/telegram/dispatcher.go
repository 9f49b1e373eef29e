package telegram

import (
	"context"
	"fmt"
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/schedulebot/internal/metrics"
	"github.com/user/schedulebot/internal/notifier"
	"github.com/user/schedulebot/pkg/logger"
)

// Dispatcher routes updates to handlers and reports handler failures.
type Dispatcher struct {
	router   *Router
	notifier *notifier.Notifier
}

// NewDispatcher creates a dispatcher for the given handlers.
func NewDispatcher(h *Handlers, n *notifier.Notifier) *Dispatcher {
	router := NewRouter()
	h.Register(router)
	return &Dispatcher{router: router, notifier: n}
}

// Process handles one update. Handler errors and panics are reported to the
// chat and the admin, never returned.
func (d *Dispatcher) Process(ctx context.Context, api API, update *tgbotapi.Update) {
	req := &Request{API: api, Update: update}

	route, handler, ok := d.router.Match(update)
	if !ok {
		logger.Debug().Int("update_id", update.UpdateID).Msg("Ignoring update without a handler")
		return
	}
	metrics.UpdatesTotal.WithLabelValues(route).Inc()

	if cq := update.CallbackQuery; cq != nil {
		if _, err := api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			logger.Warn().Err(err).Str("callback_id", cq.ID).Msg("Failed to answer callback query")
		}
	}

	logger.Debug().Int("update_id", update.UpdateID).Str("route", route).Msg("Dispatching update")

	if err := d.run(ctx, handler, req); err != nil {
		metrics.HandlerErrorsTotal.WithLabelValues(route).Inc()
		d.handleError(ctx, req, route, err)
	}
}

func (d *Dispatcher) run(ctx context.Context, handler HandlerFunc, req *Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("stack", string(debug.Stack())).Msg("Handler panicked")
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, req)
}

func (d *Dispatcher) handleError(ctx context.Context, req *Request, route string, err error) {
	if chat := req.Chat(); chat != nil {
		msg := tgbotapi.NewMessage(chat.ID, UserErrorText(req.Update, err))
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		if m := req.Message(); m != nil && !fromBot(m) {
			msg.ReplyToMessageID = m.MessageID
		}
		if _, sendErr := req.API.Send(msg); sendErr != nil {
			logger.Warn().Err(sendErr).Int64("chat_id", chat.ID).Msg("Failed to send error message")
		}
	}

	if notifyErr := d.notifier.NotifyError(context.WithoutCancel(ctx), req.API, req.Update, err); notifyErr != nil {
		logger.Warn().Err(notifyErr).Msg("Failed to notify admin")
	}

	logger.Error().
		Err(err).
		Int("update_id", req.Update.UpdateID).
		Str("route", route).
		Str("error_type", notifier.ErrorType(err)).
		Msg("An unexpected error occurred while handling an update")
}
