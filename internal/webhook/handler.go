// Package webhook receives Telegram updates over HTTP.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/user/schedulebot/internal/apperror"
	"github.com/user/schedulebot/internal/metrics"
	"github.com/user/schedulebot/internal/storage"
	"github.com/user/schedulebot/internal/telegram"
	"github.com/user/schedulebot/pkg/logger"
)

const maxBodySize = 1 << 20

// BotRepository looks up bots by id.
type BotRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*storage.Bot, error)
}

// Processor handles a decoded update.
type Processor interface {
	Process(ctx context.Context, api telegram.API, update *tgbotapi.Update)
}

// APIFactory opens a Telegram API session for a bot token.
type APIFactory func(token string) telegram.API

// Response is the JSON body of every webhook response.
type Response struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
}

// Handler handles POST /webhook/telegram/{bot_id}/{secret_key}.
type Handler struct {
	bots      BotRepository
	processor Processor
	newAPI    APIFactory
	log       zerolog.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(bots BotRepository, processor Processor, newAPI APIFactory) *Handler {
	return &Handler{
		bots:      bots,
		processor: processor,
		newAPI:    newAPI,
		log:       logger.With("webhook"),
	}
}

// ServeHTTP handles incoming webhook requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bot, err := h.authenticate(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.writeError(w, apperror.InvalidRequest("failed to read body", nil).Wrap(err))
		return
	}
	defer r.Body.Close()

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		h.writeError(w, apperror.InvalidRequest("malformed update", map[string]interface{}{
			"bot_id": bot.ID.String(),
		}).Wrap(err))
		return
	}

	h.log.Debug().
		Str("bot_id", bot.ID.String()).
		Int("update_id", update.UpdateID).
		Msg("Webhook update received")

	h.processor.Process(r.Context(), h.newAPI(bot.Token), &update)

	metrics.WebhookRequestsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, Response{Status: "OK"})
}

func (h *Handler) authenticate(r *http.Request) (*storage.Bot, error) {
	rawID := chi.URLParam(r, "bot_id")
	secret := chi.URLParam(r, "secret_key")

	if secret == "" {
		return nil, apperror.Authentication("", map[string]interface{}{
			"msg":    "Missing secret key",
			"bot_id": rawID,
		})
	}

	botID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperror.InvalidRequest("malformed bot id", map[string]interface{}{"bot_id": rawID}).Wrap(err)
	}

	bot, err := h.bots.Get(r.Context(), botID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperror.Authorization("", map[string]interface{}{
			"msg":    "Bot not found",
			"bot_id": botID.String(),
		})
	}
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(bot.SecretKey), []byte(secret)) != 1 {
		return nil, apperror.Authorization("", map[string]interface{}{
			"msg":    "Invalid secret key",
			"bot_id": botID.String(),
		})
	}

	return bot, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperror.StatusCode(err)
	msg := http.StatusText(status)

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
		event := h.log.Warn()
		if appErr.Kind == apperror.KindAuthentication || appErr.Kind == apperror.KindAuthorization {
			event = h.log.Error()
		}
		event.Fields(appErr.Fields).Err(appErr.Err).Int("status", status).Msg(appErr.Message)
	} else {
		h.log.Error().Err(err).Msg("Webhook request failed")
	}

	metrics.WebhookRequestsTotal.WithLabelValues(resultLabel(status)).Inc()
	writeJSON(w, status, Response{Status: "ERROR", Msg: msg})
}

func resultLabel(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "unauthorized"
	case http.StatusBadRequest, http.StatusNotFound:
		return "invalid"
	}
	return "error"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Msg("Failed to write webhook response")
	}
}
