package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/schedulebot/internal/apperror"
	"github.com/user/schedulebot/internal/storage"
	"github.com/user/schedulebot/pkg/logger"
)

// ChatRepository stores chats and the users linked to them.
type ChatRepository interface {
	GetChat(ctx context.Context, chatID int64) (*storage.TelegramChat, error)
	UpsertChat(ctx context.Context, chat *storage.TelegramChat) (bool, error)
	GetOrCreateUser(ctx context.Context, chat *storage.TelegramChat, username string) (*storage.User, bool, error)
}

// Resolver maps the chat of an update to a local user.
type Resolver struct {
	chats ChatRepository
}

// NewResolver creates a new resolver.
func NewResolver(chats ChatRepository) *Resolver {
	return &Resolver{chats: chats}
}

// Resolve returns the user for the update's chat. In getOnly mode the chat
// must already be stored; otherwise it is created or refreshed first.
func (r *Resolver) Resolve(ctx context.Context, update *tgbotapi.Update, getOnly bool) (*storage.User, error) {
	chat, err := r.chat(ctx, update, getOnly)
	if err != nil {
		return nil, err
	}

	user, created, err := r.chats.GetOrCreateUser(ctx, chat, chat.Username)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Debug().Int64("user_id", user.ID).Msg("Created new user")
	}
	return user, nil
}

func (r *Resolver) chat(ctx context.Context, update *tgbotapi.Update, getOnly bool) (*storage.TelegramChat, error) {
	effective := effectiveChat(update)
	if effective == nil {
		return nil, apperror.InvalidRequest("update does not contain an effective chat", map[string]interface{}{
			"update_id": update.UpdateID,
		})
	}

	if getOnly {
		chat, err := r.chats.GetChat(ctx, effective.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperror.NotFound("chat not found", map[string]interface{}{
				"chat_id": effective.ID,
			}).Wrap(err)
		}
		return chat, err
	}

	info, err := json.Marshal(effective)
	if err != nil {
		return nil, err
	}

	chat := &storage.TelegramChat{
		ChatID:         effective.ID,
		Title:          chatTitle(effective),
		Username:       effective.UserName,
		AdditionalInfo: info,
	}

	created, err := r.chats.UpsertChat(ctx, chat)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Debug().Str("chat_uuid", chat.ID.String()).Int64("chat_id", chat.ChatID).Msg("Created new chat")
	}
	return chat, nil
}

// chatTitle uses the group title, or the person's name in private chats.
func chatTitle(chat *tgbotapi.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	return strings.TrimSpace(chat.FirstName + " " + chat.LastName)
}
