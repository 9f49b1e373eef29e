// Package storage provides database operations and data models.
package storage

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const secretKeyBytes = 32

// Bot is a Telegram bot this service answers webhooks for.
type Bot struct {
	ID         uuid.UUID `db:"id"`
	Name       string    `db:"name" validate:"required,max=255"`
	Token      string    `db:"token" validate:"required,max=255"`
	SecretKey  string    `db:"secret_key" validate:"required"`
	WebhookURL string    `db:"webhook_url" validate:"omitempty,url,max=1024"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Normalize fills generated fields. The secret key is generated only when
// absent, so saving a bot twice keeps its secret.
func (b *Bot) Normalize() error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.SecretKey == "" {
		secret, err := GenerateSecretKey()
		if err != nil {
			return err
		}
		b.SecretKey = secret
	}
	b.Name = strings.TrimSpace(b.Name)
	b.Token = strings.TrimSpace(b.Token)
	b.WebhookURL = strings.TrimRight(strings.TrimSpace(b.WebhookURL), "/")
	return nil
}

// FullWebhookURL returns the URL Telegram should post updates to.
func (b *Bot) FullWebhookURL() string {
	if b.WebhookURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/webhook/telegram/%s/%s", b.WebhookURL, b.ID, b.SecretKey)
}

// ShortToken returns a shortened version of the token for listings.
func (b *Bot) ShortToken() string {
	if len(b.Token) <= 10 {
		return b.Token
	}
	return b.Token[:5] + "..." + b.Token[len(b.Token)-5:]
}

// GenerateSecretKey returns a random URL-safe secret.
func GenerateSecretKey() (string, error) {
	buf := make([]byte, secretKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// TelegramChat represents a Telegram chat (user or group).
type TelegramChat struct {
	ID             uuid.UUID      `db:"id"`
	ChatID         int64          `db:"chat_id"`
	Title          string         `db:"title"`
	Username       string         `db:"username"`
	AdditionalInfo types.JSONText `db:"additional_info"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// User is a local application user, linked to at most one chat.
type User struct {
	ID             int64         `db:"id"`
	Username       string        `db:"username"`
	TelegramChatID uuid.NullUUID `db:"telegram_chat_id"`
	CreatedAt      time.Time     `db:"created_at"`

	TelegramChat *TelegramChat `db:"-"`
}
