package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// BotStore handles bot-related database operations.
type BotStore struct {
	db       *Database
	validate *validator.Validate
}

// NewBotStore creates a new bot store.
func NewBotStore(db *Database) *BotStore {
	return &BotStore{db: db, validate: validator.New()}
}

func (s *BotStore) prepare(bot *Bot) error {
	if err := bot.Normalize(); err != nil {
		return err
	}
	if err := s.validate.Struct(bot); err != nil {
		return fmt.Errorf("invalid bot: %w", err)
	}
	return nil
}

// Create validates and inserts a new bot.
func (s *BotStore) Create(ctx context.Context, bot *Bot) error {
	if err := s.prepare(bot); err != nil {
		return err
	}

	now := time.Now().UTC()
	bot.CreatedAt = now
	bot.UpdatedAt = now

	query := `
		INSERT INTO bots (id, name, token, secret_key, webhook_url, created_at, updated_at)
		VALUES (:id, :name, :token, :secret_key, :webhook_url, :created_at, :updated_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, bot); err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	return nil
}

// Update validates and saves an existing bot.
func (s *BotStore) Update(ctx context.Context, bot *Bot) error {
	if err := s.prepare(bot); err != nil {
		return err
	}
	bot.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE bots SET
			name = :name,
			token = :token,
			secret_key = :secret_key,
			webhook_url = :webhook_url,
			updated_at = :updated_at
		WHERE id = :id
	`
	result, err := s.db.NamedExecContext(ctx, query, bot)
	if err != nil {
		return fmt.Errorf("failed to update bot: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a bot by id.
func (s *BotStore) Get(ctx context.Context, id uuid.UUID) (*Bot, error) {
	var bot Bot
	err := s.db.GetContext(ctx, &bot, `SELECT * FROM bots WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

// List returns all bots ordered by creation time.
func (s *BotStore) List(ctx context.Context) ([]Bot, error) {
	var bots []Bot
	err := s.db.SelectContext(ctx, &bots, `SELECT * FROM bots ORDER BY created_at`)
	return bots, err
}

// RotateSecret replaces the bot's secret key with a fresh one.
func (s *BotStore) RotateSecret(ctx context.Context, id uuid.UUID) (*Bot, error) {
	bot, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	bot.SecretKey = ""
	if err := s.Update(ctx, bot); err != nil {
		return nil, err
	}
	return bot, nil
}
