package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// ChatStore handles chat and user database operations.
type ChatStore struct {
	db *Database
}

// NewChatStore creates a new chat store.
func NewChatStore(db *Database) *ChatStore {
	return &ChatStore{db: db}
}

// GetChat returns a chat by its Telegram chat id.
func (s *ChatStore) GetChat(ctx context.Context, chatID int64) (*TelegramChat, error) {
	var chat TelegramChat
	err := s.db.GetContext(ctx, &chat, `SELECT * FROM telegram_chats WHERE chat_id = ?`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// UpsertChat creates or updates a chat keyed by its Telegram chat id and
// reports whether a row was created. chat is filled with the stored row.
func (s *ChatStore) UpsertChat(ctx context.Context, chat *TelegramChat) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if len(chat.AdditionalInfo) == 0 {
		chat.AdditionalInfo = []byte("{}")
	}
	now := time.Now().UTC()

	var existing TelegramChat
	err = tx.GetContext(ctx, &existing, `SELECT * FROM telegram_chats WHERE chat_id = ?`, chat.ChatID)
	created := errors.Is(err, sql.ErrNoRows)
	switch {
	case created:
		chat.ID = uuid.New()
		chat.CreatedAt = now
		chat.UpdatedAt = now
		query := `
			INSERT INTO telegram_chats (id, chat_id, title, username, additional_info, created_at, updated_at)
			VALUES (:id, :chat_id, :title, :username, :additional_info, :created_at, :updated_at)
		`
		if _, err := tx.NamedExecContext(ctx, query, chat); err != nil {
			return false, fmt.Errorf("failed to insert chat: %w", err)
		}
	case err != nil:
		return false, err
	default:
		chat.ID = existing.ID
		chat.CreatedAt = existing.CreatedAt
		chat.UpdatedAt = now
		query := `
			UPDATE telegram_chats SET
				title = :title,
				username = :username,
				additional_info = :additional_info,
				updated_at = :updated_at
			WHERE id = :id
		`
		if _, err := tx.NamedExecContext(ctx, query, chat); err != nil {
			return false, fmt.Errorf("failed to update chat: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return created, nil
}

// GetUserByChat returns the user linked to the chat.
func (s *ChatStore) GetUserByChat(ctx context.Context, chat *TelegramChat) (*User, error) {
	var user User
	err := s.db.GetContext(ctx, &user,
		`SELECT * FROM users WHERE telegram_chat_id = ? ORDER BY id LIMIT 1`, chat.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.TelegramChat = chat
	return &user, nil
}

// GetOrCreateUser returns the user linked to the chat, creating one with the
// given username if none exists. A taken username falls back to a generated
// one. The second result reports whether a user was created. The unique
// index on users.telegram_chat_id keeps it to one user per chat.
func (s *ChatStore) GetOrCreateUser(ctx context.Context, chat *TelegramChat, username string) (*User, bool, error) {
	user, err := s.GetUserByChat(ctx, chat)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if username == "" {
		username = uuid.NewString()
	}

	user = &User{
		Username:       username,
		TelegramChatID: uuid.NullUUID{UUID: chat.ID, Valid: true},
		CreatedAt:      time.Now().UTC(),
		TelegramChat:   chat,
	}

	err = s.insertUser(ctx, user)
	if isUniqueViolation(err) {
		// A concurrent request may have linked a user to this chat first.
		if existing, getErr := s.GetUserByChat(ctx, chat); getErr == nil {
			return existing, false, nil
		}
		user.Username = uuid.NewString()
		err = s.insertUser(ctx, user)
		if isUniqueViolation(err) {
			if existing, getErr := s.GetUserByChat(ctx, chat); getErr == nil {
				return existing, false, nil
			}
		}
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return user, true, nil
}

func (s *ChatStore) insertUser(ctx context.Context, user *User) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, telegram_chat_id, created_at) VALUES (?, ?, ?)`,
		user.Username, user.TelegramChatID, user.CreatedAt)
	if err != nil {
		return err
	}
	user.ID, err = result.LastInsertId()
	return err
}

// DeleteChat removes a chat. Linked users are kept with their chat unset.
func (s *ChatStore) DeleteChat(ctx context.Context, chatID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM telegram_chats WHERE chat_id = ?`, chatID)
	if err != nil {
		return err
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

// CountUsers returns the number of users, optionally limited to one chat.
func (s *ChatStore) CountUsers(ctx context.Context, chat *TelegramChat) (int, error) {
	var count int
	if chat == nil {
		err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
		return count, err
	}
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE telegram_chat_id = ?`, chat.ID)
	return count, err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
