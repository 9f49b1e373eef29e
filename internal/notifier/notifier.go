// Package notifier reports handler failures to the bot administrator.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/schedulebot/internal/schedule"
	"github.com/user/schedulebot/pkg/logger"
)

// maxBodyInReport limits how much of an upstream response body is quoted.
const maxBodyInReport = 1000

// Sender sends a message through a Telegram API session.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends error reports to the admin chat.
type Notifier struct {
	adminChatID int64
}

// NewNotifier creates a new notifier. An adminChatID of 0 disables it.
func NewNotifier(adminChatID int64) *Notifier {
	return &Notifier{adminChatID: adminChatID}
}

// Enabled reports whether an admin chat is configured.
func (n *Notifier) Enabled() bool {
	return n.adminChatID != 0
}

// NotifyError sends a detailed report of err to the admin chat. The report
// is sent even when ctx is already done.
func (n *Notifier) NotifyError(ctx context.Context, api Sender, update *tgbotapi.Update, err error) error {
	if !n.Enabled() {
		return nil
	}

	text := AdminErrorText(update, err)
	if sendErr := n.sendNotification(api, text); sendErr != nil {
		logger.Error().
			Err(sendErr).
			Int64("chat_id", n.adminChatID).
			Msg("Failed to send error report")
		return sendErr
	}
	return nil
}

// sendNotification sends a MarkdownV2 message to the admin chat.
func (n *Notifier) sendNotification(api Sender, text string) error {
	msg := tgbotapi.NewMessage(n.adminChatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	_, err := api.Send(msg)
	return err
}

// AdminErrorText formats the admin report for a failed update.
func AdminErrorText(update *tgbotapi.Update, err error) string {
	kv := []string{
		"update.update_id", fmt.Sprint(update.UpdateID),
		"update.effective_chat.id", ChatID(update),
		"error", err.Error(),
	}

	var upstreamErr *schedule.UpstreamError
	if errors.As(err, &upstreamErr) {
		kv = append(kv, "response.body", truncate(upstreamErr.Body, maxBodyInReport))
	}

	return Escape("Помилка в користувача:") + "\n\n" + CodeBlock(kv...)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// ChatID returns the id of the update's chat, or None.
func ChatID(update *tgbotapi.Update) string {
	var msg *tgbotapi.Message
	switch {
	case update.Message != nil:
		msg = update.Message
	case update.CallbackQuery != nil:
		msg = update.CallbackQuery.Message
	case update.EditedMessage != nil:
		msg = update.EditedMessage
	}
	if msg == nil || msg.Chat == nil {
		return "None"
	}
	return fmt.Sprint(msg.Chat.ID)
}

// ErrorType returns the Go type of err, looking through fmt.Errorf wrapping.
func ErrorType(err error) string {
	for {
		t := fmt.Sprintf("%T", err)
		if t != "*fmt.wrapError" && t != "*fmt.wrapErrors" {
			return t
		}
		next := errors.Unwrap(err)
		if next == nil {
			return t
		}
		err = next
	}
}

// Escape escapes text for MarkdownV2 outside code blocks.
func Escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

// CodeBlock renders key/value pairs as a MarkdownV2 pre block.
func CodeBlock(kv ...string) string {
	var b strings.Builder
	b.WriteString("```\n")
	for i := 0; i+1 < len(kv); i += 2 {
		b.WriteString(escapeCode(kv[i]))
		b.WriteString(": ")
		b.WriteString(escapeCode(kv[i+1]))
		b.WriteString("\n")
	}
	b.WriteString("```")
	return b.String()
}

// Inside pre blocks only backslash and backtick need escaping.
var codeEscaper = strings.NewReplacer(`\`, `\\`, "`", "\\`")

func escapeCode(s string) string {
	return codeEscaper.Replace(s)
}
