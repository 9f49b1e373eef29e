package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/schedulebot/internal/schedule"
	"github.com/user/schedulebot/pkg/logger"
)

const (
	// MediaGroupTTL is how long sent media group message ids are kept.
	MediaGroupTTL = 48 * time.Hour

	maxMediaGroupSize = 10
)

var errNoMessage = errors.New("update does not contain a message")

// MediaGroups remembers which messages belong to a sent media group so
// they can be removed together.
type MediaGroups struct {
	cache schedule.Cache
	ttl   time.Duration
}

// NewMediaGroups creates a tracker backed by cache.
func NewMediaGroups(cache schedule.Cache) *MediaGroups {
	return &MediaGroups{cache: cache, ttl: MediaGroupTTL}
}

func mediaGroupKey(chatID int64, groupID string) string {
	return fmt.Sprintf("media_group:%d:%s", chatID, groupID)
}

// Track records the message ids of a media group.
func (m *MediaGroups) Track(chatID int64, groupID string, messageIDs []int) {
	data, err := json.Marshal(messageIDs)
	if err != nil {
		return
	}
	m.cache.Set(mediaGroupKey(chatID, groupID), data, m.ttl)
}

// Take returns and forgets the message ids of a media group.
func (m *MediaGroups) Take(chatID int64, groupID string) []int {
	key := mediaGroupKey(chatID, groupID)
	data, ok := m.cache.Get(key)
	if !ok {
		return nil
	}
	m.cache.Delete(key)

	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil
	}
	return ids
}

// Replier delivers screens, editing bot messages in place where possible.
type Replier struct {
	groups *MediaGroups
}

// NewReplier creates a new replier.
func NewReplier(groups *MediaGroups) *Replier {
	return &Replier{groups: groups}
}

func fromBot(msg *tgbotapi.Message) bool {
	return msg.From != nil && msg.From.IsBot
}

// deleteSiblings removes the tracked media group msg replies to.
func (r *Replier) deleteSiblings(req *Request, msg *tgbotapi.Message) {
	reply := msg.ReplyToMessage
	if reply == nil || reply.MediaGroupID == "" {
		return
	}

	for _, id := range r.groups.Take(msg.Chat.ID, reply.MediaGroupID) {
		r.deleteMessage(req, msg.Chat.ID, id)
	}
}

func (r *Replier) deleteMessage(req *Request, chatID int64, messageID int) {
	if _, err := req.API.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Int("message_id", messageID).Msg("Failed to delete message")
	}
}

// ReplyOrEdit shows screen in reply to the request. A bot message with text
// is edited in place, any other bot message is replaced, and a human
// message gets a new reply.
func (r *Replier) ReplyOrEdit(req *Request, screen Screen) error {
	msg := req.Message()
	if msg == nil || msg.Chat == nil {
		return errNoMessage
	}
	chatID := msg.Chat.ID

	if !fromBot(msg) {
		out := tgbotapi.NewMessage(chatID, screen.Text)
		out.ReplyMarkup = screen.Markup
		_, err := req.API.Send(out)
		return err
	}

	r.deleteSiblings(req, msg)

	if msg.Text != "" {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msg.MessageID, screen.Text, screen.Markup)
		_, err := req.API.Send(edit)
		return err
	}

	r.deleteMessage(req, chatID, msg.MessageID)

	out := tgbotapi.NewMessage(chatID, screen.Text)
	out.ReplyMarkup = screen.Markup
	_, err := req.API.Send(out)
	return err
}

// SendPhotos sends a photo schedule as media groups of up to ten photos,
// followed by navigation. The triggering message is deleted afterwards.
func (r *Replier) SendPhotos(req *Request, photos *schedule.PhotoSchedule, itemID string) error {
	msg := req.Message()
	if msg == nil || msg.Chat == nil {
		return errNoMessage
	}
	chatID := msg.Chat.ID
	caption := PhotoCaption(photos)
	markup := PhotoNavigation(itemID)

	if len(photos.Photos) == 0 {
		return r.ReplyOrEdit(req, Screen{Text: caption, Markup: markup})
	}

	if fromBot(msg) {
		r.deleteSiblings(req, msg)
	}

	if len(photos.Photos) == 1 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photos.Photos[0].File))
		photo.Caption = caption
		photo.ReplyMarkup = markup
		if _, err := req.API.Send(photo); err != nil {
			return fmt.Errorf("failed to send photo: %w", err)
		}
	} else {
		sent, err := r.sendMediaGroups(req, chatID, photos, caption)
		if err != nil {
			return err
		}

		first := sent[0]
		prompt := tgbotapi.NewMessage(chatID, textNavigate)
		prompt.ReplyToMessageID = first.MessageID
		prompt.ReplyMarkup = markup
		if _, err := req.API.Send(prompt); err != nil {
			return fmt.Errorf("failed to send navigation: %w", err)
		}

		if first.MediaGroupID != "" {
			ids := make([]int, 0, len(sent))
			for _, m := range sent {
				ids = append(ids, m.MessageID)
			}
			r.groups.Track(chatID, first.MediaGroupID, ids)
		}
	}

	r.deleteMessage(req, chatID, msg.MessageID)
	return nil
}

func (r *Replier) sendMediaGroups(req *Request, chatID int64, photos *schedule.PhotoSchedule, caption string) ([]tgbotapi.Message, error) {
	var sent []tgbotapi.Message

	for start := 0; start < len(photos.Photos); start += maxMediaGroupSize {
		end := start + maxMediaGroupSize
		if end > len(photos.Photos) {
			end = len(photos.Photos)
		}

		media := make([]interface{}, 0, end-start)
		for i, p := range photos.Photos[start:end] {
			item := tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(p.File))
			if start == 0 && i == 0 {
				item.Caption = caption
			}
			media = append(media, item)
		}

		msgs, err := req.API.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media))
		if err != nil {
			return nil, fmt.Errorf("failed to send media group: %w", err)
		}
		sent = append(sent, msgs...)
	}

	if len(sent) == 0 {
		return nil, errors.New("media group returned no messages")
	}
	return sent, nil
}

// ClearKeyboard removes the reply keyboard in the request's chat.
func (r *Replier) ClearKeyboard(req *Request) error {
	msg := req.Message()
	if msg == nil || msg.Chat == nil {
		return errNoMessage
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, textClearKeyboard)
	out.ReplyToMessageID = msg.MessageID
	out.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := req.API.Send(out)
	return err
}
