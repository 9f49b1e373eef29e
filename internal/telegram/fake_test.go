package telegram

import (
	"context"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/user/schedulebot/internal/schedule"
	"github.com/user/schedulebot/internal/storage"
)

// fakeAPI records every call made to the Telegram API.
type fakeAPI struct {
	mu          sync.Mutex
	sent        []tgbotapi.Chattable
	requests    []tgbotapi.Chattable
	mediaGroups []tgbotapi.MediaGroupConfig
	nextID      int
	sendErr     error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{nextID: 500}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mediaGroups = append(f.mediaGroups, config)
	groupID := "group-" + string(rune('a'+len(f.mediaGroups)-1))
	msgs := make([]tgbotapi.Message, 0, len(config.Media))
	for range config.Media {
		f.nextID++
		msgs = append(msgs, tgbotapi.Message{MessageID: f.nextID, MediaGroupID: groupID})
	}
	return msgs, nil
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeAPI) edits() []tgbotapi.EditMessageTextConfig {
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeAPI) deleted() []int {
	var out []int
	for _, c := range f.requests {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			out = append(out, d.MessageID)
		}
	}
	return out
}

func (f *fakeAPI) callbacksAnswered() int {
	n := 0
	for _, c := range f.requests {
		if _, ok := c.(tgbotapi.CallbackConfig); ok {
			n++
		}
	}
	return n
}

// fakeSchedules serves canned schedule data.
type fakeSchedules struct {
	mu       sync.Mutex
	list     *schedule.Response
	items    map[string]*schedule.Schedule
	photos   map[string]*schedule.PhotoSchedule
	err      error
	filters  []*schedule.Filters
	itemHits int
}

func (f *fakeSchedules) ListSchedules(ctx context.Context, filters *schedule.Filters) (*schedule.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filters)
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

func (f *fakeSchedules) GetSchedule(ctx context.Context, id string) (*schedule.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemHits++
	if f.err != nil {
		return nil, f.err
	}
	item, ok := f.items[id]
	if !ok {
		return nil, &schedule.UpstreamError{Op: "get_schedule", StatusCode: 404, URL: id}
	}
	return item, nil
}

func (f *fakeSchedules) GetPhotoSchedule(ctx context.Context, id string) (*schedule.PhotoSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.photos[id]
	if !ok {
		return nil, &schedule.UpstreamError{Op: "get_photo_schedule", StatusCode: 404, URL: id}
	}
	return p, nil
}

func newTestStore(t *testing.T) *storage.ChatStore {
	t.Helper()
	db, err := storage.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewChatStore(db)
}

func privateChat(id int64) *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: id, Type: "private", FirstName: "Ivan", LastName: "Petrenko", UserName: "ivan"}
}

func commandUpdate(updateID int, chat *tgbotapi.Chat, text string) *tgbotapi.Update {
	return &tgbotapi.Update{
		UpdateID: updateID,
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: chat.ID, FirstName: chat.FirstName},
			Chat:      chat,
			Text:      text,
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
		},
	}
}

func callbackUpdate(updateID int, chat *tgbotapi.Chat, data string, msg *tgbotapi.Message) *tgbotapi.Update {
	if msg == nil {
		msg = &tgbotapi.Message{MessageID: 20, Text: "previous screen"}
	}
	msg.Chat = chat
	msg.From = &tgbotapi.User{ID: 1, IsBot: true, FirstName: "bot"}
	return &tgbotapi.Update{
		UpdateID: updateID,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			From:    &tgbotapi.User{ID: chat.ID},
			Message: msg,
			Data:    data,
		},
	}
}
