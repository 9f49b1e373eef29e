package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/schedulebot/internal/notifier"
	"github.com/user/schedulebot/internal/schedule"
	"github.com/user/schedulebot/internal/storage"
)

const (
	textClearKeyboard = "Кнопки прибрано"
	textNavigate      = "Використовуйте кнопки для навігації"
	unknownChatTitle  = "Unknown Chat"

	iconGroup = "👥 "
	iconPhoto = "🖼️ "
)

// Screen is a rendered message: text plus inline keyboard.
type Screen struct {
	Text   string
	Markup tgbotapi.InlineKeyboardMarkup
}

func button(label string, cmd Command, p Params) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, cmd.Format(p))
}

// StartScreen greets the user's chat.
func StartScreen(user *storage.User) Screen {
	title := unknownChatTitle
	if user != nil && user.TelegramChat != nil {
		title = user.TelegramChat.Title
	}

	return Screen{
		Text: fmt.Sprintf("%s, вітаємо у боті ФКПАІТ ОНТУ!", title),
		Markup: tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(button("📅 Розклад", CommandShowSchedule, Params{})),
		),
	}
}

// ScheduleListScreen lists one page of schedules with paging controls.
func ScheduleListScreen(resp *schedule.Response) Screen {
	var rows [][]tgbotapi.InlineKeyboardButton

	for i := range resp.Results {
		item := &resp.Results[i]
		label := ""
		if item.HasGroupSchedules() {
			label += iconGroup
		}
		if item.HasPhotoSchedule() {
			label += iconPhoto
		}
		label += item.ForDate.String()

		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button(label, CommandShowItem, Params{ID: item.UUID}),
		))
	}

	var controls []tgbotapi.InlineKeyboardButton
	if prev, ok := resp.PreviousPageNumber(); ok {
		controls = append(controls, button("⬅️ Попередня Сторінка", CommandSchedulePage, Params{Page: prev}))
	}
	if next, ok := resp.NextPageNumber(); ok {
		controls = append(controls, button("➡️ Наступна Сторінка", CommandSchedulePage, Params{Page: next}))
	}
	if len(controls) > 0 {
		rows = append(rows, controls)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("🏠 До Головного Меню", CommandShowMainMenu, Params{}),
	))

	return Screen{
		Text:   fmt.Sprintf("Розклад (%d):", resp.Count),
		Markup: tgbotapi.NewInlineKeyboardMarkup(rows...),
	}
}

func mark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

// ItemScreen describes a single day's schedule.
func ItemScreen(item *schedule.Schedule) Screen {
	text := fmt.Sprintf("Розклад на %s:\n\nРозклад для груп: %s\nРозклад у вигляді фото: %s\n\nОновлено о: %s",
		item.ForDate,
		mark(item.HasGroupSchedules()),
		mark(item.HasPhotoSchedule()),
		schedule.FormatTimestamp(item.UpdatedAt),
	)

	var rows [][]tgbotapi.InlineKeyboardButton
	if photoID, ok := item.PhotoScheduleID(); ok {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🖼️ Переглянути Фото Розкладу", photoScheduleData(photoID, item.UUID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("📅 До Розкладу", CommandShowSchedule, Params{}),
	))

	return Screen{Text: text, Markup: tgbotapi.NewInlineKeyboardMarkup(rows...)}
}

// photoScheduleData encodes both ids when they fit into callback data and
// only the item id otherwise.
func photoScheduleData(photoID, itemID string) string {
	data := CommandShowPhotoSchedule.Format(Params{ID: photoID, ItemID: itemID})
	if FitsCallbackData(data) {
		return data
	}
	return CommandShowItemPhotos.Format(Params{ItemID: itemID})
}

// PhotoNavigation is the keyboard shown with a photo schedule.
func PhotoNavigation(itemID string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if itemID != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("📄 До розкладу на день", CommandShowItem, Params{ID: itemID}),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("📅 До Розкладу", CommandShowSchedule, Params{}),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// PhotoCaption is the caption of a photo schedule.
func PhotoCaption(p *schedule.PhotoSchedule) string {
	return fmt.Sprintf("Фото розкладу:\n\nОпис: %s\nОновлено о: %s",
		p.DisplayName(), schedule.FormatTimestamp(p.UpdatedAt))
}

// UserErrorText is the MarkdownV2 apology sent to the chat where a handler failed.
func UserErrorText(update *tgbotapi.Update, err error) string {
	return notifier.Escape("Вибачте, сталася помилка.\nВи можете надати наступну інформацію:") + "\n" +
		notifier.CodeBlock(
			"update.update_id", fmt.Sprint(update.UpdateID),
			"update.effective_chat.id", notifier.ChatID(update),
			"type(error)", notifier.ErrorType(err),
		)
}
