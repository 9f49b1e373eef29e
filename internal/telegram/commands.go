package telegram

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/user/schedulebot/internal/apperror"
	"github.com/user/schedulebot/internal/schedule"
)

// MaxCallbackData is the Telegram limit for callback data, in bytes.
const MaxCallbackData = 64

// Command is a command template. Placeholders in braces are filled from
// Params when the command is formatted as callback data.
type Command string

const (
	CommandStart         Command = "/start"
	CommandClearKeyboard Command = "/clear_keyboard"

	CommandShowSchedule      Command = "show_schedule"
	CommandSchedulePage      Command = "schedule_page?page={page}"
	CommandShowMainMenu      Command = "show_main_menu"
	CommandShowItem          Command = "show_item?id={id}"
	CommandShowPhotoSchedule Command = "show_photo_schedule?id={id}&item_id={item_id}"
	// CommandShowItemPhotos is the short form of CommandShowPhotoSchedule
	// used when both ids do not fit into callback data.
	CommandShowItemPhotos Command = "show_photo_schedule?item_id={item_id}"
)

var placeholder = regexp.MustCompile(`\{[^}]+\}`)

// Params are the values carried by callback data.
type Params struct {
	Page   int
	ID     string
	ItemID string
}

func (p Params) value(name string) string {
	switch name {
	case "page":
		if p.Page == 0 {
			return ""
		}
		return strconv.Itoa(p.Page)
	case "id":
		return p.ID
	case "item_id":
		return p.ItemID
	}
	return ""
}

// Name returns the command without its parameters or leading slash.
func (c Command) Name() string {
	name, _, _ := strings.Cut(string(c), "?")
	return strings.TrimPrefix(name, "/")
}

// Pattern returns an anchored regular expression matching callback data
// produced by the command.
func (c Command) Pattern() string {
	s := strings.TrimPrefix(string(c), "/")
	var b strings.Builder
	b.WriteString("^")
	last := 0
	for _, loc := range placeholder.FindAllStringIndex(s, -1) {
		b.WriteString(regexp.QuoteMeta(s[last:loc[0]]))
		b.WriteString(".*")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(s[last:]))
	b.WriteString("$")
	return b.String()
}

// Format fills the placeholders with URL-escaped values. Pairs whose value
// is empty are left out.
func (c Command) Format(p Params) string {
	name, query, ok := strings.Cut(string(c), "?")
	if !ok {
		return name
	}

	var pairs []string
	for _, pair := range strings.Split(query, "&") {
		key, tmpl, _ := strings.Cut(pair, "=")
		field := strings.Trim(tmpl, "{}")
		v := p.value(field)
		if v == "" {
			continue
		}
		pairs = append(pairs, key+"="+url.QueryEscape(v))
	}

	if len(pairs) == 0 {
		return name
	}
	return name + "?" + strings.Join(pairs, "&")
}

// FitsCallbackData reports whether data can be used as callback data.
func FitsCallbackData(data string) bool {
	return len(data) <= MaxCallbackData
}

// DecodeParams extracts page, id and item_id from callback data. Unknown
// keys are ignored.
func DecodeParams(data string) (Params, error) {
	var p Params

	_, query, ok := strings.Cut(data, "?")
	if !ok {
		return p, nil
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return p, apperror.InvalidRequest("malformed callback data", map[string]interface{}{"data": data}).Wrap(err)
	}

	if page := values.Get("page"); page != "" {
		n, err := strconv.Atoi(page)
		if err != nil {
			return p, apperror.InvalidRequest("malformed page number", map[string]interface{}{"data": data}).Wrap(err)
		}
		p.Page = n
	}
	p.ID = values.Get("id")
	p.ItemID = values.Get("item_id")

	return p, nil
}

// FiltersFromCallback builds schedule filters from callback data. Data
// without a page selects the first page.
func FiltersFromCallback(data string) (*schedule.Filters, error) {
	filters := schedule.DefaultFilters()

	p, err := DecodeParams(data)
	if err != nil {
		return nil, err
	}
	if p.Page != 0 {
		filters.Page = p.Page
	}

	if err := filters.Validate(); err != nil {
		return nil, apperror.InvalidRequest("invalid page number", map[string]interface{}{"data": data}).Wrap(err)
	}
	return filters, nil
}
