package telegram

import (
	"context"

	"github.com/user/schedulebot/internal/apperror"
	"github.com/user/schedulebot/internal/schedule"
	"github.com/user/schedulebot/pkg/logger"
)

// ScheduleSource provides schedule data.
type ScheduleSource interface {
	ListSchedules(ctx context.Context, filters *schedule.Filters) (*schedule.Response, error)
	GetSchedule(ctx context.Context, id string) (*schedule.Schedule, error)
	GetPhotoSchedule(ctx context.Context, id string) (*schedule.PhotoSchedule, error)
}

// Handlers implements the bot's commands.
type Handlers struct {
	resolver  *Resolver
	schedules ScheduleSource
	replier   *Replier
}

// NewHandlers creates a new handlers instance.
func NewHandlers(resolver *Resolver, schedules ScheduleSource, replier *Replier) *Handlers {
	return &Handlers{
		resolver:  resolver,
		schedules: schedules,
		replier:   replier,
	}
}

// Register adds all commands to the router.
func (h *Handlers) Register(r *Router) {
	r.Command(CommandStart, h.Start)
	r.Command(CommandClearKeyboard, h.ClearKeyboard)
	r.Fallback(CommandStart, h.Start)

	r.Callback(CommandShowSchedule, h.ShowSchedule)
	r.Callback(CommandSchedulePage, h.ShowSchedule)
	r.Callback(CommandShowMainMenu, h.Start)
	r.Callback(CommandShowItem, h.ShowItem)
	r.Callback(CommandShowPhotoSchedule, h.ShowPhotoSchedule)
	r.Callback(CommandShowItemPhotos, h.ShowPhotoSchedule)
}

// Start greets the chat and shows the main menu.
func (h *Handlers) Start(ctx context.Context, req *Request) error {
	user, err := h.resolver.Resolve(ctx, req.Update, false)
	if err != nil {
		return err
	}
	return h.replier.ReplyOrEdit(req, StartScreen(user))
}

// ClearKeyboard removes a leftover reply keyboard.
func (h *Handlers) ClearKeyboard(ctx context.Context, req *Request) error {
	return h.replier.ClearKeyboard(req)
}

// ShowSchedule shows a page of schedules, the first one unless the callback
// data carries a page.
func (h *Handlers) ShowSchedule(ctx context.Context, req *Request) error {
	if _, err := h.resolver.Resolve(ctx, req.Update, false); err != nil {
		return err
	}

	filters := schedule.DefaultFilters()
	if data := req.CallbackData(); data != "" {
		var err error
		if filters, err = FiltersFromCallback(data); err != nil {
			return err
		}
	}

	resp, err := h.schedules.ListSchedules(ctx, filters)
	if err != nil {
		return err
	}

	logger.Debug().Int("page", filters.Page).Int("count", resp.Count).Msg("Showing schedule page")
	return h.replier.ReplyOrEdit(req, ScheduleListScreen(resp))
}

// ShowItem shows a single day's schedule.
func (h *Handlers) ShowItem(ctx context.Context, req *Request) error {
	if _, err := h.resolver.Resolve(ctx, req.Update, false); err != nil {
		return err
	}

	data := req.CallbackData()
	p, err := DecodeParams(data)
	if err != nil {
		return err
	}
	if p.ID == "" {
		return apperror.InvalidRequest("missing schedule id", map[string]interface{}{"data": data})
	}

	item, err := h.schedules.GetSchedule(ctx, p.ID)
	if err != nil {
		return err
	}
	return h.replier.ReplyOrEdit(req, ItemScreen(item))
}

// ShowPhotoSchedule sends the photos of a schedule. Without a photo id the
// id is looked up through the schedule item.
func (h *Handlers) ShowPhotoSchedule(ctx context.Context, req *Request) error {
	if _, err := h.resolver.Resolve(ctx, req.Update, false); err != nil {
		return err
	}

	data := req.CallbackData()
	p, err := DecodeParams(data)
	if err != nil {
		return err
	}

	photoID := p.ID
	if photoID == "" {
		if p.ItemID == "" {
			return apperror.InvalidRequest("missing photo schedule id", map[string]interface{}{"data": data})
		}
		item, err := h.schedules.GetSchedule(ctx, p.ItemID)
		if err != nil {
			return err
		}
		var ok bool
		if photoID, ok = item.PhotoScheduleID(); !ok {
			return apperror.NotFound("schedule has no photo schedule", map[string]interface{}{"item_id": p.ItemID})
		}
	}

	photos, err := h.schedules.GetPhotoSchedule(ctx, photoID)
	if err != nil {
		return err
	}
	return h.replier.SendPhotos(req, photos, p.ItemID)
}
