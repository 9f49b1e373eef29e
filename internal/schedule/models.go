// Package schedule provides a cached client for the upstream schedule API.
package schedule

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04"
)

// Date is a calendar date encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// FormatTimestamp renders a timestamp the way schedule screens show it.
func FormatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// Reference points at another upstream resource.
type Reference struct {
	URL  string `json:"url"`
	UUID string `json:"uuid"`
}

// Schedule is a schedule for one day.
type Schedule struct {
	URL            string      `json:"url"`
	UUID           string      `json:"uuid"`
	ForDate        Date        `json:"for_date"`
	GroupSchedules []Reference `json:"group_schedules"`
	PhotoSchedule  *string     `json:"photo_schedule"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// HasGroupSchedules reports whether any group schedule is attached.
func (s *Schedule) HasGroupSchedules() bool {
	return len(s.GroupSchedules) > 0
}

// HasPhotoSchedule reports whether a photo schedule URL is attached.
func (s *Schedule) HasPhotoSchedule() bool {
	return s.PhotoSchedule != nil && *s.PhotoSchedule != ""
}

// PhotoScheduleID returns the last path segment of the photo schedule URL.
func (s *Schedule) PhotoScheduleID() (string, bool) {
	if !s.HasPhotoSchedule() {
		return "", false
	}
	u, err := url.Parse(*s.PhotoSchedule)
	if err != nil {
		return "", false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" {
		return "", false
	}
	return id, true
}

// Response is one page of schedules.
type Response struct {
	Count    int        `json:"count"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Results  []Schedule `json:"results"`
}

var pageParam = regexp.MustCompile(`page=(\d+)`)

func pageNumber(link string) (int, bool) {
	m := pageParam.FindStringSubmatch(link)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextPageNumber returns the page number of the next link, if any.
func (r *Response) NextPageNumber() (int, bool) {
	if r.Next == nil || *r.Next == "" {
		return 0, false
	}
	return pageNumber(*r.Next)
}

// PreviousPageNumber returns the page number of the previous link. The first
// page is linked without a page parameter, so a bare link means page 1.
func (r *Response) PreviousPageNumber() (int, bool) {
	if r.Previous == nil || *r.Previous == "" {
		return 0, false
	}
	if n, ok := pageNumber(*r.Previous); ok {
		return n, true
	}
	return 1, true
}

// PhotoItem is a single photo of a photo schedule.
type PhotoItem struct {
	UUID string `json:"uuid,omitempty"`
	File string `json:"file"`
}

// PhotoSchedule is a named collection of photos.
type PhotoSchedule struct {
	URL       string      `json:"url,omitempty"`
	UUID      string      `json:"uuid"`
	Name      *string     `json:"name"`
	Photos    []PhotoItem `json:"photos"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// DisplayName returns the schedule name or a placeholder.
func (p *PhotoSchedule) DisplayName() string {
	if p.Name == nil || strings.TrimSpace(*p.Name) == "" {
		return "Без назви"
	}
	return *p.Name
}
