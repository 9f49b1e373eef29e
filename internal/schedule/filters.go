package schedule

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Filters are the query parameters of a schedule listing.
type Filters struct {
	DateGTE *time.Time
	DateLTE *time.Time
	ForDate *time.Time
	Page    int `validate:"min=1"`
}

// DefaultFilters returns filters for the first page.
func DefaultFilters() *Filters {
	return &Filters{Page: 1}
}

// Validate checks the filters against their struct tags.
func (f *Filters) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid schedule filters: %w", err)
	}
	return nil
}

// Query encodes the filters as upstream query parameters. Unset bounds are
// omitted.
func (f *Filters) Query() url.Values {
	q := url.Values{}
	if f.DateGTE != nil {
		q.Set("date__gte", f.DateGTE.Format(time.RFC3339))
	}
	if f.DateLTE != nil {
		q.Set("date__lte", f.DateLTE.Format(time.RFC3339))
	}
	if f.ForDate != nil {
		q.Set("for_date", f.ForDate.Format(time.RFC3339))
	}
	q.Set("page", strconv.Itoa(f.Page))
	return q
}
