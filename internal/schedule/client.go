package schedule

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/user/schedulebot/internal/config"
	"github.com/user/schedulebot/internal/metrics"
	"github.com/user/schedulebot/pkg/logger"
)

const (
	opListSchedules    = "list_schedules"
	opGetSchedule      = "get_schedule"
	opGetPhotoSchedule = "get_photo_schedule"

	maxErrorBody = 4096
)

// UpstreamError is returned when the schedule API answers with a non-200 status.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("schedule %s failed: status %d from %s", e.Op, e.StatusCode, e.URL)
}

// Client fetches schedule resources and caches decoded responses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
	ttl        time.Duration
	limiter    *rate.Limiter
	userAgent  string
	log        zerolog.Logger
}

// NewClient creates a new schedule API client.
// If cfg.Token is empty, requests are sent without authorization.
func NewClient(cfg config.ScheduleConfig, cache Cache, version string) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: cfg.Token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = cfg.Timeout
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		cache:      cache,
		ttl:        cfg.CacheTTL,
		limiter:    limiter,
		userAgent:  "schedulebot/" + version,
		log:        logger.With("schedule"),
	}
}

// ListSchedules returns one page of schedules. Nil filters mean the first page.
func (c *Client) ListSchedules(ctx context.Context, filters *Filters) (*Response, error) {
	if filters == nil {
		filters = DefaultFilters()
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	var resp Response
	if err := c.fetch(ctx, opListSchedules, "/schedule/schedule/", filters.Query(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSchedule returns a single schedule.
func (c *Client) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	var s Schedule
	path := fmt.Sprintf("/schedule/schedule/%s/", url.PathEscape(id))
	if err := c.fetch(ctx, opGetSchedule, path, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetPhotoSchedule returns a photo schedule.
func (c *Client) GetPhotoSchedule(ctx context.Context, id string) (*PhotoSchedule, error) {
	var p PhotoSchedule
	path := fmt.Sprintf("/schedule/photo/%s/", url.PathEscape(id))
	if err := c.fetch(ctx, opGetPhotoSchedule, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CacheKey returns the cache key for an operation on a path with query.
func CacheKey(op, path string, query url.Values) string {
	sum := sha256.Sum256([]byte(path + "?" + query.Encode()))
	return "schedule:" + op + ":" + hex.EncodeToString(sum[:])
}

func (c *Client) fetch(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	key := CacheKey(op, path, query)

	if body, ok := c.cache.Get(key); ok {
		metrics.RecordCacheLookup(op, true)
		return json.Unmarshal(body, out)
	}
	metrics.RecordCacheLookup(op, false)

	body, err := c.get(ctx, op, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}

	c.cache.Set(key, body, c.ttl)
	return nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream(op, 0, time.Since(start))
		return nil, fmt.Errorf("failed to call schedule API: %w", err)
	}
	defer resp.Body.Close()

	metrics.RecordUpstream(op, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn().
			Str("operation", op).
			Int("status", resp.StatusCode).
			Str("url", target).
			Str("body", string(body)).
			Msg("Schedule API returned an error")
		return nil, &UpstreamError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			URL:        target,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}

	c.log.Debug().Str("operation", op).Str("url", target).Msg("Fetched schedule data")
	return body, nil
}
