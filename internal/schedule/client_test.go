package schedule

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/schedulebot/internal/config"
)

const listBody = `{
	"count": 12,
	"next": "http://upstream/api/schedule/schedule/?page=3",
	"previous": "http://upstream/api/schedule/schedule/",
	"results": [
		{
			"url": "http://upstream/api/schedule/schedule/0b6f3a52-1a7e-4f55-9b43-3e0f3f1f8f10/",
			"uuid": "0b6f3a52-1a7e-4f55-9b43-3e0f3f1f8f10",
			"for_date": "2024-09-02",
			"group_schedules": [{"url": "http://upstream/api/schedule/group/1/", "uuid": "6a1c1e8e-6a4c-4b8b-8c35-2b0f3d5d5c11"}],
			"photo_schedule": "http://upstream/api/schedule/photo/4c1d2e3f-0000-4000-8000-000000000001/",
			"created_at": "2024-09-01T10:00:00+03:00",
			"updated_at": "2024-09-01T12:30:00+03:00"
		}
	]
}`

type upstream struct {
	server *httptest.Server
	hits   atomic.Int32
	status int
	body   string
	last   atomic.Pointer[http.Request]
}

func newUpstream(t *testing.T, status int, body string) *upstream {
	t.Helper()
	u := &upstream{status: status, body: body}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		u.last.Store(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(u.status)
		_, _ = w.Write([]byte(u.body))
	}))
	t.Cleanup(u.server.Close)
	return u
}

func newTestClient(baseURL string, cache Cache, ttl time.Duration) *Client {
	return NewClient(config.ScheduleConfig{
		BaseURL:  baseURL,
		CacheTTL: ttl,
		Timeout:  5 * time.Second,
		Burst:    1,
	}, cache, "test")
}

func TestListSchedules_CachesIdenticalFilters(t *testing.T) {
	up := newUpstream(t, http.StatusOK, listBody)
	cache := NewMemoryCache(time.Minute)
	client := newTestClient(up.server.URL, cache, time.Minute)
	ctx := context.Background()

	first, err := client.ListSchedules(ctx, &Filters{Page: 2})
	require.NoError(t, err)
	second, err := client.ListSchedules(ctx, &Filters{Page: 2})
	require.NoError(t, err)

	assert.Equal(t, int32(1), up.hits.Load())
	assert.Equal(t, first, second)

	cached, ok := cache.Get(CacheKey(opListSchedules, "/schedule/schedule/", url.Values{"page": {"2"}}))
	require.True(t, ok)
	assert.Equal(t, listBody, string(cached))

	_, err = client.ListSchedules(ctx, &Filters{Page: 3})
	require.NoError(t, err)
	assert.Equal(t, int32(2), up.hits.Load())
}

func TestListSchedules_RefetchesAfterTTL(t *testing.T) {
	up := newUpstream(t, http.StatusOK, listBody)
	client := newTestClient(up.server.URL, NewMemoryCache(time.Minute), 50*time.Millisecond)
	ctx := context.Background()

	_, err := client.ListSchedules(ctx, nil)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	_, err = client.ListSchedules(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, int32(2), up.hits.Load())
}

func TestListSchedules_Request(t *testing.T) {
	up := newUpstream(t, http.StatusOK, listBody)
	client := newTestClient(up.server.URL+"/api/schedule/", NewMemoryCache(time.Minute), time.Minute)

	forDate := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	resp, err := client.ListSchedules(context.Background(), &Filters{Page: 1, ForDate: &forDate})
	require.NoError(t, err)

	require.NotNil(t, up.last.Load())
	assert.Equal(t, "/api/schedule/schedule/schedule/", up.last.Load().URL.Path)
	assert.Equal(t, "1", up.last.Load().URL.Query().Get("page"))
	assert.Equal(t, "2024-09-02T00:00:00Z", up.last.Load().URL.Query().Get("for_date"))
	assert.False(t, up.last.Load().URL.Query().Has("date__gte"))
	assert.Equal(t, "schedulebot/test", up.last.Load().Header.Get("User-Agent"))

	assert.Equal(t, 12, resp.Count)
	require.Len(t, resp.Results, 1)
	item := resp.Results[0]
	assert.Equal(t, "2024-09-02", item.ForDate.String())
	assert.True(t, item.HasGroupSchedules())
	assert.Equal(t, "2024-09-01 12:30", FormatTimestamp(item.UpdatedAt))

	photoID, ok := item.PhotoScheduleID()
	assert.True(t, ok)
	assert.Equal(t, "4c1d2e3f-0000-4000-8000-000000000001", photoID)
}

func TestListSchedules_InvalidPage(t *testing.T) {
	up := newUpstream(t, http.StatusOK, listBody)
	client := newTestClient(up.server.URL, NewMemoryCache(time.Minute), time.Minute)

	_, err := client.ListSchedules(context.Background(), &Filters{Page: 0})
	assert.Error(t, err)
	assert.Equal(t, int32(0), up.hits.Load())
}

func TestFetch_UpstreamError(t *testing.T) {
	up := newUpstream(t, http.StatusInternalServerError, `{"detail":"boom"}`)
	cache := NewMemoryCache(time.Minute)
	client := newTestClient(up.server.URL, cache, time.Minute)

	_, err := client.GetSchedule(context.Background(), "abc")
	require.Error(t, err)

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusInternalServerError, upErr.StatusCode)
	assert.Equal(t, `{"detail":"boom"}`, upErr.Body)
	assert.Equal(t, up.server.URL+"/schedule/schedule/abc/", upErr.URL)

	_, ok := cache.Get(CacheKey(opGetSchedule, "/schedule/schedule/abc/", nil))
	assert.False(t, ok)
}

func TestGetPhotoSchedule(t *testing.T) {
	body := `{
		"uuid": "4c1d2e3f-0000-4000-8000-000000000001",
		"name": null,
		"photos": [{"file": "http://upstream/media/1.jpg"}, {"file": "http://upstream/media/2.jpg"}],
		"created_at": "2024-09-01T10:00:00Z",
		"updated_at": "2024-09-01T11:15:00Z"
	}`
	up := newUpstream(t, http.StatusOK, body)
	client := newTestClient(up.server.URL, NewMemoryCache(time.Minute), time.Minute)

	photo, err := client.GetPhotoSchedule(context.Background(), "4c1d2e3f-0000-4000-8000-000000000001")
	require.NoError(t, err)

	assert.Equal(t, "/schedule/photo/4c1d2e3f-0000-4000-8000-000000000001/", up.last.Load().URL.Path)
	assert.Len(t, photo.Photos, 2)
	assert.Equal(t, "Без назви", photo.DisplayName())
}

func TestNewClient_BearerToken(t *testing.T) {
	up := newUpstream(t, http.StatusOK, listBody)
	client := NewClient(config.ScheduleConfig{
		BaseURL:   up.server.URL,
		Token:     "upstream-token",
		CacheTTL:  time.Minute,
		Timeout:   5 * time.Second,
		RateLimit: 100,
		Burst:     1,
	}, NewMemoryCache(time.Minute), "test")

	_, err := client.ListSchedules(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer upstream-token", up.last.Load().Header.Get("Authorization"))
}
