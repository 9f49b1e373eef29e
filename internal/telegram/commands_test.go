package telegram

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/schedulebot/internal/apperror"
)

const (
	itemUUID  = "0b6f3a52-1a7e-4f55-9b43-3e0f3f1f8f10"
	photoUUID = "4c1d2e3f-0000-4000-8000-000000000001"
)

func TestCommand_Pattern(t *testing.T) {
	tests := []struct {
		cmd     Command
		want    string
		match   []string
		noMatch []string
	}{
		{
			cmd:     CommandShowSchedule,
			want:    `^show_schedule$`,
			match:   []string{"show_schedule"},
			noMatch: []string{"show_schedule?page=2", "xshow_schedule", "show_schedule_page"},
		},
		{
			cmd:     CommandSchedulePage,
			want:    `^schedule_page\?page=.*$`,
			match:   []string{"schedule_page?page=2", "schedule_page?page="},
			noMatch: []string{"schedule_page", "schedule_pageXpage=2"},
		},
		{
			cmd:     CommandShowPhotoSchedule,
			want:    `^show_photo_schedule\?id=.*&item_id=.*$`,
			match:   []string{"show_photo_schedule?id=1&item_id=2"},
			noMatch: []string{"show_photo_schedule?item_id=2"},
		},
		{
			cmd:     CommandShowItemPhotos,
			want:    `^show_photo_schedule\?item_id=.*$`,
			match:   []string{"show_photo_schedule?item_id=2"},
			noMatch: []string{"show_photo_schedule?id=1&item_id=2"},
		},
		{
			cmd:   CommandStart,
			want:  `^start$`,
			match: []string{"start"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.cmd), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.Pattern())
			re := regexp.MustCompile(tt.cmd.Pattern())
			for _, s := range tt.match {
				assert.True(t, re.MatchString(s), s)
			}
			for _, s := range tt.noMatch {
				assert.False(t, re.MatchString(s), s)
			}
		})
	}
}

func TestCommand_Name(t *testing.T) {
	assert.Equal(t, "start", CommandStart.Name())
	assert.Equal(t, "schedule_page", CommandSchedulePage.Name())
	assert.Equal(t, "show_photo_schedule", CommandShowItemPhotos.Name())
}

func TestCommand_FormatDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		cmd    Command
		params Params
		want   string
	}{
		{"page only", CommandSchedulePage, Params{Page: 3}, "schedule_page?page=3"},
		{"id only", CommandShowItem, Params{ID: itemUUID}, "show_item?id=" + itemUUID},
		{"id and item id", CommandShowPhotoSchedule, Params{ID: "42", ItemID: itemUUID}, "show_photo_schedule?id=42&item_id=" + itemUUID},
		{"escaped value", CommandShowItem, Params{ID: "a b&c"}, "show_item?id=a+b%26c"},
		{"no params", CommandShowSchedule, Params{}, "show_schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.cmd.Format(tt.params)
			assert.Equal(t, tt.want, data)
			assert.Regexp(t, tt.cmd.Pattern(), data)

			got, err := DecodeParams(data)
			require.NoError(t, err)
			assert.Equal(t, tt.params, got)
		})
	}
}

func TestCommand_FormatDropsEmptyValues(t *testing.T) {
	assert.Equal(t, "show_photo_schedule?item_id=x", CommandShowPhotoSchedule.Format(Params{ItemID: "x"}))
	assert.Equal(t, "schedule_page", CommandSchedulePage.Format(Params{}))
}

func TestDecodeParams(t *testing.T) {
	p, err := DecodeParams("show_item?id=abc&unknown=1")
	require.NoError(t, err)
	assert.Equal(t, Params{ID: "abc"}, p)

	_, err = DecodeParams("schedule_page?page=abc")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidRequest(err))

	_, err = DecodeParams("show_item?id=%zz")
	assert.True(t, apperror.IsInvalidRequest(err))
}

func TestFiltersFromCallback(t *testing.T) {
	f, err := FiltersFromCallback("show_schedule")
	require.NoError(t, err)
	assert.Equal(t, 1, f.Page)

	f, err = FiltersFromCallback("schedule_page?page=2")
	require.NoError(t, err)
	assert.Equal(t, 2, f.Page)

	_, err = FiltersFromCallback("schedule_page?page=-1")
	assert.True(t, apperror.IsInvalidRequest(err))
}

func TestPhotoScheduleData(t *testing.T) {
	short := photoScheduleData("42", "7")
	assert.Equal(t, "show_photo_schedule?id=42&item_id=7", short)

	long := photoScheduleData(photoUUID, itemUUID)
	assert.True(t, FitsCallbackData(long))
	assert.Equal(t, "show_photo_schedule?item_id="+itemUUID, long)
	assert.Regexp(t, CommandShowItemPhotos.Pattern(), long)
}
