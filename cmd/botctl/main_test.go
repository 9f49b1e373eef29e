package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/schedulebot/internal/config"
	"github.com/user/schedulebot/internal/storage"
)

func newBotStore(t *testing.T) *storage.BotStore {
	t.Helper()
	db, err := storage.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewBotStore(db)
}

func TestRun_CreateListRotate(t *testing.T) {
	ctx := context.Background()
	bots := newBotStore(t)
	cfg := &config.Config{}

	var out bytes.Buffer
	err := run(ctx, bots, cfg, []string{"create", "-name", "schedule", "-token", "1234567890:ABCDEFVWXYZ", "-webhook-url", "https://bot.example.com"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Created bot schedule")
	assert.Contains(t, out.String(), "Webhook URL: https://bot.example.com/webhook/telegram/")

	list, err := bots.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	oldSecret := list[0].SecretKey

	out.Reset()
	require.NoError(t, run(ctx, bots, cfg, []string{"list"}, &out))
	assert.Contains(t, out.String(), "12345...VWXYZ")
	assert.NotContains(t, out.String(), "1234567890:ABCDEFVWXYZ")

	out.Reset()
	require.NoError(t, run(ctx, bots, cfg, []string{"rotate-secret", "-id", list[0].ID.String()}, &out))
	assert.Contains(t, out.String(), "Secret rotated for schedule")

	rotated, err := bots.Get(ctx, list[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldSecret, rotated.SecretKey)
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	bots := newBotStore(t)
	cfg := &config.Config{}

	err := run(ctx, bots, cfg, []string{"frobnicate"}, io.Discard)
	assert.True(t, errors.Is(err, errShowUsage))

	assert.Error(t, run(ctx, bots, cfg, []string{"create", "-name", "x"}, io.Discard))
	assert.Error(t, run(ctx, bots, cfg, []string{"rotate-secret"}, io.Discard))
	assert.Error(t, run(ctx, bots, cfg, []string{"rotate-secret", "-id", "nope"}, io.Discard))
	assert.ErrorIs(t, run(ctx, bots, cfg, []string{"set-webhook", "-id", "7f0c5c7e-4a8e-4c1f-9d55-3f1a0c2b9e11"}, io.Discard), storage.ErrNotFound)
}

func TestRun_ListEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), newBotStore(t), &config.Config{}, []string{"list"}, &out))
	assert.Equal(t, "No bots configured\n", out.String())
}
