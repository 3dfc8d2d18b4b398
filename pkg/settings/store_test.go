package settings

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "picotune.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDefaultsForUnknownGuild(t *testing.T) {
	s := openTemp(t)
	g, err := s.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", g.GuildID)
	assert.True(t, g.NotifierEnabled)
	assert.Empty(t, g.StatusChannelID)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := openTemp(t)
	s.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	require.NoError(t, s.SetStatusChannel(ctx, "g1", "c42"))
	require.NoError(t, s.SetNotifierEnabled(ctx, "g1", false))

	g, err := s.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "c42", g.StatusChannelID)
	assert.False(t, g.NotifierEnabled)
	assert.Equal(t, time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC), g.UpdatedAt)

	require.NoError(t, s.SetNotifierEnabled(ctx, "g1", true))
	g, err = s.Get(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, g.NotifierEnabled)
	assert.Equal(t, "c42", g.StatusChannelID)
}

func TestFirstWriteKeepsOtherDefaults(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.SetStatusChannel(ctx, "g2", "c1"))
	g, err := s.Get(ctx, "g2")
	require.NoError(t, err)
	assert.True(t, g.NotifierEnabled)
}

func TestListAndHealth(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.Health(ctx))

	require.NoError(t, s.SetStatusChannel(ctx, "b", "c1"))
	require.NoError(t, s.SetStatusChannel(ctx, "a", "c2"))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].GuildID)
	assert.Equal(t, "b", all[1].GuildID)
}
