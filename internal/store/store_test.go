package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFeedbackRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveFeedback(ctx, 4, "nice scanner", "url-scanner")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = s.SaveFeedback(ctx, 2, "", "dashboard")
	require.NoError(t, err)

	records, err := s.RecentFeedback(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "dashboard", records[0].Page, "most recent first")
	assert.Equal(t, 4, records[1].Rating)
}

func TestRecentFeedbackLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.SaveFeedback(ctx, i%5+1, "msg", "page")
		require.NoError(t, err)
	}
	records, err := s.RecentFeedback(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestPreferenceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Preference(ctx, "server_url")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetPreference(ctx, "server_url", "http://localhost:3001"))
	got, err := s.Preference(ctx, "server_url")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3001", got)

	require.NoError(t, s.SetPreference(ctx, "server_url", "http://example.com"))
	got, err = s.Preference(ctx, "server_url")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", got)
}
