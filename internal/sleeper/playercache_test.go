package sleeper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const directory = `{"4046": {"player_id": "4046", "full_name": "Patrick Mahomes", "position": "QB", "team": "KC"}}`

type fakeFetcher struct {
	calls int
	data  []byte
	err   error
}

func (f *fakeFetcher) fetch(ctx context.Context) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func TestPlayerCacheFetchesOnce(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Now())
	filename := filepath.Join(t.TempDir(), "players.cache.json")
	fetcher := &fakeFetcher{data: []byte(directory)}

	cache := NewPlayerCache(filename, 24*time.Hour, mock, fetcher.fetch)
	players, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Patrick Mahomes", players["4046"].FullName)

	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)

	// The directory was written to disk
	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.JSONEq(t, directory, string(data))
}

func TestPlayerCacheReadsFreshDisk(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Now())
	filename := filepath.Join(t.TempDir(), "players.cache.json")
	require.NoError(t, os.WriteFile(filename, []byte(directory), 0o644))
	fetcher := &fakeFetcher{err: errors.New("should not be called")}

	cache := NewPlayerCache(filename, 24*time.Hour, mock, fetcher.fetch)
	players, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, players, 1)
	assert.Equal(t, 0, fetcher.calls)
}

func TestPlayerCacheExpires(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Now())
	filename := filepath.Join(t.TempDir(), "players.cache.json")
	fetcher := &fakeFetcher{data: []byte(directory)}

	cache := NewPlayerCache(filename, 24*time.Hour, mock, fetcher.fetch)
	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	mock.Add(23 * time.Hour)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)

	// Both memory and disk copies are older than a day now
	mock.Add(2 * time.Hour)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestPlayerCacheMalformedDisk(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Now())
	filename := filepath.Join(t.TempDir(), "players.cache.json")
	require.NoError(t, os.WriteFile(filename, []byte("{not json"), 0o644))
	fetcher := &fakeFetcher{data: []byte(directory)}

	cache := NewPlayerCache(filename, 24*time.Hour, mock, fetcher.fetch)
	players, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, players, 1)
	assert.Equal(t, 1, fetcher.calls)
}

func TestPlayerCacheFetchError(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Now())
	fetcher := &fakeFetcher{err: ErrUpstream}

	cache := NewPlayerCache("", 24*time.Hour, mock, fetcher.fetch)
	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestPlayerCacheServesStaleOnError(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Now())
	fetcher := &fakeFetcher{data: []byte(directory)}

	cache := NewPlayerCache("", 24*time.Hour, mock, fetcher.fetch)
	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	mock.Add(48 * time.Hour)
	fetcher.err = ErrUpstream
	players, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, players, 1)
	assert.Equal(t, 2, fetcher.calls)
}
