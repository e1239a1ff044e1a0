package sleeper

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"sleeperbot/internal/common"
	"sleeperbot/internal/metrics"
)

// PlayerCache keeps the player directory in memory and on disk. Both copies
// are considered fresh for ttl; the disk copy is aged by its modification
// time. Two concurrent misses may both fetch upstream, which only means the
// same data gets written twice.
type PlayerCache struct {
	mu        sync.Mutex
	filename  string
	ttl       time.Duration
	clock     clock.Clock
	players   Players
	freshness common.Stopwatch
	fetch     func(ctx context.Context) ([]byte, error)
}

func NewPlayerCache(filename string, ttl time.Duration, clk clock.Clock, fetch func(ctx context.Context) ([]byte, error)) *PlayerCache {
	if clk == nil {
		clk = clock.New()
	}
	return &PlayerCache{
		filename:  filename,
		ttl:       ttl,
		clock:     clk,
		freshness: common.NewStopwatch(ttl, clk),
		fetch:     fetch,
	}
}

func (cache *PlayerCache) Get(ctx context.Context) (Players, error) {

	// Memory
	cache.mu.Lock()
	if cache.players != nil && !cache.freshness.Stopped() {
		players := cache.players
		cache.mu.Unlock()
		metrics.PlayerCacheLoadsTotal.WithLabelValues("memory").Inc()
		return players, nil
	}
	stale := cache.players
	cache.mu.Unlock()

	// Disk
	if players, modTime, ok := cache.readDisk(); ok {
		cache.store(players, modTime)
		metrics.PlayerCacheLoadsTotal.WithLabelValues("disk").Inc()
		return players, nil
	}

	// Upstream
	data, err := cache.fetch(ctx)
	if err != nil {
		if stale != nil {
			log.Warn().Err(err).Msg("Could not refresh player directory, serving stale copy")
			return stale, nil
		}
		return nil, err
	}
	players, err := UnmarshalPlayers(data)
	if err != nil {
		return nil, fmt.Errorf("%w: player directory: %w", ErrUpstream, err)
	}
	log.Info().Msg(fmt.Sprintf("Fetched %d players from upstream", len(players)))
	metrics.PlayerCacheLoadsTotal.WithLabelValues("upstream").Inc()

	cache.writeDisk(data)
	cache.store(players, cache.clock.Now())
	return players, nil
}

func (cache *PlayerCache) store(players Players, loadedAt time.Time) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.players = players
	cache.freshness.StartAt(loadedAt)
}

func (cache *PlayerCache) readDisk() (Players, time.Time, bool) {

	if cache.filename == "" {
		return nil, time.Time{}, false
	}
	info, err := os.Stat(cache.filename)
	if err != nil {
		return nil, time.Time{}, false
	}

	// Check the age of the file before reading several megabytes
	age := common.NewStopwatch(cache.ttl, cache.clock)
	age.StartAt(info.ModTime())
	if age.Stopped() {
		log.Debug().Msg(fmt.Sprintf("Player cache %s is older than %s", cache.filename, cache.ttl))
		return nil, time.Time{}, false
	}

	data, err := os.ReadFile(cache.filename)
	if err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not read player cache %s", cache.filename))
		return nil, time.Time{}, false
	}
	players, err := UnmarshalPlayers(data)
	if err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Player cache %s is malformed, refetching", cache.filename))
		return nil, time.Time{}, false
	}
	return players, info.ModTime(), true
}

// Best effort, a failure only means the next process start fetches again
func (cache *PlayerCache) writeDisk(data []byte) {
	if cache.filename == "" {
		return
	}
	if err := common.WriteFileAtomic(cache.filename, data, 0o644); err != nil {
		log.Warn().Err(err).Msg("Could not write player cache")
	}
}
