package airport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/skyline-va/crewmap/internal/metrics"
)

// DefaultFreshness is how long a fetched dataset is served without refetching.
const DefaultFreshness = 24 * time.Hour

// State describes the cache slot.
type State int

const (
	StateEmpty State = iota
	StateFresh
	StateStale
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Store is a read-through cache of the remote dataset. The slot is an
// atomic pointer and is replaced wholesale; concurrent refreshes within
// one process share a single fetch.
type Store struct {
	source    Source
	freshness time.Duration
	snapshots SnapshotStore
	now       func() time.Time
	logger    *slog.Logger

	dataset atomic.Pointer[Dataset]
	group   singleflight.Group
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now as the Store's clock.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithSnapshots persists every successful fetch to ss.
func WithSnapshots(ss SnapshotStore) StoreOption {
	return func(s *Store) { s.snapshots = ss }
}

// NewStore creates an empty Store backed by source. A non-positive
// freshness selects DefaultFreshness.
func NewStore(source Source, freshness time.Duration, logger *slog.Logger, opts ...StoreOption) *Store {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	s := &Store{
		source:    source,
		freshness: freshness,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current dataset, or nil if none has been loaded.
func (s *Store) Get() *Dataset {
	return s.dataset.Load()
}

// Set atomically replaces the current dataset.
func (s *Store) Set(ds *Dataset) {
	s.dataset.Store(ds)
	metrics.SetDatasetRecords(len(ds.Records))
}

// Age returns the age of the current dataset and false if none is loaded.
func (s *Store) Age() (time.Duration, bool) {
	ds := s.dataset.Load()
	if ds == nil {
		return 0, false
	}
	return s.now().Sub(ds.FetchedAt), true
}

// State reports whether the slot is empty, fresh or stale.
func (s *Store) State() State {
	age, ok := s.Age()
	switch {
	case !ok:
		return StateEmpty
	case age < s.freshness:
		return StateFresh
	default:
		return StateStale
	}
}

// Dataset returns the cached dataset while it is fresh and refreshes it
// otherwise.
func (s *Store) Dataset(ctx context.Context) (*Dataset, error) {
	if s.State() == StateFresh {
		return s.Get(), nil
	}
	return s.Refresh(ctx)
}

// Refresh fetches the remote dataset and replaces the cache. When the
// fetch fails and a previous dataset exists, that dataset is returned
// unchanged; with nothing cached the failure is an ErrFetchFailed.
func (s *Store) Refresh(ctx context.Context) (*Dataset, error) {
	v, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dataset), nil
}

func (s *Store) refresh(ctx context.Context) (*Dataset, error) {
	prev := s.Get()

	// Callers sharing this refresh must not be failed by one caller
	// going away; the fetch is bounded by FetchTimeout instead.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FetchTimeout)
	defer cancel()

	start := time.Now()
	data, err := s.source.Fetch(fetchCtx)
	var records map[string]json.RawMessage
	if err == nil {
		records, err = ParseDataset(data)
	}
	metrics.ObserveDatasetFetch(err == nil, time.Since(start))

	if err != nil {
		if prev != nil {
			s.logger.Warn("airport dataset refresh failed, serving cached copy",
				"component", "airport",
				"error", err,
				"fetched_at", prev.FetchedAt.Format(time.RFC3339),
				"records", len(prev.Records),
			)
			metrics.IncStaleServed()
			return prev, nil
		}
		return nil, &LookupError{Op: "refresh", Kind: ErrFetchFailed, Err: err}
	}

	ds := &Dataset{
		Source:    SourceRemote,
		FetchedAt: s.now(),
		Records:   records,
	}
	s.Set(ds)
	metrics.SetDatasetAge(0)
	s.logger.Info("airport dataset refreshed",
		"component", "airport",
		"records", len(records),
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if s.snapshots != nil {
		if err := s.snapshots.Save(fetchCtx, data, ds.FetchedAt); err != nil {
			s.logger.Warn("failed to save airport dataset snapshot", "component", "airport", "error", err)
		}
	}

	return ds, nil
}

// LoadSnapshot seeds the Store from the newest snapshot, keeping the
// snapshot's original timestamp so freshness is judged correctly. A
// snapshot older than the current dataset is ignored.
func (s *Store) LoadSnapshot(ctx context.Context) error {
	if s.snapshots == nil {
		return ErrNoSnapshot
	}
	data, ts, err := s.snapshots.LoadLatest(ctx)
	if err != nil {
		return err
	}
	records, err := ParseDataset(data)
	if err != nil {
		return fmt.Errorf("parsing snapshot: %w", err)
	}

	if cur := s.Get(); cur != nil && !ts.After(cur.FetchedAt) {
		return nil
	}
	s.Set(&Dataset{
		Source:    SourceSnapshot,
		FetchedAt: ts,
		Records:   records,
	})
	s.logger.Info("loaded airport dataset snapshot",
		"component", "airport",
		"records", len(records),
		"fetched_at", ts.Format(time.RFC3339),
	)
	return nil
}
