package airport

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeSource serves body, or err when set, and counts calls.
type fakeSource struct {
	mu    sync.Mutex
	body  string
	err   error
	calls atomic.Int32
}

func (f *fakeSource) Fetch(ctx context.Context) ([]byte, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSource) serve(body string) {
	f.mu.Lock()
	f.body, f.err = body, nil
	f.mu.Unlock()
}

func TestStoreStateTransitions(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{body: sampleDataset}
	store := NewStore(src, time.Hour, testLogger, WithClock(clock.Now))

	if got := store.State(); got != StateEmpty {
		t.Fatalf("initial state = %v, want empty", got)
	}

	// Empty -> Fresh.
	ds, err := store.Dataset(context.Background())
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	if len(ds.Records) != 4 || ds.Source != SourceRemote {
		t.Fatalf("unexpected dataset: %d records from %q", len(ds.Records), ds.Source)
	}
	if got := store.State(); got != StateFresh {
		t.Fatalf("state after fetch = %v, want fresh", got)
	}

	// Fresh: no fetch.
	clock.Advance(59 * time.Minute)
	if _, err := store.Dataset(context.Background()); err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	if got := src.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d while fresh, want 1", got)
	}

	// Fresh -> Stale by elapsed time alone.
	clock.Advance(time.Minute)
	if got := store.State(); got != StateStale {
		t.Fatalf("state after freshness window = %v, want stale", got)
	}

	// Stale -> Stale on failed refresh, data unchanged.
	src.fail(errors.New("connection refused"))
	got, err := store.Dataset(context.Background())
	if err != nil {
		t.Fatalf("Dataset with stale cache: %v", err)
	}
	if got != ds {
		t.Error("failed refresh replaced the cached dataset")
	}
	if got := store.State(); got != StateStale {
		t.Fatalf("state after failed refresh = %v, want stale", got)
	}
	if got := src.calls.Load(); got != 2 {
		t.Fatalf("fetch calls = %d, want 2", got)
	}

	// Stale -> Fresh on successful refresh.
	src.serve(`{"EGKK": {"icao": "EGKK", "name": "Gatwick", "lat": 51.1481, "lon": -0.1903}}`)
	fresh, err := store.Dataset(context.Background())
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	if fresh == ds || len(fresh.Records) != 1 {
		t.Fatal("successful refresh did not replace the dataset wholesale")
	}
	if !fresh.FetchedAt.Equal(clock.Now()) {
		t.Errorf("FetchedAt = %v, want %v", fresh.FetchedAt, clock.Now())
	}
	if got := store.State(); got != StateFresh {
		t.Fatalf("state after refresh = %v, want fresh", got)
	}
}

func TestStoreRefreshFailsWithoutCache(t *testing.T) {
	src := &fakeSource{err: errors.New("dial tcp: no route to host")}
	store := NewStore(src, time.Hour, testLogger)

	_, err := store.Refresh(context.Background())
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	if got := err.Error(); !strings.Contains(got, "no route to host") {
		t.Errorf("error %q does not carry the underlying message", got)
	}
	if store.Get() != nil {
		t.Error("failed refresh populated the cache")
	}
	if got := store.State(); got != StateEmpty {
		t.Errorf("state = %v, want empty", got)
	}
}

func TestStoreRefreshRejectsUnparseableBody(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{body: sampleDataset}
	store := NewStore(src, time.Hour, testLogger, WithClock(clock.Now))

	first, err := store.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	src.serve(`<html>rate limited</html>`)
	got, err := store.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh with cached copy: %v", err)
	}
	if got != first {
		t.Error("unparseable body replaced the cached dataset")
	}
}

func TestStoreConcurrentRefreshSharesFetch(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	src := SourceFunc(func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte(sampleDataset), nil
	})
	store := NewStore(src, time.Hour, testLogger)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*Dataset, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds, err := store.Dataset(context.Background())
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
			}
			results[i] = ds
		}(i)
	}

	// Let the callers pile up on the in-flight fetch before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got < 1 || got > callers {
		t.Fatalf("fetch calls = %d", got)
	}
	for i := 0; i < callers; i++ {
		if results[i] == nil {
			t.Fatalf("caller %d got nil dataset", i)
		}
	}
}

func TestStoreRefreshIgnoresCallerCancel(t *testing.T) {
	src := SourceFunc(func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := ctx.Deadline(); !ok {
			t.Error("fetch context has no deadline")
		}
		return []byte(sampleDataset), nil
	})
	store := NewStore(src, time.Hour, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Refresh(ctx); err != nil {
		t.Fatalf("Refresh with canceled caller context: %v", err)
	}
}

func TestStoreSnapshotRoundTrip(t *testing.T) {
	clock := newFakeClock()
	snaps := NewDiskSnapshots(t.TempDir(), 2)

	src := &fakeSource{body: sampleDataset}
	store := NewStore(src, time.Hour, testLogger, WithClock(clock.Now), WithSnapshots(snaps))
	if _, err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// A new process with an unreachable source warms from the snapshot.
	clock.Advance(2 * time.Hour)
	down := &fakeSource{err: errors.New("offline")}
	restarted := NewStore(down, time.Hour, testLogger, WithClock(clock.Now), WithSnapshots(snaps))
	if err := restarted.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	ds := restarted.Get()
	if ds == nil || ds.Source != SourceSnapshot || len(ds.Records) != 4 {
		t.Fatalf("unexpected seeded dataset: %+v", ds)
	}
	if got := restarted.State(); got != StateStale {
		t.Errorf("seeded state = %v, want stale (snapshot keeps its timestamp)", got)
	}

	got, err := restarted.Dataset(context.Background())
	if err != nil {
		t.Fatalf("Dataset with snapshot and failing source: %v", err)
	}
	if got != ds {
		t.Error("expected the snapshot dataset to be served")
	}
}

func TestStoreLoadSnapshotWithoutStore(t *testing.T) {
	store := NewStore(&fakeSource{}, time.Hour, testLogger)
	if err := store.LoadSnapshot(context.Background()); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{StateEmpty: "empty", StateFresh: "fresh", StateStale: "stale", State(9): "State(9)"}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
