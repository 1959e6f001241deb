package leaselock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeLocks emulates the app_locks statements without expiry.
type fakeLocks struct {
	mu    sync.Mutex
	owner map[string]string
}

type fakeRow struct {
	key string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.key
	return nil
}

func (f *fakeLocks) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, token := args[0].(string), args[1].(string)
	held, ok := f.owner[key]
	switch sql {
	case tryAcquireSQL:
		if ok && held != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		f.owner[key] = token
		return fakeRow{key: key}
	case renewSQL:
		if !ok || held != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{key: key}
	}
	return fakeRow{err: errors.New("unexpected query")}
}

func (f *fakeLocks) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sql != releaseSQL {
		return pgconn.CommandTag{}, errors.New("unexpected exec")
	}
	key, token := args[0].(string), args[1].(string)
	if f.owner[key] == token {
		delete(f.owner, key)
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.NewCommandTag("DELETE 0"), nil
}

func newFake() *fakeLocks {
	return &fakeLocks{owner: map[string]string{}}
}

func TestAcquire_BusyWithoutWait(t *testing.T) {
	c := NewWithConnection(newFake())
	ctx := context.Background()

	lease, err := c.Acquire(ctx, EntityKey("黑松"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.Acquire(ctx, EntityKey("黑松"), Options{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("unexpected release error: %v", err)
	}
	if lease.Context.Err() == nil {
		t.Fatal("expected lease context cancelled after release")
	}

	again, err := c.Acquire(ctx, EntityKey("黑松"), Options{})
	if err != nil {
		t.Fatalf("expected key free after release, got %v", err)
	}
	_ = again.Release(ctx)
}

func TestWithLeases_SerialisesOverlappingKeys(t *testing.T) {
	fake := newFake()
	c := NewWithConnection(fake)
	opts := CommitOptions()
	opts.WaitInterval = time.Millisecond
	opts.WaitJitter = time.Millisecond

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		overlap atomic.Bool
		runs    atomic.Int32
	)
	keySets := [][]string{
		{EntityKey("黑松"), EntityKey("松树")},
		{EntityKey("松树"), EntityKey("黑松")},
		{EntityKey("黑松")},
		{EntityKey("黑松"), EntityKey("黑松")},
	}
	for i := range 12 {
		wg.Add(1)
		go func(keys []string) {
			defer wg.Done()
			err := c.WithLeases(context.Background(), keys, opts, func(ctx context.Context) error {
				if inside.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				runs.Add(1)
				return nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(keySets[i%len(keySets)])
	}
	wg.Wait()

	// every key set contains 黑松
	if overlap.Load() {
		t.Fatal("critical sections overlapped")
	}
	if runs.Load() != 12 {
		t.Fatalf("expected 12 runs, got %d", runs.Load())
	}
	if len(fake.owner) != 0 {
		t.Fatalf("expected all locks released, got %v", fake.owner)
	}
}

func TestWithLeases_ReleasesOnError(t *testing.T) {
	fake := newFake()
	c := NewWithConnection(fake)
	boom := errors.New("boom")

	err := c.WithLeases(context.Background(), []string{"a", "b"}, Options{}, func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(fake.owner) != 0 {
		t.Fatalf("expected locks released, got %v", fake.owner)
	}
}

func TestWithLeases_PartialAcquireIsReleased(t *testing.T) {
	fake := newFake()
	c := NewWithConnection(fake)
	ctx := context.Background()

	held, err := c.Acquire(ctx, "b", Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release(ctx)

	err = c.WithLeases(ctx, []string{"b", "a"}, Options{}, func(context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if _, ok := fake.owner["a"]; ok {
		t.Fatal("expected lease on a released after failing on b")
	}
}

func TestLease_LostWhenStolen(t *testing.T) {
	fake := newFake()
	c := NewWithConnection(fake)
	ctx := context.Background()

	lease, err := c.Acquire(ctx, EntityKey("湿地松"), Options{TTL: time.Minute, RenewEvery: 5 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer lease.Release(ctx)

	fake.mu.Lock()
	fake.owner[EntityKey("湿地松")] = "someone-else"
	fake.mu.Unlock()

	select {
	case <-lease.Context.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected lease context cancelled after losing the key")
	}
	if cause := context.Cause(lease.Context); !errors.Is(cause, ErrLost) {
		t.Fatalf("expected ErrLost cause, got %v", cause)
	}
}

func TestOptions_Normalized(t *testing.T) {
	got := Options{}.normalized()
	if got.TTL != defaultTTL || got.RenewEvery != defaultTTL/2 || got.WaitInterval != defaultWaitInterval {
		t.Fatalf("unexpected defaults %+v", got)
	}

	got = Options{TTL: time.Second, RenewEvery: time.Hour, WaitJitter: -1}.normalized()
	if got.RenewEvery != time.Second || got.WaitJitter != 0 {
		t.Fatalf("unexpected clamping %+v", got)
	}
}
