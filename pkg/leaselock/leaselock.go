// Package leaselock implements expiring named locks in the Postgres
// app_locks table. Holders renew their lease in the background; a crashed
// holder's lock frees itself once the lease expires.
package leaselock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/pinewilt/kgcurate/backend/internal/util"
)

var (
	ErrBusy = errors.New("lease lock busy")
	ErrLost = errors.New("lease lock lost")
)

const (
	defaultTTL          = 5 * time.Minute
	defaultWaitInterval = 250 * time.Millisecond
	renewAttempts       = 3
	renewTimeout        = 15 * time.Second
	renewBackoff        = 200 * time.Millisecond
)

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client acquires leases through a pool or single connection.
type Client struct {
	db dbConn
}

// Options tune a lease. Zero values mean a 5 minute TTL renewed at half of
// it, failing fast with ErrBusy when the key is held.
type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration

	TokenPrefix string
}

func (o Options) normalized() Options {
	if o.TTL < time.Millisecond {
		o.TTL = defaultTTL
	}
	if o.RenewEvery <= 0 || o.RenewEvery >= o.TTL {
		o.RenewEvery = max(o.TTL/2, time.Second)
	}
	if o.WaitInterval <= 0 {
		o.WaitInterval = defaultWaitInterval
	}
	o.WaitJitter = max(o.WaitJitter, 0)
	return o
}

// Lease is a held lock. Context is cancelled when the lease is released or
// could not be renewed.
type Lease struct {
	Key   string
	Token string

	Context context.Context

	client *Client
	ttlMs  int64
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopped  chan struct{}
}

func New(pool *pgxpool.Pool) *Client {
	return &Client{db: pool}
}

// NewWithConnection builds a Client on any pgx-compatible connection.
func NewWithConnection(conn dbConn) *Client {
	return &Client{db: conn}
}

// EntityKey is the lock key reserving an entity name.
func EntityKey(name string) string {
	return "entity:" + name
}

// CommitOptions suit short critical sections around a single insert: other
// committers wait instead of failing.
func CommitOptions() Options {
	return Options{
		TTL:          30 * time.Second,
		Wait:         true,
		WaitInterval: 50 * time.Millisecond,
		WaitJitter:   50 * time.Millisecond,
		TokenPrefix:  "commit-",
	}
}

// WithLease runs fn while holding key.
func (c *Client) WithLease(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	return c.WithLeases(ctx, []string{key}, opts, fn)
}

// WithLeases runs fn while holding every key. Keys are acquired in sorted
// order so overlapping callers cannot deadlock; on failure the leases taken
// so far are released.
func (c *Client) WithLeases(ctx context.Context, keys []string, opts Options, fn func(ctx context.Context) error) error {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	if len(sorted) == 0 {
		return errors.New("lease lock keys are empty")
	}

	held := make([]*Lease, 0, len(sorted))
	defer func() {
		for _, l := range slices.Backward(held) {
			_ = l.Release(context.WithoutCancel(ctx))
		}
	}()

	lctx := ctx
	for _, key := range sorted {
		lease, err := c.Acquire(lctx, key, opts)
		if err != nil {
			if len(sorted) == 1 {
				return err
			}
			return fmt.Errorf("acquire %s: %w", key, err)
		}
		held = append(held, lease)
		lctx = lease.Context
	}

	return fn(lctx)
}

// Acquire takes key, polling for it when opts.Wait is set.
func (c *Client) Acquire(ctx context.Context, key string, opts Options) (*Lease, error) {
	if key == "" {
		return nil, errors.New("lease lock key is empty")
	}
	opts = opts.normalized()

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	token := opts.TokenPrefix + id
	ttlMs := opts.TTL.Milliseconds()

	for {
		ok, err := c.try(ctx, tryAcquireSQL, key, token, ttlMs)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		if err := util.Sleep(ctx, opts.WaitInterval, opts.WaitJitter); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &Lease{
		Key:     key,
		Token:   token,
		Context: leaseCtx,
		client:  c,
		ttlMs:   ttlMs,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go l.keepAlive(opts.RenewEvery)

	return l, nil
}

// try runs an acquire or renew statement. A missing row means the key is
// held by someone else.
func (c *Client) try(ctx context.Context, sql, key, token string, ttlMs int64) (bool, error) {
	var got string
	err := c.db.QueryRow(ctx, sql, key, token, ttlMs).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return got != "", nil
}

// Release stops renewal and frees the key if this lease still holds it.
func (l *Lease) Release(ctx context.Context) error {
	l.stopOnce.Do(func() {
		close(l.stopped)
		l.cancel(context.Canceled)
	})

	_, err := l.client.db.Exec(ctx, releaseSQL, l.Key, l.Token)
	return err
}

func (l *Lease) keepAlive(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-l.stopped:
			return
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renew(); err != nil {
				l.cancel(err)
				return
			}
		}
	}
}

func (l *Lease) renew() error {
	return util.RetryErrWithContext(l.Context, renewAttempts, renewBackoff, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, renewTimeout)
		defer cancel()

		ok, err := l.client.try(ctx, renewSQL, l.Key, l.Token, l.ttlMs)
		if err != nil {
			return err
		}
		if !ok {
			return util.Permanent(ErrLost)
		}
		return nil
	})
}

const tryAcquireSQL = `
INSERT INTO app_locks (lock_key, locked_by, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lock_key) DO UPDATE
SET locked_by  = EXCLUDED.locked_by,
    expires_at = EXCLUDED.expires_at
WHERE app_locks.expires_at < now()
   OR app_locks.locked_by = EXCLUDED.locked_by
RETURNING lock_key;
`

const renewSQL = `
UPDATE app_locks
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lock_key = $1 AND locked_by = $2
RETURNING lock_key;
`

const releaseSQL = `
DELETE FROM app_locks
WHERE lock_key = $1 AND locked_by = $2;
`
