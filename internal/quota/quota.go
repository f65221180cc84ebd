// Package quota enforces the per-user submission window against the ledger.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resume-roast/internal/ledger"
)

const (
	DefaultWindow = time.Hour
	DefaultMax    = 2
)

// ErrQuotaExceeded matches every *DeniedError via errors.Is.
var ErrQuotaExceeded = errors.New("quota exceeded")

// Outcome tags an admission decision.
type Outcome int

const (
	Admitted Outcome = iota + 1
	Denied
)

func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// Decision is the result of an admission check. RetryAfter is set only
// when Outcome is Denied.
type Decision struct {
	Outcome    Outcome
	RetryAfter time.Time
	InWindow   int
}

func (d Decision) Admitted() bool { return d.Outcome == Admitted }

// Err returns a *DeniedError for denied decisions and nil otherwise.
func (d Decision) Err() error {
	if d.Outcome == Denied {
		return &DeniedError{RetryAfter: d.RetryAfter}
	}
	return nil
}

// DeniedError carries the instant at which the window frees a slot.
type DeniedError struct {
	RetryAfter time.Time
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("quota exceeded, retry after %s", e.RetryAfter.UTC().Format(time.RFC3339))
}

func (e *DeniedError) Is(target error) bool { return target == ErrQuotaExceeded }

// Status reports the remaining quota. NextAvailable is set only when
// Remaining is zero.
type Status struct {
	Remaining     int
	Total         int
	NextAvailable *time.Time
}

// Reader is the slice of the ledger the limiter needs.
type Reader interface {
	FindByUserSince(ctx context.Context, userID string, since time.Time, limit int) ([]ledger.Record, error)
}

// Config tunes a Limiter. Zero values take the defaults.
type Config struct {
	Window time.Duration
	Max    int
	Now    func() time.Time
	// Locker serializes check-then-append per user when set.
	Locker Locker
}

// Limiter is a sliding-window counter over ledger records.
type Limiter struct {
	records Reader
	window  time.Duration
	max     int
	now     func() time.Time
	locker  Locker
}

func New(records Reader, cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Limiter{
		records: records,
		window:  cfg.Window,
		max:     cfg.Max,
		now:     cfg.Now,
		locker:  cfg.Locker,
	}
}

// Max is the number of submissions admitted per window.
func (l *Limiter) Max() int { return l.max }

// Window is the trailing duration the limit applies to.
func (l *Limiter) Window() time.Duration { return l.window }

// Check decides whether userID may submit now.
func (l *Limiter) Check(ctx context.Context, userID string) (Decision, error) {
	count, nextFree, err := l.evaluate(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if count < l.max {
		return Decision{Outcome: Admitted, InWindow: count}, nil
	}
	return Decision{Outcome: Denied, RetryAfter: nextFree, InWindow: count}, nil
}

// Status reports remaining submissions for userID.
func (l *Limiter) Status(ctx context.Context, userID string) (Status, error) {
	count, nextFree, err := l.evaluate(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	remaining := l.max - count
	if remaining < 0 {
		remaining = 0
	}
	status := Status{Remaining: remaining, Total: l.max}
	if remaining == 0 {
		status.NextAvailable = &nextFree
	}
	return status, nil
}

// Lock serializes admission for userID when a Locker is configured. The
// returned unlock is always safe to call.
func (l *Limiter) Lock(ctx context.Context, userID string) (func(), error) {
	if l.locker == nil {
		return func() {}, nil
	}
	return l.locker.Acquire(ctx, "quota:lock:"+userID)
}

// evaluate counts in-window records and computes when the oldest one ages
// out. The lower bound is inclusive.
func (l *Limiter) evaluate(ctx context.Context, userID string) (int, time.Time, error) {
	now := l.now().UTC()
	since := now.Add(-l.window)
	records, err := l.records.FindByUserSince(ctx, userID, since, 0)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("load quota window: %w", err)
	}
	var oldest time.Time
	count := 0
	for _, rec := range records {
		if rec.CreatedAt.Before(since) {
			continue
		}
		if count == 0 || rec.CreatedAt.Before(oldest) {
			oldest = rec.CreatedAt
		}
		count++
	}
	if count == 0 {
		return 0, time.Time{}, nil
	}
	return count, oldest.Add(l.window).UTC(), nil
}
