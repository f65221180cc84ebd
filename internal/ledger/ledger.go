// Package ledger stores submission records. Records are append-only: no
// backend exposes an update or delete path.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrPersistence wraps failures of the backing store.
	ErrPersistence = errors.New("ledger unavailable")
	// ErrDuplicateID is returned when a caller reuses an id.
	ErrDuplicateID = errors.New("duplicate record id")
)

// Ledger is the contract shared by every backend.
type Ledger interface {
	Append(ctx context.Context, rec Record) error
	// FindByUserSince returns the user's records with CreatedAt >= since,
	// newest first. limit <= 0 means no cap.
	FindByUserSince(ctx context.Context, userID string, since time.Time, limit int) ([]Record, error)
	FindByID(ctx context.Context, id string) (Record, error)
	// ListAll returns every record, newest first.
	ListAll(ctx context.Context) ([]Record, error)
	CountAll(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	CountUsers(ctx context.Context) (int, error)
	ScoreStats(ctx context.Context) (ScoreStats, error)
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrPersistence, err)
}

func validate(rec Record) error {
	if rec.ID == "" {
		return errors.New("record id is required")
	}
	if rec.UserID == "" {
		return errors.New("record user id is required")
	}
	if rec.CreatedAt.IsZero() {
		return errors.New("record created_at is required")
	}
	if rec.Score != nil && (*rec.Score < 0 || *rec.Score > 100) {
		return fmt.Errorf("record score %d out of range", *rec.Score)
	}
	return nil
}
