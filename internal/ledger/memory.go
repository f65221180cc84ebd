package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo keeps records in process memory.
type MemoryRepo struct {
	mu      sync.RWMutex
	records []Record
	byID    map[string]int
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]int)}
}

func (r *MemoryRepo) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(rec); err != nil {
		return err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.Score = copyScore(rec.Score)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[rec.ID]; ok {
		return ErrDuplicateID
	}
	r.byID[rec.ID] = len(r.records)
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryRepo) FindByUserSince(ctx context.Context, userID string, since time.Time, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Record, 0)
	for _, rec := range r.records {
		if rec.UserID == userID && !rec.CreatedAt.Before(since) {
			out = append(out, clone(rec))
		}
	}
	r.mu.RUnlock()

	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) FindByID(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return clone(r.records[idx]), nil
}

func (r *MemoryRepo) ListAll(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, clone(rec))
	}
	r.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryRepo) CountAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

func (r *MemoryRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, rec := range r.records {
		if !rec.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) CountUsers(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, rec := range r.records {
		seen[rec.UserID] = struct{}{}
	}
	return len(seen), nil
}

func (r *MemoryRepo) ScoreStats(ctx context.Context) (ScoreStats, error) {
	if err := ctx.Err(); err != nil {
		return ScoreStats{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var stats ScoreStats
	sum := 0
	for _, rec := range r.records {
		if rec.Score == nil {
			continue
		}
		s := *rec.Score
		if stats.Count == 0 || s > stats.Max {
			stats.Max = s
		}
		if stats.Count == 0 || s < stats.Min {
			stats.Min = s
		}
		sum += s
		stats.Count++
	}
	if stats.Count > 0 {
		stats.Average = float64(sum) / float64(stats.Count)
	}
	return stats, nil
}

func sortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

func clone(rec Record) Record {
	rec.Score = copyScore(rec.Score)
	return rec
}

func copyScore(score *int) *int {
	if score == nil {
		return nil
	}
	v := *score
	return &v
}

var _ Ledger = (*MemoryRepo)(nil)
