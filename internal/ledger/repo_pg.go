package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const recordColumns = `id, user_id, created_at, score, feedback, filename, object_key, page_count, word_count, job_role, job_description`

// PGRepo stores records in the resumes table on Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Append(ctx context.Context, rec Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	const query = `
INSERT INTO resumes (` + recordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.CreatedAt.UTC(),
		nullableScore(rec.Score),
		rec.FeedbackText,
		rec.Filename,
		rec.ObjectKey,
		rec.PageCount,
		rec.WordCount,
		rec.JobRole,
		rec.JobDescription,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateID
		}
		return persistenceErr("append record", err)
	}
	return nil
}

func (r *PGRepo) FindByUserSince(ctx context.Context, userID string, since time.Time, limit int) ([]Record, error) {
	query := `
SELECT ` + recordColumns + `
FROM resumes
WHERE user_id = $1 AND created_at >= $2
ORDER BY created_at DESC`
	args := []any{userID, since.UTC()}
	if limit > 0 {
		query += "\nLIMIT $3"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr("find records by user", err)
	}
	return scanRecords(rows)
}

func (r *PGRepo) FindByID(ctx context.Context, id string) (Record, error) {
	const query = `
SELECT ` + recordColumns + `
FROM resumes
WHERE id = $1
LIMIT 1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, persistenceErr("find record", err)
	}
	return rec, nil
}

func (r *PGRepo) ListAll(ctx context.Context) ([]Record, error) {
	const query = `
SELECT ` + recordColumns + `
FROM resumes
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, persistenceErr("list records", err)
	}
	return scanRecords(rows)
}

func (r *PGRepo) CountAll(ctx context.Context) (int, error) {
	return r.count(ctx, "count records", `SELECT COUNT(*) FROM resumes`)
}

func (r *PGRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	return r.count(ctx, "count recent records", `SELECT COUNT(*) FROM resumes WHERE created_at >= $1`, since.UTC())
}

func (r *PGRepo) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, "count users", `SELECT COUNT(DISTINCT user_id) FROM resumes`)
}

func (r *PGRepo) ScoreStats(ctx context.Context) (ScoreStats, error) {
	const query = `
SELECT COUNT(score), AVG(score)::float8, MAX(score), MIN(score)
FROM resumes
WHERE score IS NOT NULL`
	var (
		count int
		avg   sql.NullFloat64
		max   sql.NullInt64
		min   sql.NullInt64
	)
	if err := r.DB.QueryRowContext(ctx, query).Scan(&count, &avg, &max, &min); err != nil {
		return ScoreStats{}, persistenceErr("score stats", err)
	}
	return ScoreStats{
		Count:   count,
		Average: avg.Float64,
		Max:     int(max.Int64),
		Min:     int(min.Int64),
	}, nil
}

func (r *PGRepo) count(ctx context.Context, op, query string, args ...any) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, persistenceErr(op, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var score sql.NullInt64
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.CreatedAt,
		&score,
		&rec.FeedbackText,
		&rec.Filename,
		&rec.ObjectKey,
		&rec.PageCount,
		&rec.WordCount,
		&rec.JobRole,
		&rec.JobDescription,
	)
	if err != nil {
		return Record{}, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if score.Valid {
		v := int(score.Int64)
		rec.Score = &v
	}
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	out := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, persistenceErr("scan record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate records", err)
	}
	return out, nil
}

func nullableScore(score *int) any {
	if score == nil {
		return nil
	}
	return *score
}

var _ Ledger = (*PGRepo)(nil)
