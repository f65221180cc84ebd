package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// resumeRow maps a record onto the resumes table for gorm.
type resumeRow struct {
	ID             string    `gorm:"primaryKey;type:text"`
	UserID         string    `gorm:"index:resumes_user_created_idx,priority:1;not null"`
	CreatedAt      time.Time `gorm:"index:resumes_user_created_idx,priority:2;index;not null;autoCreateTime:false"`
	Score          *int
	Feedback       string `gorm:"not null;default:''"`
	Filename       string `gorm:"not null;default:''"`
	ObjectKey      string `gorm:"not null;default:''"`
	PageCount      int    `gorm:"not null;default:0"`
	WordCount      int    `gorm:"not null;default:0"`
	JobRole        string `gorm:"not null;default:''"`
	JobDescription string `gorm:"not null;default:''"`
}

func (resumeRow) TableName() string { return "resumes" }

// GormRepo stores records through gorm, used with SQLite for single-node deployments.
type GormRepo struct {
	DB *gorm.DB
}

// NewGormRepo migrates the resumes table and returns the repo.
func NewGormRepo(db *gorm.DB) (*GormRepo, error) {
	if err := db.AutoMigrate(&resumeRow{}); err != nil {
		return nil, persistenceErr("migrate resumes", err)
	}
	return &GormRepo{DB: db}, nil
}

func (r *GormRepo) Append(ctx context.Context, rec Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	row := toRow(rec)
	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return ErrDuplicateID
		}
		return persistenceErr("append record", err)
	}
	return nil
}

func (r *GormRepo) FindByUserSince(ctx context.Context, userID string, since time.Time, limit int) ([]Record, error) {
	q := r.DB.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since.UTC()).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []resumeRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, persistenceErr("find records by user", err)
	}
	return fromRows(rows), nil
}

func (r *GormRepo) FindByID(ctx context.Context, id string) (Record, error) {
	var row resumeRow
	err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, persistenceErr("find record", err)
	}
	return fromRow(row), nil
}

func (r *GormRepo) ListAll(ctx context.Context) ([]Record, error) {
	var rows []resumeRow
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, persistenceErr("list records", err)
	}
	return fromRows(rows), nil
}

func (r *GormRepo) CountAll(ctx context.Context) (int, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&resumeRow{}).Count(&n).Error; err != nil {
		return 0, persistenceErr("count records", err)
	}
	return int(n), nil
}

func (r *GormRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&resumeRow{}).Where("created_at >= ?", since.UTC()).Count(&n).Error
	if err != nil {
		return 0, persistenceErr("count recent records", err)
	}
	return int(n), nil
}

func (r *GormRepo) CountUsers(ctx context.Context) (int, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&resumeRow{}).Distinct("user_id").Count(&n).Error; err != nil {
		return 0, persistenceErr("count users", err)
	}
	return int(n), nil
}

func (r *GormRepo) ScoreStats(ctx context.Context) (ScoreStats, error) {
	var agg struct {
		N   int64
		Avg sql.NullFloat64
		Max sql.NullInt64
		Min sql.NullInt64
	}
	err := r.DB.WithContext(ctx).Model(&resumeRow{}).
		Select("COUNT(score) AS n, AVG(score) AS avg, MAX(score) AS max, MIN(score) AS min").
		Where("score IS NOT NULL").
		Scan(&agg).Error
	if err != nil {
		return ScoreStats{}, persistenceErr("score stats", err)
	}
	return ScoreStats{
		Count:   int(agg.N),
		Average: agg.Avg.Float64,
		Max:     int(agg.Max.Int64),
		Min:     int(agg.Min.Int64),
	}, nil
}

func toRow(rec Record) resumeRow {
	return resumeRow{
		ID:             rec.ID,
		UserID:         rec.UserID,
		CreatedAt:      rec.CreatedAt.UTC(),
		Score:          copyScore(rec.Score),
		Feedback:       rec.FeedbackText,
		Filename:       rec.Filename,
		ObjectKey:      rec.ObjectKey,
		PageCount:      rec.PageCount,
		WordCount:      rec.WordCount,
		JobRole:        rec.JobRole,
		JobDescription: rec.JobDescription,
	}
}

func fromRow(row resumeRow) Record {
	return Record{
		ID:             row.ID,
		UserID:         row.UserID,
		CreatedAt:      row.CreatedAt.UTC(),
		Score:          row.Score,
		FeedbackText:   row.Feedback,
		Filename:       row.Filename,
		ObjectKey:      row.ObjectKey,
		PageCount:      row.PageCount,
		WordCount:      row.WordCount,
		JobRole:        row.JobRole,
		JobDescription: row.JobDescription,
	}
}

func fromRows(rows []resumeRow) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

var _ Ledger = (*GormRepo)(nil)
