package analyses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-roast/internal/extract"
	"resume-roast/internal/ledger"
	"resume-roast/internal/llm"
	"resume-roast/internal/quota"
	"resume-roast/internal/scoring"
	"resume-roast/internal/shared/metrics"
	"resume-roast/internal/shared/storage/object"
	"resume-roast/internal/shared/telemetry"
)

const (
	// HistoryLimit caps the user-facing history listing.
	HistoryLimit = 20
	statsWindow  = 24 * time.Hour
)

// EmailDirectory resolves submitter emails for admin listings.
type EmailDirectory interface {
	EmailsByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// Service sequences quota admission, the external analysis steps and the
// ledger write, and answers history and admin queries over the ledger.
type Service struct {
	Ledger    ledger.Ledger
	Quota     *quota.Limiter
	Extractor extract.Extractor
	Store     object.ObjectStore
	Feedback  llm.FeedbackGenerator
	Users     EmailDirectory
	// Strict serializes check-then-append per user through Quota.Lock.
	Strict         bool
	MaxUploadBytes int64
	Now            func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) maxUploadBytes() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return MaxUploadBytes
}

// Analyze runs one submission end to end. A denied decision returns a
// *quota.DeniedError before any validation, external call or ledger write.
func (s *Service) Analyze(ctx context.Context, sub Submission) (Result, error) {
	userID := strings.TrimSpace(sub.UserID)
	if userID == "" {
		return Result{}, ErrUnauthorized
	}

	if s.Strict {
		unlock, err := s.Quota.Lock(ctx, userID)
		if err != nil {
			return Result{}, err
		}
		defer unlock()
	}

	decision, err := s.Quota.Check(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("check quota: %w", err)
	}
	if !decision.Admitted() {
		metrics.IncAnalysisDenied()
		telemetry.Info("analysis.denied", map[string]any{
			"user_id":     userID,
			"in_window":   decision.InWindow,
			"retry_after": decision.RetryAfter.Format(time.RFC3339),
		})
		return Result{}, decision.Err()
	}

	if err := validateUpload(sub, s.maxUploadBytes()); err != nil {
		return Result{}, err
	}

	metrics.IncAnalysisAdmitted()
	telemetry.Info("analysis.admitted", map[string]any{
		"user_id":    userID,
		"filename":   sub.Filename,
		"size_bytes": len(sub.Data),
		"in_window":  decision.InWindow,
	})
	start := time.Now()

	// Started work runs to completion even if the caller goes away.
	work := context.WithoutCancel(ctx)

	text, err := s.Extractor.Extract(work, sub.Data)
	if err != nil {
		return Result{}, s.fail(userID, StageExtract, err)
	}

	objectKey, _, err := s.Store.Save(work, userID, sub.Filename, bytes.NewReader(sub.Data))
	if err != nil {
		return Result{}, s.fail(userID, StageStore, err)
	}

	feedback, err := s.Feedback.GenerateFeedback(work, llm.FeedbackInput{
		ResumeText:     text.Text,
		JobRole:        strings.TrimSpace(sub.JobRole),
		JobDescription: strings.TrimSpace(sub.JobDescription),
	})
	if err != nil {
		return Result{}, s.fail(userID, StageFeedback, err)
	}

	feedback = scoring.StripMarkdown(feedback)
	score, rule := scoring.ExtractWithRule(feedback)

	rec := ledger.Record{
		ID:             uuid.NewString(),
		UserID:         userID,
		CreatedAt:      s.now(),
		Score:          &score,
		FeedbackText:   feedback,
		Filename:       sub.Filename,
		ObjectKey:      objectKey,
		PageCount:      text.PageCount,
		WordCount:      text.WordCount,
		JobRole:        strings.TrimSpace(sub.JobRole),
		JobDescription: strings.TrimSpace(sub.JobDescription),
	}
	if err := s.Ledger.Append(work, rec); err != nil {
		metrics.IncAnalysisFailed("ledger")
		telemetry.Error("analysis.failed", map[string]any{
			"user_id": userID,
			"stage":   "ledger",
			"error":   err.Error(),
		})
		return Result{}, fmt.Errorf("record analysis: %w", err)
	}

	elapsed := time.Since(start)
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDuration(elapsed)
	metrics.ObserveScore(score)
	telemetry.Info("analysis.completed", map[string]any{
		"user_id":     userID,
		"resume_id":   rec.ID,
		"score":       score,
		"score_rule":  rule,
		"page_count":  rec.PageCount,
		"word_count":  rec.WordCount,
		"duration_ms": elapsed.Milliseconds(),
	})

	return Result{
		ResumeID:  rec.ID,
		Feedback:  feedback,
		Score:     score,
		PageCount: rec.PageCount,
		WordCount: rec.WordCount,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *Service) fail(userID, stage string, err error) error {
	metrics.IncAnalysisFailed(stage)
	telemetry.Error("analysis.failed", map[string]any{
		"user_id": userID,
		"stage":   stage,
		"error":   err.Error(),
	})
	return &FailedError{Stage: stage, Err: err}
}

// History lists the user's most recent records, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]HistoryItem, error) {
	records, err := s.Ledger.FindByUserSince(ctx, userID, time.Time{}, HistoryLimit)
	if err != nil {
		return nil, err
	}
	items := make([]HistoryItem, 0, len(records))
	for _, rec := range records {
		items = append(items, HistoryItem{
			ID:        rec.ID,
			Filename:  rec.Filename,
			Score:     rec.Score,
			PageCount: rec.PageCount,
			WordCount: rec.WordCount,
			JobRole:   rec.JobRole,
			CreatedAt: rec.CreatedAt,
		})
	}
	return items, nil
}

// QuotaStatus reports remaining submissions for the user.
func (s *Service) QuotaStatus(ctx context.Context, userID string) (quota.Status, error) {
	return s.Quota.Status(ctx, userID)
}

// AdminStats aggregates the whole ledger.
func (s *Service) AdminStats(ctx context.Context) (AdminStats, error) {
	total, err := s.Ledger.CountAll(ctx)
	if err != nil {
		return AdminStats{}, err
	}
	users, err := s.Ledger.CountUsers(ctx)
	if err != nil {
		return AdminStats{}, err
	}
	recent, err := s.Ledger.CountSince(ctx, s.now().Add(-statsWindow))
	if err != nil {
		return AdminStats{}, err
	}
	scores, err := s.Ledger.ScoreStats(ctx)
	if err != nil {
		return AdminStats{}, err
	}

	stats := AdminStats{
		TotalResumes:   total,
		TotalUsers:     users,
		ResumesLast24h: recent,
	}
	if scores.Count > 0 {
		avg := math.Round(scores.Average*10) / 10
		maxScore, minScore := scores.Max, scores.Min
		stats.AverageScore = &avg
		stats.MaxScore = &maxScore
		stats.MinScore = &minScore
	}
	return stats, nil
}

// AdminResumes lists every record, newest first, with submitter emails.
func (s *Service) AdminResumes(ctx context.Context) ([]AdminResume, error) {
	records, err := s.Ledger.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	emails := map[string]string{}
	if s.Users != nil && len(records) > 0 {
		ids := make([]string, 0, len(records))
		for _, rec := range records {
			ids = append(ids, rec.UserID)
		}
		found, err := s.Users.EmailsByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("resolve submitter emails: %w", err)
		}
		emails = found
	}

	out := make([]AdminResume, 0, len(records))
	for _, rec := range records {
		out = append(out, AdminResume{
			ID:             rec.ID,
			UserID:         rec.UserID,
			UserEmail:      emails[rec.UserID],
			Filename:       rec.Filename,
			Score:          rec.Score,
			Feedback:       rec.FeedbackText,
			PageCount:      rec.PageCount,
			WordCount:      rec.WordCount,
			JobRole:        rec.JobRole,
			JobDescription: rec.JobDescription,
			CreatedAt:      rec.CreatedAt,
		})
	}
	return out, nil
}

// DownloadURL returns a presigned link for the record's stored file.
func (s *Service) DownloadURL(ctx context.Context, resumeID string) (Download, error) {
	rec, err := s.Ledger.FindByID(ctx, resumeID)
	if err != nil {
		return Download{}, err
	}
	if rec.ObjectKey == "" {
		return Download{}, ledger.ErrNotFound
	}
	ttl := object.DefaultPresignTTL
	link, err := s.Store.PresignGet(ctx, rec.ObjectKey, ttl)
	if err != nil {
		return Download{}, fmt.Errorf("presign download: %w", err)
	}
	return Download{URL: link, ExpiresAt: s.now().Add(ttl)}, nil
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ledger.ErrNotFound)
}
