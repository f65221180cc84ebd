package analyses

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"resume-roast/internal/ledger"
	"resume-roast/internal/quota"
)

func TestAnalyzeAdmitsAndRecords(t *testing.T) {
	f := newFixture()
	f.seed("u1", 30*time.Minute, 70)

	sub := pdfSubmission("u1")
	sub.JobRole = "  Backend Engineer "
	res, err := f.svc.Analyze(context.Background(), sub)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Score != 82 {
		t.Fatalf("expected score 82, got %d", res.Score)
	}
	if strings.Contains(res.Feedback, "##") || strings.Contains(res.Feedback, "**") {
		t.Fatalf("expected markdown stripped, got %q", res.Feedback)
	}
	if res.PageCount != 1 || res.WordCount != 3 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if f.feedback.last.JobRole != "Backend Engineer" {
		t.Fatalf("expected trimmed job role, got %q", f.feedback.last.JobRole)
	}

	rec, err := f.ledger.FindByID(context.Background(), res.ResumeID)
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	if rec.UserID != "u1" || rec.ObjectKey == "" || rec.Score == nil || *rec.Score != 82 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !rec.CreatedAt.Equal(testNow) {
		t.Fatalf("expected created_at %v, got %v", testNow, rec.CreatedAt)
	}

	status, err := f.svc.QuotaStatus(context.Background(), "u1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Remaining != 0 || status.NextAvailable == nil {
		t.Fatalf("expected exhausted quota, got %+v", status)
	}
	if want := testNow.Add(-30 * time.Minute).Add(time.Hour); !status.NextAvailable.Equal(want) {
		t.Fatalf("expected next available %v, got %v", want, *status.NextAvailable)
	}
}

func TestAnalyzeDeniedMakesNoCalls(t *testing.T) {
	f := newFixture()
	f.seed("u1", 10*time.Minute, 60)
	f.seed("u1", 50*time.Minute, 65)

	_, err := f.svc.Analyze(context.Background(), pdfSubmission("u1"))
	var denied *quota.DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected denied error, got %v", err)
	}
	if !errors.Is(err, quota.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded match")
	}
	if want := testNow.Add(-50 * time.Minute).Add(time.Hour); !denied.RetryAfter.Equal(want) {
		t.Fatalf("expected retry after %v, got %v", want, denied.RetryAfter)
	}
	if f.extractor.calls != 0 || f.store.saves != 0 || f.feedback.calls != 0 {
		t.Fatalf("expected no external calls, got extract=%d save=%d feedback=%d", f.extractor.calls, f.store.saves, f.feedback.calls)
	}
	if n, _ := f.ledger.CountAll(context.Background()); n != 2 {
		t.Fatalf("expected ledger unchanged at 2, got %d", n)
	}
}

func TestAnalyzeWindowBoundaryIsInclusive(t *testing.T) {
	f := newFixture()
	f.seed("u1", time.Hour, 60)
	f.seed("u1", 5*time.Minute, 60)

	if _, err := f.svc.Analyze(context.Background(), pdfSubmission("u1")); !errors.Is(err, quota.ErrQuotaExceeded) {
		t.Fatalf("expected record at exactly now-1h to count, got %v", err)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Submission)
		reason string
	}{
		{name: "empty", mutate: func(s *Submission) { s.Data = nil }, reason: "file is empty"},
		{name: "not pdf", mutate: func(s *Submission) { s.Filename = "resume.docx"; s.ContentType = "application/msword" }, reason: "only PDF files are allowed"},
		{name: "too large", mutate: func(s *Submission) { s.Data = make([]byte, 6<<20) }, reason: "file too large (max 5MB)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			sub := pdfSubmission("u1")
			tc.mutate(&sub)
			_, err := f.svc.Analyze(context.Background(), sub)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Reason != tc.reason {
				t.Fatalf("expected validation error %q, got %v", tc.reason, err)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput match")
			}
			if f.store.saves != 0 || f.extractor.calls != 0 {
				t.Fatalf("expected no external calls")
			}
			if n, _ := f.ledger.CountAll(context.Background()); n != 0 {
				t.Fatalf("expected empty ledger, got %d", n)
			}
		})
	}
}

func TestAnalyzeRequiresUser(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Analyze(context.Background(), pdfSubmission(" ")); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAnalyzeFailureStages(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name  string
		setup func(*fixture)
		stage string
	}{
		{name: "extract", setup: func(f *fixture) { f.extractor.err = boom }, stage: StageExtract},
		{name: "store", setup: func(f *fixture) { f.store.saveErr = boom }, stage: StageStore},
		{name: "feedback", setup: func(f *fixture) { f.feedback.err = boom }, stage: StageFeedback},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			tc.setup(f)
			_, err := f.svc.Analyze(context.Background(), pdfSubmission("u1"))
			var failed *FailedError
			if !errors.As(err, &failed) || failed.Stage != tc.stage {
				t.Fatalf("expected failure at %s, got %v", tc.stage, err)
			}
			if !errors.Is(err, ErrAnalysisFailed) || !errors.Is(err, boom) {
				t.Fatalf("expected wrapped cause, got %v", err)
			}
			if n, _ := f.ledger.CountAll(context.Background()); n != 0 {
				t.Fatalf("expected no ledger write, got %d", n)
			}
		})
	}
}

func TestAnalyzeLedgerFailureIsNotAnalysisFailure(t *testing.T) {
	f := newFixture()
	f.svc.Ledger = failingLedger{f.ledger}
	_, err := f.svc.Analyze(context.Background(), pdfSubmission("u1"))
	if err == nil || errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected plain persistence error, got %v", err)
	}
}

func TestAnalyzeDefaultScoreWhenNoneFound(t *testing.T) {
	f := newFixture()
	f.feedback.text = "Nice layout, but quantify results."
	res, err := f.svc.Analyze(context.Background(), pdfSubmission("u1"))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Score != 75 {
		t.Fatalf("expected default score 75, got %d", res.Score)
	}
}

func TestAnalyzeStrictLockContention(t *testing.T) {
	f := newFixture()
	locker := quota.NewMemoryLocker(20 * time.Millisecond)
	f.svc.Quota = quota.New(f.ledger, quota.Config{Now: f.svc.Now, Locker: locker})
	f.svc.Strict = true

	unlock, err := f.svc.Quota.Lock(context.Background(), "u1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	_, err = f.svc.Analyze(context.Background(), pdfSubmission("u1"))
	if !errors.Is(err, quota.ErrLockTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}
	unlock()

	if _, err := f.svc.Analyze(context.Background(), pdfSubmission("u1")); err != nil {
		t.Fatalf("expected analyze after unlock, got %v", err)
	}
}

func TestHistoryNewestFirstWithoutFeedback(t *testing.T) {
	f := newFixture()
	for i := 0; i < 25; i++ {
		f.seed("u1", time.Duration(i+1)*time.Hour, 50+i)
	}
	f.seed("u2", time.Minute, 90)

	items, err := f.svc.History(context.Background(), "u1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(items) != HistoryLimit {
		t.Fatalf("expected %d items, got %d", HistoryLimit, len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].CreatedAt.After(items[i-1].CreatedAt) {
			t.Fatalf("expected newest first at %d", i)
		}
	}
}

func TestAdminStats(t *testing.T) {
	f := newFixture()
	f.seed("u1", 2*time.Hour, 70)
	f.seed("u1", 30*time.Hour, 81)
	f.seed("u2", time.Minute, 90)

	stats, err := f.svc.AdminStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalResumes != 3 || stats.TotalUsers != 2 || stats.ResumesLast24h != 2 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.AverageScore == nil || *stats.AverageScore != 80.3 {
		t.Fatalf("expected average 80.3, got %v", stats.AverageScore)
	}
	if *stats.MaxScore != 90 || *stats.MinScore != 70 {
		t.Fatalf("unexpected max/min: %d/%d", *stats.MaxScore, *stats.MinScore)
	}
}

func TestAdminStatsEmptyLedger(t *testing.T) {
	f := newFixture()
	stats, err := f.svc.AdminStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.AverageScore != nil || stats.MaxScore != nil || stats.MinScore != nil {
		t.Fatalf("expected nil score aggregates, got %+v", stats)
	}
}

func TestAdminResumesJoinsEmail(t *testing.T) {
	f := newFixture()
	f.seed("u1", 2*time.Hour, 70)
	f.seed("u2", time.Minute, 90)

	rows, err := f.svc.AdminResumes(context.Background())
	if err != nil {
		t.Fatalf("admin resumes: %v", err)
	}
	if len(rows) != 2 || rows[0].UserID != "u2" {
		t.Fatalf("expected newest first, got %+v", rows)
	}
	if rows[1].UserEmail != "jane@example.com" || rows[0].UserEmail != "" {
		t.Fatalf("unexpected emails: %q %q", rows[0].UserEmail, rows[1].UserEmail)
	}
}

func TestDownloadURL(t *testing.T) {
	f := newFixture()
	rec := f.seed("u1", time.Minute, 70)

	dl, err := f.svc.DownloadURL(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !strings.Contains(dl.URL, rec.ObjectKey) || !strings.Contains(dl.URL, "ttl=1h0m0s") {
		t.Fatalf("unexpected url %q", dl.URL)
	}
	if !dl.ExpiresAt.Equal(testNow.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", dl.ExpiresAt)
	}

	if _, err := f.svc.DownloadURL(context.Background(), "missing"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAnalyzeRatingFeedbackPersistsScore(t *testing.T) {
	f := newFixture()
	f.feedback.text = "Great resume overall. Rating: 88. Keep improving."
	res, err := f.svc.Analyze(context.Background(), pdfSubmission("u1"))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	rec, err := f.ledger.FindByID(context.Background(), res.ResumeID)
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	if res.Score != 88 || rec.Score == nil || *rec.Score != 88 {
		t.Fatalf("expected persisted score 88, got %d / %v", res.Score, rec.Score)
	}
	if rec.FeedbackText != f.feedback.text {
		t.Fatalf("expected feedback stored verbatim, got %q", rec.FeedbackText)
	}
}
