package analyses

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"resume-roast/internal/extract"
	"resume-roast/internal/ledger"
	"resume-roast/internal/llm"
	"resume-roast/internal/quota"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fakeExtractor struct {
	calls  int
	result extract.Result
	err    error
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte) (extract.Result, error) {
	f.calls++
	if f.err != nil {
		return extract.Result{}, f.err
	}
	return f.result, nil
}

type fakeStore struct {
	mu        sync.Mutex
	saves     int
	objects   map[string][]byte
	saveErr   error
	presigned []string
}

func (f *fakeStore) Save(ctx context.Context, userID, fileName string, r io.Reader) (string, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return "", 0, f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	key := userID + "/" + fileName
	f.objects[key] = data
	return key, int64(len(data)), nil
}

func (f *fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("missing object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presigned = append(f.presigned, key)
	return "https://blobs.example.test/" + key + "?ttl=" + ttl.String(), nil
}

type fakeFeedback struct {
	calls int
	text  string
	err   error
	last  llm.FeedbackInput
}

func (f *fakeFeedback) GenerateFeedback(ctx context.Context, input llm.FeedbackInput) (string, error) {
	f.calls++
	f.last = input
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeDirectory map[string]string

func (d fakeDirectory) EmailsByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range ids {
		if email, ok := d[id]; ok {
			out[id] = email
		}
	}
	return out, nil
}

type failingLedger struct {
	*ledger.MemoryRepo
}

func (failingLedger) Append(ctx context.Context, rec ledger.Record) error {
	return errors.New("disk full")
}

type fixture struct {
	svc       *Service
	ledger    *ledger.MemoryRepo
	extractor *fakeExtractor
	store     *fakeStore
	feedback  *fakeFeedback
}

func newFixture() *fixture {
	repo := ledger.NewMemoryRepo()
	now := func() time.Time { return testNow }
	f := &fixture{
		ledger:    repo,
		extractor: &fakeExtractor{result: extract.Result{Text: "Jane Doe\nEngineer", PageCount: 1, WordCount: 3}},
		store:     &fakeStore{},
		feedback:  &fakeFeedback{text: "## Summary\nSolid **impact** bullets.\nScore: 82/100"},
	}
	f.svc = &Service{
		Ledger:    repo,
		Quota:     quota.New(repo, quota.Config{Now: now}),
		Extractor: f.extractor,
		Store:     f.store,
		Feedback:  f.feedback,
		Users:     fakeDirectory{"u1": "jane@example.com"},
		Now:       now,
	}
	return f
}

func (f *fixture) seed(userID string, age time.Duration, score int) ledger.Record {
	rec := ledger.Record{
		ID:           userID + "-" + age.String(),
		UserID:       userID,
		CreatedAt:    testNow.Add(-age),
		Score:        &score,
		FeedbackText: "seeded",
		Filename:     "seed.pdf",
		ObjectKey:    userID + "/seed.pdf",
		PageCount:    1,
		WordCount:    10,
	}
	if err := f.ledger.Append(context.Background(), rec); err != nil {
		panic(err)
	}
	return rec
}

func pdfSubmission(userID string) Submission {
	return Submission{
		UserID:      userID,
		Filename:    "resume.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 fake"),
	}
}
