package analyses

import "time"

// Submission is one uploaded resume with optional job context.
type Submission struct {
	UserID         string
	Filename       string
	ContentType    string
	Data           []byte
	JobRole        string
	JobDescription string
}

// Result is returned to the submitter after a completed analysis.
type Result struct {
	ResumeID  string
	Feedback  string
	Score     int
	PageCount int
	WordCount int
	CreatedAt time.Time
}

// HistoryItem is a record summary without the feedback text.
type HistoryItem struct {
	ID        string
	Filename  string
	Score     *int
	PageCount int
	WordCount int
	JobRole   string
	CreatedAt time.Time
}

// AdminStats aggregates the whole ledger. Score fields are nil when no
// record carries a score.
type AdminStats struct {
	TotalResumes   int
	TotalUsers     int
	AverageScore   *float64
	MaxScore       *int
	MinScore       *int
	ResumesLast24h int
}

// AdminResume is a full record joined with the submitter's email.
type AdminResume struct {
	ID             string
	UserID         string
	UserEmail      string
	Filename       string
	Score          *int
	Feedback       string
	PageCount      int
	WordCount      int
	JobRole        string
	JobDescription string
	CreatedAt      time.Time
}

// Download is a time-limited link to a stored resume.
type Download struct {
	URL       string
	ExpiresAt time.Time
}
