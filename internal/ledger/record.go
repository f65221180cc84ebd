package ledger

import "time"

// Record is one immutable submission entry.
type Record struct {
	ID             string
	UserID         string
	CreatedAt      time.Time
	Score          *int
	FeedbackText   string
	Filename       string
	ObjectKey      string
	PageCount      int
	WordCount      int
	JobRole        string
	JobDescription string
}

// ScoreStats aggregates scores over every record that carries one.
type ScoreStats struct {
	Count   int
	Average float64
	Max     int
	Min     int
}
