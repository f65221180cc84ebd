package analyses

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidInput   = errors.New("invalid input")
	ErrAnalysisFailed = errors.New("analysis failed")
)

// Failure stages reported by FailedError.
const (
	StageExtract  = "extract"
	StageStore    = "store"
	StageFeedback = "feedback"
)

// ValidationError rejects an upload before any external call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid input: " + e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// FailedError reports a downstream failure after admission. The cause is
// kept for the caller; nothing already done is rolled back.
type FailedError struct {
	Stage string
	Err   error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("analysis failed at %s: %v", e.Stage, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

func (e *FailedError) Is(target error) bool { return target == ErrAnalysisFailed }
