package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service reports liveness plus the state of optional dependencies. The
// probe itself never fails.
type Service struct {
	DB      Pinger
	Timeout time.Duration
}

// NewService constructs a health service. db may be nil.
func NewService(db Pinger) *Service {
	return &Service{DB: db, Timeout: 2 * time.Second}
}

// Status returns the liveness payload.
func (s *Service) Status(ctx context.Context) map[string]string {
	out := map[string]string{"status": "healthy"}
	if s == nil || s.DB == nil {
		return out
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		out["database"] = "unreachable"
	} else {
		out["database"] = "ok"
	}
	return out
}
