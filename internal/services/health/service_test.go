package health

import (
	"context"
	"errors"
	"testing"
)

type stubPinger struct{ err error }

func (s stubPinger) PingContext(ctx context.Context) error { return s.err }

func TestStatus(t *testing.T) {
	cases := []struct {
		name string
		db   Pinger
		want map[string]string
	}{
		{name: "no database", db: nil, want: map[string]string{"status": "healthy"}},
		{name: "database ok", db: stubPinger{}, want: map[string]string{"status": "healthy", "database": "ok"}},
		{name: "database down", db: stubPinger{err: errors.New("refused")}, want: map[string]string{"status": "healthy", "database": "unreachable"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NewService(tc.db).Status(context.Background())
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Fatalf("expected %s=%s, got %s", k, v, got[k])
				}
			}
		})
	}
}
