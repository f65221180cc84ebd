package users

import (
	"context"
	"errors"
	"strings"
	"time"
)

type Service struct {
	Repo Repo
	Now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: time.Now}
}

// Touch records a sign-in or authenticated request for the user.
func (s *Service) Touch(ctx context.Context, userID, email, name string) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user id is required")
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return s.Repo.Upsert(ctx, User{
		ID:        userID,
		Email:     strings.TrimSpace(email),
		Name:      strings.TrimSpace(name),
		LastLogin: now().UTC(),
	})
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

// EmailsByIDs resolves submitter emails for admin listings. Duplicate and
// empty ids are dropped before querying.
func (s *Service) EmailsByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("users service not configured")
	}
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return s.Repo.EmailsByIDs(ctx, unique)
}
