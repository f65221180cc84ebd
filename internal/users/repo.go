package users

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user not found")

type Repo interface {
	// Upsert inserts the user or refreshes email, name and last login.
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	// EmailsByIDs maps known ids to emails; unknown ids are omitted.
	EmailsByIDs(ctx context.Context, ids []string) (map[string]string, error)
}
