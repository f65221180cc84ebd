package users

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRow struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Email     string    `gorm:"not null;default:''"`
	Name      string    `gorm:"not null;default:''"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
	LastLogin time.Time `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

type GormRepo struct {
	DB *gorm.DB
}

// NewGormRepo migrates the users table and returns the repo.
func NewGormRepo(db *gorm.DB) (*GormRepo, error) {
	if err := db.AutoMigrate(&userRow{}); err != nil {
		return nil, err
	}
	return &GormRepo{DB: db}, nil
}

func (r *GormRepo) Upsert(ctx context.Context, user User) error {
	row := userRow{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.LastLogin.UTC(),
		LastLogin: user.LastLogin.UTC(),
	}
	updates := []string{"last_login"}
	if user.Email != "" {
		updates = append(updates, "email")
	}
	if user.Name != "" {
		updates = append(updates, "name")
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&row).Error
}

func (r *GormRepo) GetByID(ctx context.Context, userID string) (User, error) {
	var row userRow
	if err := r.DB.WithContext(ctx).Where("id = ?", userID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return User{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		CreatedAt: row.CreatedAt.UTC(),
		LastLogin: row.LastLogin.UTC(),
	}, nil
}

func (r *GormRepo) EmailsByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []userRow
	if err := r.DB.WithContext(ctx).Select("id", "email").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Email
	}
	return out, nil
}

var _ Repo = (*GormRepo)(nil)
