package prefs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/shared"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Preferences{})
}

func (s *Store) Get(ctx context.Context, profileID string) (*Preferences, error) {
	var p Preferences
	err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOrCreate returns the profile, creating it with defaults on first use.
func (s *Store) GetOrCreate(ctx context.Context, profileID string) (*Preferences, error) {
	p, err := s.Get(ctx, profileID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	p = &Preferences{ProfileID: profileID, Theme: ThemeLight}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// Local returns the single profile of a device-local database, generating a
// participant id the first time.
func (s *Store) Local(ctx context.Context) (*Preferences, error) {
	var p Preferences
	err := s.db.WithContext(ctx).Order("created_at").First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.GetOrCreate(ctx, uuid.NewString())
}

func (s *Store) Save(ctx context.Context, p *Preferences) error {
	if p.ProfileID == "" {
		p.ProfileID = uuid.NewString()
	}
	if p.Theme == "" {
		p.Theme = ThemeLight
	}
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *Store) Delete(ctx context.Context, profileID string) error {
	result := s.db.WithContext(ctx).Where("profile_id = ?", profileID).Delete(&Preferences{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
