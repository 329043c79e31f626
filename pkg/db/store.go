// pkg/db/store.go
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Store is the gorm-backed implementation of the delivery collaborators
// (profile store, cursor store, ledger, prompt catalog, commit).
type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// DueProfiles returns profiles eligible for delivery this cycle: everyone
// whose notification day list is non-empty. An empty list is the documented
// "paused" sentinel. The filter runs in Go because the column is JSON and
// the comparison semantics differ between postgres and sqlite; a profile
// with an unparseable day list is kept so the orchestrator reports it
// instead of silently dropping the user.
func (s *Store) DueProfiles(ctx context.Context) ([]UserScheduleProfile, error) {
	var profiles []UserScheduleProfile
	err := s.db.WithContext(ctx).
		Order("user_id ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	eligible := make([]UserScheduleProfile, 0, len(profiles))
	for _, profile := range profiles {
		days, err := profile.DaySet()
		if err != nil || len(days) > 0 {
			eligible = append(eligible, profile)
		}
	}
	return eligible, nil
}

func (s *Store) ProfileByUser(ctx context.Context, userID int64) (UserScheduleProfile, error) {
	var profile UserScheduleProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	return profile, err
}

// SeedCursors lazily creates a cursor row at 1 for every listed category that
// has none yet. Rows for categories the user has dropped are left untouched,
// which is what lets a re-added category resume instead of restarting.
func (s *Store) SeedCursors(ctx context.Context, userID int64, categories []string) error {
	for _, category := range categories {
		cursor := RotationCursor{
			UserID:              userID,
			CategoryID:          category,
			CurrentPromptNumber: 1,
		}
		err := s.db.WithContext(ctx).
			Where("user_id = ? AND category_id = ?", userID, category).
			FirstOrCreate(&cursor).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// Cursors returns the user's rotation cursors keyed by category id.
func (s *Store) Cursors(ctx context.Context, userID int64) (map[string]int, error) {
	var rows []RotationCursor
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	cursors := make(map[string]int, len(rows))
	for _, row := range rows {
		cursors[row.CategoryID] = row.CurrentPromptNumber
	}
	return cursors, nil
}

// SentBetween reports whether the ledger holds any delivery for the user in
// [start, end). Callers pass the bounds of the user's local calendar day.
func (s *Store) SentBetween(ctx context.Context, userID int64, start, end time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&DeliveryRecord{}).
		Where("user_id = ? AND sent_at >= ? AND sent_at < ?", userID, start, end).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LookupPrompt fetches the active catalog entry at (category, number).
func (s *Store) LookupPrompt(ctx context.Context, categoryID string, promptNumber int) (PromptBankEntry, error) {
	var entry PromptBankEntry
	err := s.db.WithContext(ctx).
		Where("category_id = ? AND prompt_number = ? AND is_active = ?", categoryID, promptNumber, true).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PromptBankEntry{}, fmt.Errorf("%w: category %q number %d", ErrPromptNotFound, categoryID, promptNumber)
	}
	if err != nil {
		return PromptBankEntry{}, err
	}
	return entry, nil
}

// CommitDelivery records a successful delivery: the ledger insert, the cursor
// advance, and the profile's rotation index move in one transaction. Callers
// invoke this only after the notifier confirmed the send; both writes land or
// neither does.
func (s *Store) CommitDelivery(ctx context.Context, rec DeliveryRecord, nextPromptNumber, nextCategoryIndex int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		res := tx.Model(&RotationCursor{}).
			Where("user_id = ? AND category_id = ?", rec.UserID, rec.CategoryID).
			Updates(map[string]any{
				"current_prompt_number": nextPromptNumber,
				"last_sent_date":        rec.SentAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			cursor := RotationCursor{
				UserID:              rec.UserID,
				CategoryID:          rec.CategoryID,
				CurrentPromptNumber: nextPromptNumber,
				LastSentDate:        &rec.SentAt,
			}
			if err := tx.Create(&cursor).Error; err != nil {
				return err
			}
		}

		return tx.Model(&UserScheduleProfile{}).
			Where("user_id = ?", rec.UserID).
			Updates(map[string]any{
				"current_category_index": nextCategoryIndex,
				"last_prompt_sent_at":    rec.SentAt,
			}).Error
	})
}

// CatalogGap marks the first hole in a category's prompt sequence.
type CatalogGap struct {
	CategoryID    string `json:"category_id"`
	MissingNumber int    `json:"missing_number"`
}

// CheckCatalogGaps audits every active category for a non-dense prompt
// sequence. Rotation stalls silently at a gap, so operators want these
// surfaced before users hit them.
func (s *Store) CheckCatalogGaps(ctx context.Context) ([]CatalogGap, error) {
	var entries []PromptBankEntry
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("category_id ASC, prompt_number ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	var gaps []CatalogGap
	current := ""
	expected := 1
	for _, entry := range entries {
		if entry.CategoryID != current {
			current = entry.CategoryID
			expected = 1
		}
		if entry.PromptNumber != expected {
			gaps = append(gaps, CatalogGap{CategoryID: current, MissingNumber: expected})
			expected = entry.PromptNumber
		}
		expected++
	}
	return gaps, nil
}
