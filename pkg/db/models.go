// pkg/db/models.go
package db

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// PromptBankEntry is one row of the static prompt catalog. For an active
// category the prompt numbers form a dense sequence starting at 1; a gap
// stalls that category's rotation until an operator repairs the catalog.
type PromptBankEntry struct {
	ID           uint   `gorm:"primaryKey"`
	CategoryID   string `gorm:"not null;uniqueIndex:idx_category_prompt"`
	PromptNumber int    `gorm:"not null;uniqueIndex:idx_category_prompt"`
	CategoryName string `gorm:"not null"`
	PromptText   string `gorm:"not null"`
	IsActive     bool   `gorm:"not null;default:true"`
}

func (PromptBankEntry) TableName() string {
	return "prompts"
}

// UserScheduleProfile holds a user's delivery preferences. Categories is an
// ordered JSON list of category ids (order = rotation order); NotificationDays
// is a JSON list of lowercase weekday names, empty meaning paused.
type UserScheduleProfile struct {
	ID                   uint           `gorm:"primaryKey"`
	UserID               int64          `gorm:"uniqueIndex"`
	NotificationEmail    string         `gorm:"not null"`
	Categories           datatypes.JSON `gorm:"not null"`
	NotificationDays     datatypes.JSON `gorm:"not null"`
	NotificationTime     string         `gorm:"not null;default:''"` // "9:00 AM"
	Timezone             string         `gorm:"not null;default:'UTC'"`
	CurrentCategoryIndex int            `gorm:"not null;default:0"`
	ActiveChallenge      string         `gorm:"not null;default:''"`
	LastPromptSentAt     *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (p UserScheduleProfile) CategoryList() ([]string, error) {
	if len(p.Categories) == 0 {
		return nil, nil
	}
	var categories []string
	if err := json.Unmarshal(p.Categories, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (p UserScheduleProfile) DaySet() (map[string]bool, error) {
	if len(p.NotificationDays) == 0 {
		return map[string]bool{}, nil
	}
	var days []string
	if err := json.Unmarshal(p.NotificationDays, &days); err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set, nil
}

// RotationCursor is the next-prompt pointer for one (user, category) pair.
// CurrentPromptNumber starts at 1 ("not yet sent") and is only advanced as
// part of a committed delivery. Rows are never deleted, even when the user
// drops the category, so re-adding it resumes where the rotation left off.
type RotationCursor struct {
	ID                  uint   `gorm:"primaryKey"`
	UserID              int64  `gorm:"index;uniqueIndex:idx_user_category"`
	CategoryID          string `gorm:"not null;uniqueIndex:idx_user_category"`
	CurrentPromptNumber int    `gorm:"not null;default:1"`
	LastSentDate        *time.Time
}

// DeliveryRecord is an append-only ledger row, written exactly once per
// successful delivery. It backs the at-most-one-per-day guard and the
// user-facing history view. No update or delete path exists in the core.
type DeliveryRecord struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        int64     `gorm:"index;index:idx_user_sent"`
	CategoryID    string    `gorm:"not null;index"`
	PromptNumber  int       `gorm:"not null"`
	PromptText    string    `gorm:"not null"`
	EmailSentTo   string    `gorm:"not null"`
	FeedbackToken string    `gorm:"not null;default:''"`
	SentAt        time.Time `gorm:"not null;index:idx_user_sent"`
}
