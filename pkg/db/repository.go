// pkg/db/repository.go
package db

import (
	"errors"
	"strconv"

	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/config"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Export DB variable
var DB *gorm.DB

// ErrPromptNotFound is returned by prompt lookups when no active catalog row
// exists at the requested (category, number).
var ErrPromptNotFound = errors.New("prompt not found")

func InitDB(cfg config.DatabaseConfig) error {
	var err error
	dsn := "host=" + cfg.Host +
		" user=" + cfg.User +
		" password=" + cfg.Password +
		" dbname=" + cfg.DBName +
		" port=" + strconv.Itoa(cfg.Port) +
		" sslmode=" + cfg.SSLMode
	gormLogger, gormErr := newGormLogger(config.AppConfig.Logging.GormLevel)
	if gormErr != nil {
		logger.Error("invalid gorm log level", "value", config.AppConfig.Logging.GormLevel, "error", gormErr)
	}
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return err
	}
	if err := DB.AutoMigrate(&PromptBankEntry{}, &UserScheduleProfile{}, &RotationCursor{}, &DeliveryRecord{}); err != nil {
		logger.Error("failed to auto-migrate database", "error", err)
		return err
	}
	if err := migrateCursorShape(DB); err != nil {
		logger.Error("failed to migrate legacy rotation cursors", "error", err)
		return err
	}
	return nil
}

// Category ids the legacy wide rotation table carried one column per. The old
// schema stored one row per user with a cursor_<category> column for each.
var legacyCursorCategories = []string{
	"gratitude",
	"self_discovery",
	"relationships",
	"career_goals",
	"creativity",
	"health_wellness",
	"memories",
	"dreams_goals",
}

// migrateCursorShape folds the legacy wide per-user rotation table into keyed
// rotation_cursors rows. Safe to run repeatedly; already-migrated pairs are
// left alone so an advanced cursor is never reset.
func migrateCursorShape(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	migrator := db.Migrator()
	if !migrator.HasTable("user_rotations") {
		return nil
	}
	for _, category := range legacyCursorCategories {
		column := "cursor_" + category
		if !migrator.HasColumn("user_rotations", column) {
			continue
		}
		query := `
INSERT INTO rotation_cursors (user_id, category_id, current_prompt_number)
SELECT ur.user_id, ?, ur.` + column + `
FROM user_rotations ur
WHERE ur.` + column + ` IS NOT NULL
  AND ur.` + column + ` >= 1
  AND NOT EXISTS (
    SELECT 1 FROM rotation_cursors rc
    WHERE rc.user_id = ur.user_id AND rc.category_id = ?
  )
`
		if err := db.Exec(query, category, category).Error; err != nil {
			return err
		}
	}
	return nil
}
