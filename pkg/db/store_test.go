package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := gdb.AutoMigrate(&PromptBankEntry{}, &UserScheduleProfile{}, &RotationCursor{}, &DeliveryRecord{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access underlying DB: %v", err)
	}
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	})
	return NewStore(gdb)
}

func TestSeedCursorsPreservesProgress(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.SeedCursors(ctx, 1, []string{"gratitude", "memories"}); err != nil {
		t.Fatalf("SeedCursors returned error: %v", err)
	}
	// Simulate committed progress on gratitude.
	if err := store.db.Model(&RotationCursor{}).
		Where("user_id = ? AND category_id = ?", 1, "gratitude").
		Update("current_prompt_number", 4).Error; err != nil {
		t.Fatalf("failed to advance cursor: %v", err)
	}

	// User drops gratitude; only memories gets reconciled.
	if err := store.SeedCursors(ctx, 1, []string{"memories"}); err != nil {
		t.Fatalf("SeedCursors returned error: %v", err)
	}
	// User re-adds gratitude later.
	if err := store.SeedCursors(ctx, 1, []string{"gratitude", "memories"}); err != nil {
		t.Fatalf("SeedCursors returned error: %v", err)
	}

	cursors, err := store.Cursors(ctx, 1)
	if err != nil {
		t.Fatalf("Cursors returned error: %v", err)
	}
	if cursors["gratitude"] != 4 {
		t.Fatalf("expected re-added category to resume at 4, got %v", cursors)
	}
	if cursors["memories"] != 1 {
		t.Fatalf("expected memories untouched at 1, got %v", cursors)
	}
}

func TestCommitDeliveryWritesLedgerCursorAndProfile(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	sentAt := time.Date(2025, 6, 9, 14, 0, 0, 0, time.UTC)

	profile := UserScheduleProfile{
		UserID:            1,
		NotificationEmail: "user@example.com",
		Categories:        datatypes.JSON(`["gratitude"]`),
		NotificationDays:  datatypes.JSON(`["monday"]`),
		NotificationTime:  "9:00 AM",
		Timezone:          "UTC",
	}
	if err := store.db.Create(&profile).Error; err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	if err := store.SeedCursors(ctx, 1, []string{"gratitude"}); err != nil {
		t.Fatalf("SeedCursors returned error: %v", err)
	}

	rec := DeliveryRecord{
		UserID:        1,
		CategoryID:    "gratitude",
		PromptNumber:  1,
		PromptText:    "g1",
		EmailSentTo:   "user@example.com",
		FeedbackToken: "tok",
		SentAt:        sentAt,
	}
	if err := store.CommitDelivery(ctx, rec, 2, 1); err != nil {
		t.Fatalf("CommitDelivery returned error: %v", err)
	}

	var count int64
	if err := store.db.Model(&DeliveryRecord{}).Where("user_id = ?", 1).Count(&count).Error; err != nil {
		t.Fatalf("failed to count records: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one ledger row, got %d", count)
	}

	cursors, err := store.Cursors(ctx, 1)
	if err != nil {
		t.Fatalf("Cursors returned error: %v", err)
	}
	if cursors["gratitude"] != 2 {
		t.Fatalf("expected cursor at 2, got %v", cursors)
	}

	var got UserScheduleProfile
	if err := store.db.Where("user_id = ?", 1).First(&got).Error; err != nil {
		t.Fatalf("failed to reload profile: %v", err)
	}
	if got.CurrentCategoryIndex != 1 {
		t.Fatalf("expected category index 1, got %d", got.CurrentCategoryIndex)
	}
	if got.LastPromptSentAt == nil || !got.LastPromptSentAt.Equal(sentAt) {
		t.Fatalf("expected last sent at %v, got %v", sentAt, got.LastPromptSentAt)
	}
}

func TestCommitDeliveryCreatesMissingCursor(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rec := DeliveryRecord{
		UserID:       7,
		CategoryID:   "creativity",
		PromptNumber: 1,
		PromptText:   "c1",
		EmailSentTo:  "user7@example.com",
		SentAt:       time.Now().UTC(),
	}
	if err := store.CommitDelivery(ctx, rec, 2, 0); err != nil {
		t.Fatalf("CommitDelivery returned error: %v", err)
	}
	cursors, err := store.Cursors(ctx, 7)
	if err != nil {
		t.Fatalf("Cursors returned error: %v", err)
	}
	if cursors["creativity"] != 2 {
		t.Fatalf("expected cursor created at 2, got %v", cursors)
	}
}

func TestSentBetween(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	sentAt := time.Date(2025, 6, 9, 14, 0, 0, 0, time.UTC)

	rec := DeliveryRecord{UserID: 1, CategoryID: "gratitude", PromptNumber: 1, PromptText: "g1", EmailSentTo: "a@b.c", SentAt: sentAt}
	if err := store.db.Create(&rec).Error; err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	dayStart := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	sent, err := store.SentBetween(ctx, 1, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("SentBetween returned error: %v", err)
	}
	if !sent {
		t.Fatal("expected record inside the day window")
	}

	sent, err = store.SentBetween(ctx, 1, dayStart.AddDate(0, 0, 1), dayStart.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("SentBetween returned error: %v", err)
	}
	if sent {
		t.Fatal("expected no record on the next day")
	}
}

func TestLookupPrompt(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entries := []PromptBankEntry{
		{CategoryID: "gratitude", PromptNumber: 1, CategoryName: "Gratitude", PromptText: "g1", IsActive: true},
		{CategoryID: "gratitude", PromptNumber: 2, CategoryName: "Gratitude", PromptText: "g2", IsActive: false},
	}
	if err := store.db.Create(&entries).Error; err != nil {
		t.Fatalf("failed to create prompts: %v", err)
	}

	entry, err := store.LookupPrompt(ctx, "gratitude", 1)
	if err != nil {
		t.Fatalf("LookupPrompt returned error: %v", err)
	}
	if entry.PromptText != "g1" {
		t.Fatalf("expected g1, got %+v", entry)
	}

	// Inactive rows are invisible to the rotation.
	if _, err := store.LookupPrompt(ctx, "gratitude", 2); !errors.Is(err, ErrPromptNotFound) {
		t.Fatalf("expected ErrPromptNotFound for inactive row, got %v", err)
	}
	if _, err := store.LookupPrompt(ctx, "gratitude", 3); !errors.Is(err, ErrPromptNotFound) {
		t.Fatalf("expected ErrPromptNotFound for missing row, got %v", err)
	}
}

func TestDueProfilesFiltersPaused(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	active := UserScheduleProfile{
		UserID:            1,
		NotificationEmail: "a@example.com",
		Categories:        datatypes.JSON(`["gratitude"]`),
		NotificationDays:  datatypes.JSON(`["monday"]`),
	}
	paused := UserScheduleProfile{
		UserID:            2,
		NotificationEmail: "b@example.com",
		Categories:        datatypes.JSON(`["gratitude"]`),
		NotificationDays:  datatypes.JSON(`[]`),
	}
	if err := store.db.Create(&active).Error; err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	if err := store.db.Create(&paused).Error; err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	profiles, err := store.DueProfiles(ctx)
	if err != nil {
		t.Fatalf("DueProfiles returned error: %v", err)
	}
	if len(profiles) != 1 || profiles[0].UserID != 1 {
		t.Fatalf("expected only the active profile, got %+v", profiles)
	}
}

func TestMigrateCursorShape(t *testing.T) {
	store := setupStore(t)

	createLegacy := `
CREATE TABLE user_rotations (
  user_id INTEGER PRIMARY KEY,
  cursor_gratitude INTEGER,
  cursor_memories INTEGER
)`
	if err := store.db.Exec(createLegacy).Error; err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}
	if err := store.db.Exec(`INSERT INTO user_rotations VALUES (1, 7, NULL), (2, 3, 2)`).Error; err != nil {
		t.Fatalf("failed to insert legacy rows: %v", err)
	}
	// User 1 already has a keyed row; migration must not clobber it.
	existing := RotationCursor{UserID: 1, CategoryID: "memories", CurrentPromptNumber: 9}
	if err := store.db.Create(&existing).Error; err != nil {
		t.Fatalf("failed to create existing cursor: %v", err)
	}

	if err := migrateCursorShape(store.db); err != nil {
		t.Fatalf("migrateCursorShape returned error: %v", err)
	}
	// Second run is a no-op.
	if err := migrateCursorShape(store.db); err != nil {
		t.Fatalf("repeat migrateCursorShape returned error: %v", err)
	}

	cursors1, err := store.Cursors(context.Background(), 1)
	if err != nil {
		t.Fatalf("Cursors returned error: %v", err)
	}
	if cursors1["gratitude"] != 7 {
		t.Fatalf("expected migrated gratitude cursor 7, got %v", cursors1)
	}
	if cursors1["memories"] != 9 {
		t.Fatalf("expected existing memories cursor preserved at 9, got %v", cursors1)
	}

	cursors2, err := store.Cursors(context.Background(), 2)
	if err != nil {
		t.Fatalf("Cursors returned error: %v", err)
	}
	if cursors2["gratitude"] != 3 || cursors2["memories"] != 2 {
		t.Fatalf("expected both cursors migrated for user 2, got %v", cursors2)
	}
}

func TestCheckCatalogGaps(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entries := []PromptBankEntry{
		{CategoryID: "gratitude", PromptNumber: 1, CategoryName: "Gratitude", PromptText: "g1", IsActive: true},
		{CategoryID: "gratitude", PromptNumber: 2, CategoryName: "Gratitude", PromptText: "g2", IsActive: true},
		{CategoryID: "gratitude", PromptNumber: 4, CategoryName: "Gratitude", PromptText: "g4", IsActive: true},
		{CategoryID: "memories", PromptNumber: 2, CategoryName: "Memories", PromptText: "m2", IsActive: true},
		{CategoryID: "creativity", PromptNumber: 1, CategoryName: "Creativity", PromptText: "c1", IsActive: true},
	}
	if err := store.db.Create(&entries).Error; err != nil {
		t.Fatalf("failed to create prompts: %v", err)
	}

	gaps, err := store.CheckCatalogGaps(ctx)
	if err != nil {
		t.Fatalf("CheckCatalogGaps returned error: %v", err)
	}
	if len(gaps) != 2 {
		t.Fatalf("expected two gaps, got %+v", gaps)
	}
	found := map[string]int{}
	for _, gap := range gaps {
		found[gap.CategoryID] = gap.MissingNumber
	}
	if found["gratitude"] != 3 {
		t.Fatalf("expected gratitude gap at 3, got %+v", gaps)
	}
	if found["memories"] != 1 {
		t.Fatalf("expected memories gap at 1, got %+v", gaps)
	}
}

func TestSeedPromptsIsIdempotent(t *testing.T) {
	store := setupStore(t)

	if err := SeedPrompts(store.db); err != nil {
		t.Fatalf("SeedPrompts returned error: %v", err)
	}
	var first int64
	if err := store.db.Model(&PromptBankEntry{}).Count(&first).Error; err != nil {
		t.Fatalf("failed to count prompts: %v", err)
	}
	if first == 0 {
		t.Fatal("expected starter prompts to be seeded")
	}

	if err := SeedPrompts(store.db); err != nil {
		t.Fatalf("repeat SeedPrompts returned error: %v", err)
	}
	var second int64
	if err := store.db.Model(&PromptBankEntry{}).Count(&second).Error; err != nil {
		t.Fatalf("failed to count prompts: %v", err)
	}
	if first != second {
		t.Fatalf("expected seeding to be a no-op on repeat, got %d then %d", first, second)
	}
}
