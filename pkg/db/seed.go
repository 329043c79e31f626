// pkg/db/seed.go
package db

import (
	"gorm.io/gorm"
)

// Starter catalog for fresh installs. The production catalog is maintained
// operationally; these rows only make a new database usable end to end.
var starterPrompts = []PromptBankEntry{
	{CategoryID: "gratitude", PromptNumber: 1, CategoryName: "Gratitude", PromptText: "Write about three small things from today that you're grateful for, and why each one mattered.", IsActive: true},
	{CategoryID: "gratitude", PromptNumber: 2, CategoryName: "Gratitude", PromptText: "Who is someone you've never properly thanked? Write the thank-you note you'd send them.", IsActive: true},
	{CategoryID: "gratitude", PromptNumber: 3, CategoryName: "Gratitude", PromptText: "Describe an ordinary object you use every day as if you might lose it tomorrow.", IsActive: true},
	{CategoryID: "self_discovery", PromptNumber: 1, CategoryName: "Self Discovery", PromptText: "What's a belief you held strongly five years ago that you've since changed your mind about?", IsActive: true},
	{CategoryID: "self_discovery", PromptNumber: 2, CategoryName: "Self Discovery", PromptText: "When do you feel most like yourself? Describe the last time you felt that way.", IsActive: true},
	{CategoryID: "relationships", PromptNumber: 1, CategoryName: "Relationships", PromptText: "Write about a friendship that shaped who you are. What did it teach you?", IsActive: true},
	{CategoryID: "relationships", PromptNumber: 2, CategoryName: "Relationships", PromptText: "What's a conversation you've been putting off? Write out how you'd want it to go.", IsActive: true},
	{CategoryID: "career_goals", PromptNumber: 1, CategoryName: "Career Goals", PromptText: "If money weren't a factor, what work would you do? What part of that is possible now?", IsActive: true},
	{CategoryID: "creativity", PromptNumber: 1, CategoryName: "Creativity", PromptText: "Describe your day so far from the point of view of your coffee mug.", IsActive: true},
	{CategoryID: "health_wellness", PromptNumber: 1, CategoryName: "Health & Wellness", PromptText: "What does rest actually look like for you? When did you last get it?", IsActive: true},
	{CategoryID: "memories", PromptNumber: 1, CategoryName: "Memories", PromptText: "Write about a smell that instantly takes you somewhere else. Where does it take you?", IsActive: true},
	{CategoryID: "dreams_goals", PromptNumber: 1, CategoryName: "Dreams & Goals", PromptText: "What's one thing you want to be true about your life a year from today?", IsActive: true},
}

// SeedPrompts populates the prompt catalog on a fresh database. It is a
// no-op when any catalog rows already exist.
func SeedPrompts(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	var count int64
	if err := gdb.Model(&PromptBankEntry{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	prompts := make([]PromptBankEntry, len(starterPrompts))
	copy(prompts, starterPrompts)
	return gdb.Create(&prompts).Error
}
