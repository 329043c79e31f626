package schedule

import (
	"errors"

	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/db"
)

var ErrNoCategories = errors.New("no categories to rotate")

// Selection is the outcome of one rotation step: the prompt to send now and
// the state to commit once — and only once — the delivery succeeds.
type Selection struct {
	CategoryID        string
	PromptNumber      int
	NextPromptNumber  int
	NextCategoryIndex int
}

// NextPrompt computes the due prompt for a user without writing anything.
// The active index is taken modulo the current category list, so an index
// left stale by a category removal still lands on a valid category, and the
// rotation continues over whatever remains.
func NextPrompt(cursors map[string]int, categories []string, activeIndex int) (Selection, error) {
	if len(categories) == 0 {
		return Selection{}, ErrNoCategories
	}
	if activeIndex < 0 {
		activeIndex = 0
	}
	index := activeIndex % len(categories)
	category := categories[index]

	number, ok := cursors[category]
	if !ok || number < 1 {
		// First-ever send for this category.
		number = 1
	}

	return Selection{
		CategoryID:        category,
		PromptNumber:      number,
		NextPromptNumber:  number + 1,
		NextCategoryIndex: (index + 1) % len(categories),
	}, nil
}

// RotationCategories resolves the list a user's rotation runs over. A profile
// with an active challenge is pinned to that single category; the regular
// list takes over again once the challenge is cleared.
func RotationCategories(profile db.UserScheduleProfile) ([]string, error) {
	if profile.ActiveChallenge != "" {
		return []string{profile.ActiveChallenge}, nil
	}
	return profile.CategoryList()
}
