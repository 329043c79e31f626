package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/db"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/logger"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/schedule"
)

// Backfill delivers one user's next prompt outside the normal trigger: the
// operator path for a missed day. It reuses the exact resolve/send/commit
// sequence of a cycle but skips the due-check; the daily idempotency guard
// and commit-after-success still apply, so it cannot double-send.
func (o *Orchestrator) Backfill(ctx context.Context, userID int64, nowUTC time.Time) (UserResult, error) {
	profile, err := o.profiles.ProfileByUser(ctx, userID)
	if err != nil {
		return UserResult{UserID: userID}, fmt.Errorf("loading profile for user %d: %w", userID, err)
	}

	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		return UserResult{UserID: userID}, fmt.Errorf("%w: invalid timezone %q", ErrScheduleParse, profile.Timezone)
	}

	result := o.deliverNow(ctx, profile, nowUTC, nowUTC.In(loc))
	logger.Info("backfill finished", "user_id", userID, "outcome", result.Outcome, "reason", result.Reason)
	return result, nil
}

// deliverNow is the shared resolve/send/commit tail used by Backfill. It
// assumes due-ness has already been settled by the caller.
func (o *Orchestrator) deliverNow(ctx context.Context, profile db.UserScheduleProfile, nowUTC, localNow time.Time) UserResult {
	result := UserResult{UserID: profile.UserID}

	categories, err := schedule.RotationCategories(profile)
	if err != nil {
		return failed(result, ErrScheduleParse, "malformed category list")
	}
	if len(categories) == 0 {
		return skipped(result, "no categories selected")
	}
	if err := o.cursors.SeedCursors(ctx, profile.UserID, categories); err != nil {
		return failed(result, ErrStoreWrite, "seeding cursors")
	}

	dayStart, dayEnd := schedule.LocalDayBounds(localNow)
	alreadySent, err := o.ledger.SentBetween(ctx, profile.UserID, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return failed(result, ErrStoreWrite, "querying ledger")
	}
	if alreadySent {
		return skipped(result, "already sent today")
	}

	cursors, err := o.cursors.Cursors(ctx, profile.UserID)
	if err != nil {
		return failed(result, ErrStoreWrite, "loading cursors")
	}
	selection, err := schedule.NextPrompt(cursors, categories, profile.CurrentCategoryIndex)
	if err != nil {
		return skipped(result, err.Error())
	}
	result.CategoryID = selection.CategoryID
	result.PromptNumber = selection.PromptNumber
	if profile.ActiveChallenge != "" {
		selection.NextCategoryIndex = profile.CurrentCategoryIndex
	}

	entry, err := o.catalog.LookupPrompt(ctx, selection.CategoryID, selection.PromptNumber)
	if err != nil {
		if errors.Is(err, db.ErrPromptNotFound) {
			logger.Error("rotation hit a catalog gap",
				"user_id", profile.UserID,
				"category_id", selection.CategoryID,
				"prompt_number", selection.PromptNumber)
			return failed(result, ErrCatalogGap, fmt.Sprintf("no active prompt at %s #%d", selection.CategoryID, selection.PromptNumber))
		}
		return failed(result, ErrStoreWrite, "looking up prompt")
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return failed(result, ErrNotifier, "deadline before send")
	}
	token, err := o.notifier.SendPrompt(ctx, profile.NotificationEmail, entry.CategoryName, entry.PromptText)
	if err != nil {
		logger.Error("failed to send prompt", "user_id", profile.UserID, "error", err)
		return failed(result, ErrNotifier, err.Error())
	}

	rec := db.DeliveryRecord{
		UserID:        profile.UserID,
		CategoryID:    entry.CategoryID,
		PromptNumber:  entry.PromptNumber,
		PromptText:    entry.PromptText,
		EmailSentTo:   profile.NotificationEmail,
		FeedbackToken: token,
		SentAt:        nowUTC,
	}
	if err := o.commit.CommitDelivery(ctx, rec, selection.NextPromptNumber, selection.NextCategoryIndex); err != nil {
		logger.Error("commit failed after confirmed send",
			"user_id", profile.UserID,
			"category_id", entry.CategoryID,
			"prompt_number", entry.PromptNumber,
			"error", err)
		return failed(result, ErrStoreWrite, "commit after send")
	}

	result.Outcome = OutcomeSent
	return result
}
