// Package delivery ties the schedule matcher, the rotation advancer, the
// prompt catalog, and the notifier together into one per-cycle run. All
// collaborators are injected as interfaces so tests can substitute them.
package delivery

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/db"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/logger"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/schedule"
)

type ProfileStore interface {
	DueProfiles(ctx context.Context) ([]db.UserScheduleProfile, error)
	ProfileByUser(ctx context.Context, userID int64) (db.UserScheduleProfile, error)
}

type CursorStore interface {
	SeedCursors(ctx context.Context, userID int64, categories []string) error
	Cursors(ctx context.Context, userID int64) (map[string]int, error)
}

type Ledger interface {
	SentBetween(ctx context.Context, userID int64, start, end time.Time) (bool, error)
}

type Catalog interface {
	LookupPrompt(ctx context.Context, categoryID string, promptNumber int) (db.PromptBankEntry, error)
}

type Committer interface {
	CommitDelivery(ctx context.Context, rec db.DeliveryRecord, nextPromptNumber, nextCategoryIndex int) error
}

type Notifier interface {
	SendPrompt(ctx context.Context, email, categoryName, promptText string) (feedbackToken string, err error)
}

type Options struct {
	Workers           int
	NotifierPerSecond int
	CycleTimeout      time.Duration
	PerUserTimeout    time.Duration
}

func (o *Options) fillDefaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.NotifierPerSecond <= 0 {
		o.NotifierPerSecond = 2
	}
	if o.CycleTimeout <= 0 {
		o.CycleTimeout = 4 * time.Minute
	}
	if o.PerUserTimeout <= 0 {
		o.PerUserTimeout = 30 * time.Second
	}
}

type Orchestrator struct {
	profiles ProfileStore
	cursors  CursorStore
	ledger   Ledger
	catalog  Catalog
	commit   Committer
	notifier Notifier
	limiter  *rate.Limiter
	opts     Options
}

func NewOrchestrator(profiles ProfileStore, cursors CursorStore, ledger Ledger, catalog Catalog, commit Committer, notifier Notifier, opts Options) *Orchestrator {
	opts.fillDefaults()
	return &Orchestrator{
		profiles: profiles,
		cursors:  cursors,
		ledger:   ledger,
		catalog:  catalog,
		commit:   commit,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(opts.NotifierPerSecond), 1),
		opts:     opts,
	}
}

// RunCycle processes every eligible profile once for the given instant.
// Per-user processing runs concurrently under a bounded pool; notifier calls
// are throttled through a shared limiter. A user is either fully resolved to
// sent/skipped/failed or, if the cycle deadline hits first, left untouched
// for the next tick. One user's failure never aborts the others; only a
// failure to list profiles at all is returned as a cycle-level error.
func (o *Orchestrator) RunCycle(ctx context.Context, nowUTC time.Time) (CycleReport, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.CycleTimeout)
	defer cancel()

	builder := &reportBuilder{}
	builder.report.StartedAt = nowUTC

	profiles, err := o.profiles.DueProfiles(ctx)
	if err != nil {
		builder.report.FinishedAt = time.Now().UTC()
		return builder.report, fmt.Errorf("loading profiles: %w", err)
	}

	var group errgroup.Group
	group.SetLimit(o.opts.Workers)
	for _, profile := range profiles {
		if ctx.Err() != nil {
			// Deadline reached; remaining users are picked up next cycle.
			break
		}
		profile := profile
		group.Go(func() error {
			builder.add(o.processUser(ctx, profile, nowUTC))
			return nil
		})
	}
	_ = group.Wait()

	builder.report.FinishedAt = time.Now().UTC()
	logger.Info("delivery cycle finished",
		"sent", builder.report.Sent,
		"skipped", builder.report.Skipped,
		"failed", builder.report.Failed,
		"profiles", len(profiles))
	return builder.report, nil
}

// processUser resolves one profile for this cycle: due-check first, then the
// shared deliverNow tail that both the cycle and the backfill tool use.
func (o *Orchestrator) processUser(ctx context.Context, profile db.UserScheduleProfile, nowUTC time.Time) UserResult {
	ctx, cancel := context.WithTimeout(ctx, o.opts.PerUserTimeout)
	defer cancel()

	result := UserResult{UserID: profile.UserID}

	decision, err := schedule.IsDue(profile, nowUTC)
	if err != nil {
		// Bad stored data: not due this cycle, reported rather than dropped.
		logger.Error("unparseable schedule", "user_id", profile.UserID, "error", err)
		return skipped(result, fmt.Sprintf("%v: %v", ErrScheduleParse, err))
	}
	if !decision.Due {
		return skipped(result, "not due")
	}

	return o.deliverNow(ctx, profile, nowUTC, decision.LocalNow)
}

func skipped(result UserResult, reason string) UserResult {
	result.Outcome = OutcomeSkipped
	result.Reason = reason
	return result
}

func failed(result UserResult, kind error, detail string) UserResult {
	result.Outcome = OutcomeFailed
	result.Reason = fmt.Sprintf("%v: %s", kind, detail)
	return result
}
