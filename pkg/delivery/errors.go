package delivery

import "errors"

// Per-user failure taxonomy. Everything here is isolated to the affected
// user; only collaborator-level failures (store unreachable, profiles
// unlistable) abort a cycle.
var (
	// ErrScheduleParse wraps malformed stored schedule data (time string,
	// timezone, day list). The user is treated as not-due until the data is
	// corrected.
	ErrScheduleParse = errors.New("schedule parse error")

	// ErrCatalogGap means no active prompt exists at the computed (category,
	// number): the sequence ran dry or has a hole. State is not advanced and
	// the same prompt is retried every cycle until an operator fixes the
	// catalog.
	ErrCatalogGap = errors.New("catalog gap")

	// ErrNotifier is a transient send failure. State stays untouched so the
	// next cycle retries the same prompt.
	ErrNotifier = errors.New("notifier error")

	// ErrStoreWrite is a commit failure after a confirmed send: the user got
	// an email but state didn't advance. The daily idempotency guard bounds
	// the damage to at most one duplicate.
	ErrStoreWrite = errors.New("store write error")
)
