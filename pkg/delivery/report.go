package delivery

import (
	"sync"
	"time"
)

type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

type UserResult struct {
	UserID       int64   `json:"user_id"`
	Outcome      Outcome `json:"outcome"`
	Reason       string  `json:"reason,omitempty"`
	CategoryID   string  `json:"category_id,omitempty"`
	PromptNumber int     `json:"prompt_number,omitempty"`
}

// CycleReport is returned to the trigger after every cycle and is what
// observability hangs off: counts plus a per-user outcome for every profile
// the cycle touched.
type CycleReport struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Sent       int          `json:"sent"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Results    []UserResult `json:"results"`
}

type reportBuilder struct {
	mu     sync.Mutex
	report CycleReport
}

func (b *reportBuilder) add(result UserResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch result.Outcome {
	case OutcomeSent:
		b.report.Sent++
	case OutcomeSkipped:
		b.report.Skipped++
	case OutcomeFailed:
		b.report.Failed++
	}
	b.report.Results = append(b.report.Results, result)
}
