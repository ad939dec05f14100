package callbacks

import (
	"time"

	"fulfillment/internal/core/domain/model/event"
)

// Outcome of one processed callback.
type Outcome string

// OutcomeRetry counts a failed attempt with attempts left. OutcomeReleased hands the
// row back without counting, as when the subject is locked or the run is cancelled.
const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeRetry     Outcome = "retry"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeReleased  Outcome = "released"
)

// Recorder receives delivery telemetry.
type Recorder interface {
	CallbacksClaimed(n int)
	CallbackProcessed(eventType event.Type, outcome Outcome, latency time.Duration)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) CallbacksClaimed(int) {}

func (NopRecorder) CallbackProcessed(event.Type, Outcome, time.Duration) {}
