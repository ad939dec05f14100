package callbacks_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"fulfillment/internal/core/application/callbacks"
	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/event"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completedDestination(t *testing.T, f *fixture, callbackURL string, withSchema bool) (*callback.Callback, *delivery.Destination) {
	t.Helper()
	tn := newTenant(t, callbackURL, withSchema)
	request, _ := newStartedRequest(t, tn, "MELO-001", "MELO-002")
	dest := request.Destinations()[0]
	require.NoError(t, request.CompleteDestination(dest.ID(), delivery.Completion{
		RecipientName: "Lina",
		CompletedAt:   now,
	}))

	cb := claimed(t, event.New(event.DestinationCompleted, tn.ID(), request.ID(), dest.ID(), now))
	f.repos.requests.On("Get", mock.Anything, request.ID()).Return(request, nil).Once()
	f.repos.tenants.On("Get", mock.Anything, tn.ID()).Return(tn, nil).Once()
	return cb, dest
}

func TestDeliverer_ProcessDue(t *testing.T) {
	ctx := context.Background()
	lease := callbacks.DefaultLease

	t.Run("delivers_a_destination_callback", func(t *testing.T) {
		// Given
		f := newFixture()
		cb, dest := completedDestination(t, f, "https://erp.melody.jo/hooks", true)
		f.repos.callbacks.On("ClaimDue", ctx, now, lease, callbacks.DefaultBatchSize).
			Return([]*callback.Callback{cb}, nil).Once()
		f.locker.On("TryLock", ctx, "callback:"+dest.ID().String(), lease).Return(true, nil).Once()

		var sent ports.CallbackMessage
		f.sender.On("Send", ctx, mock.AnythingOfType("ports.CallbackMessage")).
			Run(func(args mock.Arguments) { sent = args.Get(1).(ports.CallbackMessage) }).
			Return(ports.CallbackResult{StatusCode: 204, Latency: 40 * time.Millisecond}, nil).Once()
		f.repos.callbacks.On("Update", mock.Anything, cb).Return(nil).Once()
		f.recorder.On("CallbacksClaimed", 1).Once()
		f.recorder.On("CallbackProcessed", event.DestinationCompleted, callbacks.OutcomeDelivered, 40*time.Millisecond).Once()

		// When
		n, err := f.deliverer(callbacks.Config{}).ProcessDue(ctx)

		// Then
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, callback.StatusDelivered, cb.Status())
		assert.Equal(t, 1, cb.Attempts())

		assert.Equal(t, "https://erp.melody.jo/hooks", sent.URL)
		assert.Equal(t, "cb-secret", sent.APIKey)
		assert.Equal(t, "destination.completed", sent.EventType)
		assert.Equal(t, 1, sent.Attempt)
		assert.Equal(t, cb.ID().String(), sent.CallbackID)

		var body map[string]any
		require.NoError(t, json.Unmarshal(sent.Body, &body))
		assert.Equal(t, map[string]any{
			"order_id": "MELO-001",
			"state":    "completed",
			"event":    "destination.completed",
		}, body)
		f.assert(t)
	})

	t.Run("schedules_a_retry_on_failure", func(t *testing.T) {
		f := newFixture()
		cb, dest := completedDestination(t, f, "https://erp.melody.jo/hooks", true)
		f.repos.callbacks.On("ClaimDue", ctx, now, lease, 10).Return([]*callback.Callback{cb}, nil).Once()
		f.locker.On("TryLock", ctx, "callback:"+dest.ID().String(), lease).Return(true, nil).Once()
		f.sender.On("Send", ctx, mock.Anything).
			Return(ports.CallbackResult{StatusCode: 503}, errors.New("unexpected status 503")).Once()
		f.repos.callbacks.On("Update", mock.Anything, cb).Return(nil).Once()
		f.recorder.On("CallbacksClaimed", 1).Once()
		f.recorder.On("CallbackProcessed", event.DestinationCompleted, callbacks.OutcomeRetry, time.Duration(0)).Once()

		_, err := f.deliverer(callbacks.Config{BatchSize: 10}).ProcessDue(ctx)

		require.NoError(t, err)
		assert.Equal(t, callback.StatusPending, cb.Status())
		assert.Equal(t, 1, cb.Attempts())
		assert.Equal(t, 503, cb.LastStatusCode())
		assert.Equal(t, now.Add(10*time.Second), cb.NextAttemptAt())
		f.assert(t)
	})

	t.Run("fails_permanently_after_the_last_attempt", func(t *testing.T) {
		f := newFixture()
		fresh, dest := completedDestination(t, f, "https://erp.melody.jo/hooks", true)
		until := now.Add(lease)
		cb, err := callback.RestoreCallback(
			fresh.ID(), fresh.TenantID(), fresh.RequestID(), fresh.SubjectID(), fresh.EventType(),
			callback.State{
				Status:         callback.StatusInFlight,
				Attempts:       callback.MaxAttempts - 1,
				NextAttemptAt:  now,
				LeaseExpiresAt: &until,
				CreatedAt:      now,
				UpdatedAt:      now,
			},
		)
		require.NoError(t, err)

		f.repos.callbacks.On("ClaimDue", ctx, now, lease, callbacks.DefaultBatchSize).
			Return([]*callback.Callback{cb}, nil).Once()
		f.locker.On("TryLock", ctx, "callback:"+dest.ID().String(), lease).Return(true, nil).Once()
		f.sender.On("Send", ctx, mock.MatchedBy(func(msg ports.CallbackMessage) bool {
			return msg.Attempt == callback.MaxAttempts
		})).Return(ports.CallbackResult{}, errors.New("connection refused")).Once()
		f.repos.callbacks.On("Update", mock.Anything, cb).Return(nil).Once()
		f.recorder.On("CallbacksClaimed", 1).Once()
		f.recorder.On("CallbackProcessed", event.DestinationCompleted, callbacks.OutcomeFailed, time.Duration(0)).Once()

		_, err = f.deliverer(callbacks.Config{}).ProcessDue(ctx)

		require.NoError(t, err)
		assert.Equal(t, callback.StatusFailed, cb.Status())
		assert.Equal(t, callback.MaxAttempts, cb.Attempts())
		assert.Equal(t, "connection refused", cb.LastError())
		f.assert(t)
	})

	t.Run("skips_when_callback_url_is_missing", func(t *testing.T) {
		f := newFixture()
		cb, dest := completedDestination(t, f, "", true)
		f.repos.callbacks.On("ClaimDue", ctx, now, lease, callbacks.DefaultBatchSize).
			Return([]*callback.Callback{cb}, nil).Once()
		f.locker.On("TryLock", ctx, "callback:"+dest.ID().String(), lease).Return(true, nil).Once()
		f.repos.callbacks.On("Update", mock.Anything, cb).Return(nil).Once()
		f.recorder.On("CallbacksClaimed", 1).Once()
		f.recorder.On("CallbackProcessed", event.DestinationCompleted, callbacks.OutcomeSkipped, time.Duration(0)).Once()

		_, err := f.deliverer(callbacks.Config{}).ProcessDue(ctx)

		require.NoError(t, err)
		assert.Equal(t, callback.StatusSkipped, cb.Status())
		assert.Equal(t, 0, cb.Attempts())
		assert.Contains(t, cb.LastError(), "callback_url")
		f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		f.assert(t)
	})

	t.Run("skips_when_schema_is_missing", func(t *testing.T) {
		f := newFixture()
		cb, dest := completedDestination(t, f, "https://erp.melody.jo/hooks", false)
		f.repos.callbacks.On("ClaimDue", ctx, now, lease, callbacks.DefaultBatchSize).
			Return([]*callback.Callback{cb}, nil).Once()
		f.locker.On("TryLock", ctx, "callback:"+dest.ID().String(), lease).Return(true, nil).Once()
		f.repos.callbacks.On("Update", mock.Anything, cb).Return(nil).Once()
		f.recorder.On("CallbacksClaimed", 1).Once()
		f.recorder.On("CallbackProcessed", event.DestinationCompleted, callbacks.OutcomeSkipped, time.Duration(0)).Once()

		_, err := f.deliverer(callbacks.Config{}).ProcessDue(ctx)

		require.NoError(t, err)
		assert.Equal(t, callback.StatusSkipped, cb.Status())
		assert.Contains(t, cb.LastError(), "schema")
		f.assert(t)
	})

	t.Run("releases_when_subject_is_locked", func(t *testing.T) {
		f := newFixture()
		tn := newTenant(t, "https://erp.melody.jo/hooks", true)
		subject := kernel.NewUUID()
		cb := claimed(t, event.New(event.DestinationCompleted, tn.ID(), kernel.NewUUID(), subject, now))

		f.repos.callbacks.On("ClaimDue", ctx, now, lease, callbacks.DefaultBatchSize).
			Return([]*callback.Callback{cb}, nil).Once()
		f.locker.On("TryLock", ctx, "callback:"+subject.String(), lease).Return(false, nil).Once()
		f.repos.callbacks.On("Update", mock.Anything, cb).Return(nil).Once()
		f.recorder.On("CallbacksClaimed", 1).Once()
		f.recorder.On("CallbackProcessed", event.DestinationCompleted, callbacks.OutcomeReleased, time.Duration(0)).Once()

		_, err := f.deliverer(callbacks.Config{}).ProcessDue(ctx)

		require.NoError(t, err)
		assert.Equal(t, callback.StatusPending, cb.Status())
		assert.Equal(t, 0, cb.Attempts())
		assert.Equal(t, now.Add(callbacks.DefaultLockRetryDelay), cb.NextAttemptAt())
		f.assert(t)
	})

	t.Run("counts_an_attempt_when_the_body_cannot_be_built", func(t *testing.T) {
		f := newFixture()
		tn := newTenant(t, "https://erp.melody.jo/hooks", true)
		requestID, subject := kernel.NewUUID(), kernel.NewUUID()
		cb := claimed(t, event.New(event.DestinationCompleted, tn.ID(), requestID, subject, now))

		f.repos.callbacks.On("ClaimDue", ctx, now, lease, callbacks.DefaultBatchSize).
			Return([]*callback.Callback{cb}, nil).Once()
		f.locker.On("TryLock", ctx, "callback:"+subject.String(), lease).Return(true, nil).Once()
		f.repos.requests.On("Get", ctx, requestID).Return(nil, errors.New("pq: canceling statement due to statement timeout")).Once()
		f.repos.callbacks.On("Update", mock.Anything, cb).Return(nil).Once()
		f.recorder.On("CallbacksClaimed", 1).Once()
		f.recorder.On("CallbackProcessed", event.DestinationCompleted, callbacks.OutcomeRetry, time.Duration(0)).Once()

		_, err := f.deliverer(callbacks.Config{}).ProcessDue(ctx)

		require.NoError(t, err)
		assert.Equal(t, callback.StatusPending, cb.Status())
		assert.Equal(t, 1, cb.Attempts())
		assert.Contains(t, cb.LastError(), "statement timeout")
		assert.Equal(t, now.Add(10*time.Second), cb.NextAttemptAt())
		f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		f.assert(t)
	})

	t.Run("body_errors_exhaust_attempts", func(t *testing.T) {
		f := newFixture()
		tn := newTenant(t, "https://erp.melody.jo/hooks", true)
		requestID, subject := kernel.NewUUID(), kernel.NewUUID()
		cb := claimed(t, event.New(event.DestinationCompleted, tn.ID(), requestID, subject, now))

		f.repos.callbacks.On("ClaimDue", ctx, mock.Anything, lease, callbacks.DefaultBatchSize).
			Return([]*callback.Callback{cb}, nil).Times(callback.MaxAttempts)
		f.locker.On("TryLock", ctx, "callback:"+subject.String(), lease).Return(true, nil).Times(callback.MaxAttempts)
		f.repos.requests.On("Get", ctx, requestID).Return(nil, errors.New("decode destinations: unexpected end of JSON input")).Times(callback.MaxAttempts)
		f.repos.callbacks.On("Update", mock.Anything, cb).Return(nil).Times(callback.MaxAttempts)
		f.recorder.On("CallbacksClaimed", 1).Times(callback.MaxAttempts)
		f.recorder.On("CallbackProcessed", event.DestinationCompleted, callbacks.OutcomeRetry, time.Duration(0)).Times(callback.MaxAttempts - 1)
		f.recorder.On("CallbackProcessed", event.DestinationCompleted, callbacks.OutcomeFailed, time.Duration(0)).Once()

		d := f.deliverer(callbacks.Config{})
		for i := 0; i < callback.MaxAttempts; i++ {
			_, err := d.ProcessDue(ctx)
			require.NoError(t, err)
			if cb.Status() == callback.StatusPending {
				f.clock.Set(cb.NextAttemptAt())
				require.NoError(t, cb.Claim(cb.NextAttemptAt(), lease))
			}
		}

		assert.Equal(t, callback.StatusFailed, cb.Status())
		assert.Equal(t, callback.MaxAttempts, cb.Attempts())
		f.assert(t)
	})

	t.Run("counts_an_attempt_when_the_lock_backend_fails", func(t *testing.T) {
		f := newFixture()
		tn := newTenant(t, "https://erp.melody.jo/hooks", true)
		subject := kernel.NewUUID()
		cb := claimed(t, event.New(event.DestinationCompleted, tn.ID(), kernel.NewUUID(), subject, now))

		f.repos.callbacks.On("ClaimDue", ctx, now, lease, callbacks.DefaultBatchSize).
			Return([]*callback.Callback{cb}, nil).Once()
		f.locker.On("TryLock", ctx, "callback:"+subject.String(), lease).
			Return(false, errors.New("dial tcp 10.0.0.7:6379: connect: connection refused")).Once()
		f.repos.callbacks.On("Update", mock.Anything, cb).Return(nil).Once()
		f.recorder.On("CallbacksClaimed", 1).Once()
		f.recorder.On("CallbackProcessed", event.DestinationCompleted, callbacks.OutcomeRetry, time.Duration(0)).Once()

		_, err := f.deliverer(callbacks.Config{}).ProcessDue(ctx)

		require.NoError(t, err)
		assert.Equal(t, callback.StatusPending, cb.Status())
		assert.Equal(t, 1, cb.Attempts())
		assert.Contains(t, cb.LastError(), "lock subject")
		f.assert(t)
	})

	t.Run("releases_an_attempt_interrupted_by_shutdown", func(t *testing.T) {
		f := newFixture()
		cb, dest := completedDestination(t, f, "https://erp.melody.jo/hooks", true)
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		f.repos.callbacks.On("ClaimDue", runCtx, now, lease, callbacks.DefaultBatchSize).
			Return([]*callback.Callback{cb}, nil).Once()
		f.locker.On("TryLock", runCtx, "callback:"+dest.ID().String(), lease).Return(true, nil).Once()
		f.sender.On("Send", runCtx, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(ports.CallbackResult{}, context.Canceled).Once()

		var saveErr error
		f.repos.callbacks.On("Update", mock.Anything, cb).
			Run(func(args mock.Arguments) { saveErr = args.Get(0).(context.Context).Err() }).
			Return(nil).Once()
		f.recorder.On("CallbacksClaimed", 1).Once()
		f.recorder.On("CallbackProcessed", event.DestinationCompleted, callbacks.OutcomeReleased, time.Duration(0)).Once()

		_, err := f.deliverer(callbacks.Config{}).ProcessDue(runCtx)

		require.NoError(t, err)
		require.NoError(t, saveErr)
		assert.Equal(t, callback.StatusPending, cb.Status())
		assert.Equal(t, 0, cb.Attempts())
		assert.Equal(t, now.Add(callbacks.DefaultLockRetryDelay), cb.NextAttemptAt())
		f.assert(t)
	})

	t.Run("reports_callbacks_failed_by_lost_leases", func(t *testing.T) {
		f := newFixture()
		tn := newTenant(t, "https://erp.melody.jo/hooks", true)
		cb, err := callback.NewCallback(kernel.NewUUID(),
			event.New(event.DestinationFailed, tn.ID(), kernel.NewUUID(), kernel.NewUUID(), now), now)
		require.NoError(t, err)
		at := now
		for cb.Status() != callback.StatusFailed {
			require.NoError(t, cb.Claim(at, lease))
			at = at.Add(lease)
		}

		f.repos.callbacks.On("ClaimDue", ctx, now, lease, callbacks.DefaultBatchSize).
			Return([]*callback.Callback{cb}, nil).Once()
		f.recorder.On("CallbacksClaimed", 1).Once()
		f.recorder.On("CallbackProcessed", event.DestinationFailed, callbacks.OutcomeFailed, time.Duration(0)).Once()

		n, err := f.deliverer(callbacks.Config{}).ProcessDue(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, callback.MaxAttempts, cb.Attempts())
		assert.Equal(t, callback.LeaseExpiredError, cb.LastError())
		f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		f.locker.AssertNotCalled(t, "TryLock", mock.Anything, mock.Anything, mock.Anything)
		f.assert(t)
	})

	t.Run("sends_the_trip_summary", func(t *testing.T) {
		f := newFixture()
		tn := newTenant(t, "https://erp.melody.jo/hooks", true)
		request, tr := newStartedRequest(t, tn, "MELO-001", "MELO-002")
		ds := request.Destinations()
		require.NoError(t, request.CompleteDestination(ds[0].ID(), delivery.Completion{CompletedAt: now}))
		require.NoError(t, request.FailDestination(ds[1].ID(), delivery.Failure{Reason: delivery.FailureRefused, FailedAt: now}))
		require.NoError(t, tr.Complete(request, 18.4, nil, now))

		cb := claimed(t, event.New(event.TripCompleted, tn.ID(), request.ID(), tr.ID(), now))
		f.repos.callbacks.On("ClaimDue", ctx, now, lease, callbacks.DefaultBatchSize).
			Return([]*callback.Callback{cb}, nil).Once()
		f.locker.On("TryLock", ctx, "callback:"+tr.ID().String(), lease).Return(true, nil).Once()
		f.repos.requests.On("Get", ctx, request.ID()).Return(request, nil).Once()
		f.repos.tenants.On("Get", ctx, tn.ID()).Return(tn, nil).Once()
		f.repos.trips.On("Get", ctx, tr.ID()).Return(tr, nil).Once()

		var body map[string]any
		f.sender.On("Send", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				msg := args.Get(1).(ports.CallbackMessage)
				_ = json.Unmarshal(msg.Body, &body)
			}).
			Return(ports.CallbackResult{StatusCode: 200}, nil).Once()
		f.repos.callbacks.On("Update", mock.Anything, cb).Return(nil).Once()
		f.recorder.On("CallbacksClaimed", 1).Once()
		f.recorder.On("CallbackProcessed", event.TripCompleted, callbacks.OutcomeDelivered, time.Duration(0)).Once()

		_, err := f.deliverer(callbacks.Config{}).ProcessDue(ctx)

		require.NoError(t, err)
		assert.Equal(t, request.ID().String(), body["delivery_request_id"])
		assert.Equal(t, tr.ID().String(), body["trip_id"])
		assert.InDelta(t, 18.4, body["total_km"], 1e-9)
		assert.InDelta(t, 1, body["completed_count"], 0)
		assert.InDelta(t, 1, body["failed_count"], 0)
		assert.Len(t, body["destinations"], 2)
		f.assert(t)
	})

	t.Run("returns_claim_errors", func(t *testing.T) {
		f := newFixture()
		f.repos.callbacks.On("ClaimDue", ctx, now, lease, callbacks.DefaultBatchSize).
			Return(nil, errors.New("db down")).Once()

		_, err := f.deliverer(callbacks.Config{}).ProcessDue(ctx)

		require.ErrorContains(t, err, "claim due callbacks")
		f.assert(t)
	})

	t.Run("nothing_due", func(t *testing.T) {
		f := newFixture()
		f.repos.callbacks.On("ClaimDue", ctx, now, lease, callbacks.DefaultBatchSize).
			Return([]*callback.Callback{}, nil).Once()
		f.recorder.On("CallbacksClaimed", 0).Once()

		n, err := f.deliverer(callbacks.Config{}).ProcessDue(ctx)

		require.NoError(t, err)
		assert.Zero(t, n)
		f.assert(t)
	})
}

func TestDeliverer_SendNow(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, f *fixture, complete bool) kernel.UUID {
		t.Helper()
		tn := newTenant(t, "https://erp.melody.jo/hooks", true)
		request, _ := newStartedRequest(t, tn, "MELO-001")
		dest := request.Destinations()[0]
		if complete {
			require.NoError(t, request.FailDestination(dest.ID(), delivery.Failure{
				Reason:   delivery.FailureWrongAddress,
				FailedAt: now,
			}))
			f.repos.tenants.On("Get", ctx, tn.ID()).Return(tn, nil).Once()
		}
		f.repos.requests.On("GetByDestination", ctx, dest.ID()).Return(request, nil).Once()
		return dest.ID()
	}

	t.Run("delivers_once_without_queueing", func(t *testing.T) {
		f := newFixture()
		destID := setup(t, f, true)
		f.sender.On("Send", ctx, mock.MatchedBy(func(msg ports.CallbackMessage) bool {
			return msg.EventType == "destination.failed" && msg.Attempt == 1 && msg.CallbackID == ""
		})).Return(ports.CallbackResult{StatusCode: 200, Latency: time.Millisecond}, nil).Once()

		res, err := f.deliverer(callbacks.Config{}).SendNow(ctx, destID)

		require.NoError(t, err)
		assert.True(t, res.Delivered)
		assert.Equal(t, 200, res.StatusCode)
		assert.Equal(t, event.DestinationFailed, res.EventType)
		f.assert(t)
	})

	t.Run("reports_a_failed_attempt", func(t *testing.T) {
		f := newFixture()
		destID := setup(t, f, true)
		f.sender.On("Send", ctx, mock.Anything).
			Return(ports.CallbackResult{StatusCode: 500}, errors.New("unexpected status 500")).Once()

		res, err := f.deliverer(callbacks.Config{}).SendNow(ctx, destID)

		require.NoError(t, err)
		assert.False(t, res.Delivered)
		assert.Equal(t, 500, res.StatusCode)
		assert.Equal(t, "unexpected status 500", res.Error)
		f.assert(t)
	})

	t.Run("rejects_a_pending_destination", func(t *testing.T) {
		f := newFixture()
		destID := setup(t, f, false)

		_, err := f.deliverer(callbacks.Config{}).SendNow(ctx, destID)

		require.ErrorIs(t, err, errs.ErrInvalidState)
		f.assert(t)
	})

	t.Run("unknown_destination", func(t *testing.T) {
		f := newFixture()
		id := kernel.NewUUID()
		f.repos.requests.On("GetByDestination", ctx, id).
			Return(nil, errs.NewObjectNotFoundError("destinationId", id)).Once()

		_, err := f.deliverer(callbacks.Config{}).SendNow(ctx, id)

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
		f.assert(t)
	})
}
