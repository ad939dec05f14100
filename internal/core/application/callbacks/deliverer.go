package callbacks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/event"
	"fulfillment/internal/core/domain/model/schema"
	"fulfillment/internal/core/domain/services"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/clock"
	"fulfillment/internal/pkg/errs"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize      = 50
	DefaultConcurrency    = 8
	DefaultLease          = 2 * time.Minute
	DefaultLockRetryDelay = 5 * time.Second
)

// Config tunes a Deliverer. Zero values fall back to the defaults above.
// Lease must outlive the sender timeout so a slow attempt is not claimed twice.
type Config struct {
	BatchSize      int
	Concurrency    int
	Lease          time.Duration
	LockRetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Lease <= 0 {
		c.Lease = DefaultLease
	}
	if c.LockRetryDelay <= 0 {
		c.LockRetryDelay = DefaultLockRetryDelay
	}
	return c
}

// Deliverer works the callback queue.
//
// Example:
//
//	d := NewDeliverer(repos, sender, locker, clock.System{}, NopRecorder{}, logger, Config{})
//	claimed, err := d.ProcessDue(ctx)
type Deliverer struct {
	repos    RepositoriesFactory
	sender   ports.CallbackSender
	locker   ports.EntityLocker
	builder  services.PayloadBuilder
	clock    clock.Clock
	recorder Recorder
	logger   *slog.Logger
	cfg      Config
}

// NewDeliverer fills zero Config fields with the defaults. A nil recorder discards telemetry.
func NewDeliverer(
	repos RepositoriesFactory,
	sender ports.CallbackSender,
	locker ports.EntityLocker,
	clk clock.Clock,
	recorder Recorder,
	logger *slog.Logger,
	cfg Config,
) *Deliverer {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Deliverer{
		repos:    repos,
		sender:   sender,
		locker:   locker,
		builder:  services.NewPayloadBuilder(),
		clock:    clk,
		recorder: recorder,
		logger:   logger.With("component", "callback_deliverer"),
		cfg:      cfg.withDefaults(),
	}
}

// ProcessDue claims one batch of due callbacks and works them with bounded
// concurrency.
//
// Returns:
//   - how many rows were claimed, including those failed on claim because lost
//     leases used up their attempts
//   - the first error met while persisting an outcome
//
// Outcomes are saved with a context that outlives ctx, so a cancelled run still
// records what it did. Attempts interrupted by ctx are handed back uncounted.
//
// Example:
//
//	for {
//	    n, err := d.ProcessDue(ctx)
//	    if err != nil || n < batchSize {
//	        break
//	    }
//	}
func (d *Deliverer) ProcessDue(ctx context.Context) (int, error) {
	repos := d.repos.Create()
	claimed, err := repos.CallbackRepository().ClaimDue(ctx, d.clock.Now(), d.cfg.Lease, d.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due callbacks: %w", err)
	}
	d.recorder.CallbacksClaimed(len(claimed))

	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)
	for _, cb := range claimed {
		if cb.Status() == callback.StatusFailed {
			d.reportPermanentFailure(ctx, cb, 0, errors.New(cb.LastError()))
			d.recorder.CallbackProcessed(cb.EventType(), OutcomeFailed, 0)
			continue
		}
		g.Go(func() error {
			return d.process(ctx, repos, cb)
		})
	}
	return len(claimed), g.Wait()
}

func (d *Deliverer) process(ctx context.Context, repos Repositories, cb *callback.Callback) error {
	log := d.logger.With(
		"callback_id", cb.ID().String(),
		"event", cb.EventType().String(),
		"subject_id", cb.SubjectID().String(),
	)
	saveCtx := context.WithoutCancel(ctx)

	if ctx.Err() != nil {
		return d.release(saveCtx, repos, cb)
	}

	unlock, ok, err := d.locker.TryLock(ctx, lockKey(cb), d.cfg.Lease)
	switch {
	case err != nil && ctx.Err() != nil:
		return d.release(saveCtx, repos, cb)
	case err != nil:
		log.WarnContext(ctx, "Callback lock unavailable", "error", err)
		return d.fail(saveCtx, repos, cb, 0, 0, fmt.Errorf("lock subject: %w", err))
	case !ok:
		return d.release(saveCtx, repos, cb)
	}
	defer func() {
		if err := unlock(saveCtx); err != nil {
			log.WarnContext(ctx, "Callback unlock failed", "error", err)
		}
	}()

	msg, err := d.message(ctx, repos, cb)
	switch {
	case errors.Is(err, errs.ErrConfiguration), errors.Is(err, errs.ErrObjectNotFound):
		log.WarnContext(ctx, "Callback skipped", "reason", err)
		if err := cb.Skip(err.Error(), d.clock.Now()); err != nil {
			return err
		}
		d.recorder.CallbackProcessed(cb.EventType(), OutcomeSkipped, 0)
		return d.save(saveCtx, repos, cb)
	case err != nil && ctx.Err() != nil:
		return d.release(saveCtx, repos, cb)
	case err != nil:
		log.WarnContext(ctx, "Callback body could not be built", "error", err)
		return d.fail(saveCtx, repos, cb, 0, 0, fmt.Errorf("build callback: %w", err))
	}

	result, sendErr := d.sender.Send(ctx, msg)
	if sendErr != nil && ctx.Err() != nil {
		log.InfoContext(ctx, "Callback attempt interrupted", "error", sendErr)
		return d.release(saveCtx, repos, cb)
	}
	if sendErr != nil {
		return d.fail(saveCtx, repos, cb, result.StatusCode, result.Latency, sendErr)
	}

	if err := cb.RecordDelivered(result.StatusCode, d.clock.Now()); err != nil {
		return err
	}
	d.recorder.CallbackProcessed(cb.EventType(), OutcomeDelivered, result.Latency)
	log.DebugContext(ctx, "Callback delivered", "status_code", result.StatusCode, "attempt", cb.Attempts())
	return d.save(saveCtx, repos, cb)
}

// fail counts a failed attempt, schedules the retry or fails the callback for good.
func (d *Deliverer) fail(
	ctx context.Context,
	repos Repositories,
	cb *callback.Callback,
	statusCode int,
	latency time.Duration,
	cause error,
) error {
	permanent, err := cb.RecordFailure(cause.Error(), statusCode, d.clock.Now())
	if err != nil {
		return err
	}
	if permanent {
		d.reportPermanentFailure(ctx, cb, statusCode, cause)
		d.recorder.CallbackProcessed(cb.EventType(), OutcomeFailed, latency)
	} else {
		d.logger.InfoContext(ctx, "Callback attempt failed",
			"callback_id", cb.ID().String(),
			"event", cb.EventType().String(),
			"attempts", cb.Attempts(),
			"next_attempt_at", cb.NextAttemptAt(),
			"error", cause,
		)
		d.recorder.CallbackProcessed(cb.EventType(), OutcomeRetry, latency)
	}
	return d.save(ctx, repos, cb)
}

func (d *Deliverer) reportPermanentFailure(ctx context.Context, cb *callback.Callback, statusCode int, cause error) {
	d.logger.ErrorContext(ctx, "Callback permanently failed",
		"callback_id", cb.ID().String(),
		"event", cb.EventType().String(),
		"subject_id", cb.SubjectID().String(),
		"tenant_id", cb.TenantID().String(),
		"attempts", cb.Attempts(),
		"status_code", statusCode,
		"error", cause,
	)
}

func (d *Deliverer) release(ctx context.Context, repos Repositories, cb *callback.Callback) error {
	now := d.clock.Now()
	if err := cb.Release(now.Add(d.cfg.LockRetryDelay), now); err != nil {
		return err
	}
	d.recorder.CallbackProcessed(cb.EventType(), OutcomeReleased, 0)
	return d.save(ctx, repos, cb)
}

func (d *Deliverer) save(ctx context.Context, repos Repositories, cb *callback.Callback) error {
	if err := repos.CallbackRepository().Update(ctx, cb); err != nil {
		return fmt.Errorf("save callback %s: %w", cb.ID(), err)
	}
	return nil
}

// message re-loads the subject and renders the request body.
func (d *Deliverer) message(ctx context.Context, repos Repositories, cb *callback.Callback) (ports.CallbackMessage, error) {
	request, err := repos.DeliveryRequestRepository().Get(ctx, cb.RequestID())
	if err != nil {
		return ports.CallbackMessage{}, err
	}
	tenant, err := repos.TenantRepository().Get(ctx, cb.TenantID())
	if err != nil {
		return ports.CallbackMessage{}, err
	}
	target, s, err := tenant.CallbackTarget(request.CallbackURL())
	if err != nil {
		return ports.CallbackMessage{}, err
	}

	var payload map[string]any
	switch cb.SubjectKind() {
	case event.SubjectTrip:
		t, err := repos.TripRepository().Get(ctx, cb.SubjectID())
		if err != nil {
			return ports.CallbackMessage{}, err
		}
		payload, err = d.builder.TripSummary(t, request, s)
		if err != nil {
			return ports.CallbackMessage{}, err
		}
	default:
		payload, err = d.destinationPayload(request, cb, s)
		if err != nil {
			return ports.CallbackMessage{}, err
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ports.CallbackMessage{}, fmt.Errorf("encode callback body: %w", err)
	}
	return ports.CallbackMessage{
		URL:        target,
		APIKey:     tenant.CallbackAPIKey(),
		EventType:  cb.EventType().String(),
		CallbackID: cb.ID().String(),
		Attempt:    cb.Attempts() + 1,
		Body:       body,
		TenantID:   tenant.ID().String(),
	}, nil
}

func (d *Deliverer) destinationPayload(
	request *delivery.DeliveryRequest,
	cb *callback.Callback,
	s schema.Schema,
) (map[string]any, error) {
	dest, err := request.Destination(cb.SubjectID())
	if err != nil {
		return nil, err
	}
	return d.builder.Destination(cb.EventType(), dest, s)
}

func lockKey(cb *callback.Callback) string {
	return "callback:" + cb.SubjectID().String()
}
