package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultCallbackSchedule polls the callback queue every second.
const DefaultCallbackSchedule = "* * * * * *"

// CallbackProcessor works one batch of due callbacks and reports how many it
// claimed.
type CallbackProcessor interface {
	ProcessDue(ctx context.Context) (int, error)
}

// CallbackDeliveryJob polls the callback queue on a cron schedule. A run that
// is still busy when the next tick fires makes that tick a no-op.
type CallbackDeliveryJob struct {
	processor CallbackProcessor
	schedule  string
	batchSize int
	cron      *cron.Cron
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewCallbackDeliveryJob drains the queue on each tick: while a batch comes
// back full it claims the next one straight away.
func NewCallbackDeliveryJob(
	processor CallbackProcessor,
	schedule string,
	batchSize int,
	logger *slog.Logger,
) *CallbackDeliveryJob {
	if schedule == "" {
		schedule = DefaultCallbackSchedule
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CallbackDeliveryJob{
		processor: processor,
		schedule:  schedule,
		batchSize: batchSize,
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:    logger.With("component", "callback_delivery_job"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules Run on the job's own context and starts the cron runner.
// An invalid schedule is returned before anything runs.
func (j *CallbackDeliveryJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.Run(j.ctx) }); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(j.ctx, "Callback delivery job started", "schedule", j.schedule)
	return nil
}

// Run processes batches until the queue has nothing due or ctx ends.
func (j *CallbackDeliveryJob) Run(ctx context.Context) {
	for ctx.Err() == nil {
		claimed, err := j.processor.ProcessDue(ctx)
		if err != nil {
			j.logger.ErrorContext(ctx, "Callback delivery job failed", "error", err)
			return
		}
		if claimed == 0 || claimed < j.batchSize {
			return
		}
	}
}

// Stop cancels the running batch and waits for it to return. Attempts cut short
// by the cancellation are saved back as pending without counting; rows the batch
// never reached stay leased until their lease runs out.
func (j *CallbackDeliveryJob) Stop() {
	j.cancel()
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Callback delivery job stopped")
}
