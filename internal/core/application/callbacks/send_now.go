package callbacks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/event"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"
)

// SendNowResult reports a single synchronous attempt. A failed attempt is a
// result, not an error: nothing is queued or retried.
type SendNowResult struct {
	EventType  event.Type
	Delivered  bool
	StatusCode int
	Latency    time.Duration
	Error      string
}

// SendNow posts the current state of a terminal destination once. Errors are
// returned for unknown destinations, destinations that are not terminal yet and
// tenants without a callback target.
func (d *Deliverer) SendNow(ctx context.Context, destinationID kernel.UUID) (SendNowResult, error) {
	if err := destinationID.Validate(); err != nil {
		return SendNowResult{}, errs.NewValueIsRequiredErrorWithCause("destination_id", err)
	}

	repos := d.repos.Create()
	request, err := repos.DeliveryRequestRepository().GetByDestination(ctx, destinationID)
	if err != nil {
		return SendNowResult{}, err
	}
	dest, err := request.Destination(destinationID)
	if err != nil {
		return SendNowResult{}, err
	}

	var eventType event.Type
	switch dest.Status() {
	case delivery.DestinationCompleted:
		eventType = event.DestinationCompleted
	case delivery.DestinationFailed:
		eventType = event.DestinationFailed
	default:
		return SendNowResult{}, errs.NewInvalidStateError(
			"destination", destinationID.String(), dest.Status().String(), "send a callback for",
		)
	}

	tenant, err := repos.TenantRepository().Get(ctx, request.TenantID())
	if err != nil {
		return SendNowResult{}, err
	}
	target, s, err := tenant.CallbackTarget(request.CallbackURL())
	if err != nil {
		return SendNowResult{}, err
	}
	payload, err := d.builder.Destination(eventType, dest, s)
	if err != nil {
		return SendNowResult{}, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return SendNowResult{}, fmt.Errorf("encode callback body: %w", err)
	}

	result, sendErr := d.sender.Send(ctx, ports.CallbackMessage{
		URL:       target,
		APIKey:    tenant.CallbackAPIKey(),
		EventType: eventType.String(),
		Attempt:   1,
		Body:      body,
		TenantID:  tenant.ID().String(),
	})

	out := SendNowResult{
		EventType:  eventType,
		Delivered:  sendErr == nil,
		StatusCode: result.StatusCode,
		Latency:    result.Latency,
	}
	if sendErr != nil {
		out.Error = sendErr.Error()
		d.logger.InfoContext(ctx, "Manual callback failed",
			"destination_id", destinationID.String(), "error", sendErr)
	}
	return out, nil
}
