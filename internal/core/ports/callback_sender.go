package ports

import (
	"context"
	"time"
)

// CallbackMessage is one HTTP POST to a tenant endpoint.
type CallbackMessage struct {
	URL string
	// APIKey is sent as bearer token and keys the body signature. Empty sends
	// neither.
	APIKey    string
	EventType string
	// CallbackID is empty for a one-off send outside the queue.
	CallbackID string
	// Attempt is 1-based.
	Attempt int
	// Body is the JSON shaped by the tenant's outbound schema.
	Body []byte
	// TenantID selects the throttling bucket.
	TenantID string
}

// CallbackResult describes a response that was received.
type CallbackResult struct {
	StatusCode int
	Latency    time.Duration
}

// CallbackSender performs a single delivery attempt. Transport errors and
// non-2xx responses are both returned as errors; the result carries the status
// code when a response arrived.
//
// Example:
//
//	result, err := sender.Send(ctx, ports.CallbackMessage{
//	    URL:       "https://erp.melody.jo/hooks",
//	    APIKey:    tenant.CallbackAPIKey(),
//	    EventType: "destination.completed",
//	    Attempt:   1,
//	    Body:      body,
//	    TenantID:  tenant.ID().String(),
//	})
//	if err != nil {
//	    // result.StatusCode is 0 when no response arrived
//	}
type CallbackSender interface {
	Send(ctx context.Context, msg CallbackMessage) (CallbackResult, error)
}

// EntityLocker serialises callback attempts per entity across workers.
type EntityLocker interface {
	// TryLock acquires key for ttl without waiting.
	//
	// Returns:
	//   - unlock: releases the key if it is still held by this caller; nil unless ok
	//   - ok: false when another holder has the key
	//   - err: the lock backend could not be asked
	//
	// Example:
	//
	//	unlock, ok, err := locker.TryLock(ctx, "callback:"+subjectID, time.Minute)
	//	if err != nil || !ok {
	//	    return err
	//	}
	//	defer func() { _ = unlock(ctx) }()
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}
