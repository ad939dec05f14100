package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/tenant"
	"fulfillment/internal/core/domain/model/trip"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"
)

// DeliveryRequestRepository implements ports.DeliveryRequestRepository.
type DeliveryRequestRepository struct {
	view view
}

// Add stores a copy of the request. An external id already used by the tenant is
// a ConflictError wrapping ErrDuplicateKey, like the unique index in Postgres.
func (r *DeliveryRequestRepository) Add(_ context.Context, aggregate *delivery.DeliveryRequest) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	row, err := cloneRequest(aggregate)
	if err != nil {
		return err
	}

	return r.view.write(func(current, target *tables) error {
		id := row.ID().String()
		if _, ok := current.requests[id]; ok {
			return fmt.Errorf("%w: delivery request %s", ErrDuplicateKey, id)
		}
		taken := externalIDsOf(current, row.TenantID())
		for _, externalID := range row.ExternalIDs() {
			if _, ok := taken[externalID]; ok {
				return errs.NewConflictError("destination", "external_id",
					fmt.Errorf("%w: external id %s", ErrDuplicateKey, externalID))
			}
		}
		target.requests[id] = row
		return nil
	})
}

func (r *DeliveryRequestRepository) Update(_ context.Context, aggregate *delivery.DeliveryRequest) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	row, err := cloneRequest(aggregate)
	if err != nil {
		return err
	}

	return r.view.write(func(current, target *tables) error {
		id := row.ID().String()
		if _, ok := current.requests[id]; !ok {
			return errs.NewObjectNotFoundError("requestId", id)
		}
		target.requests[id] = row
		return nil
	})
}

// Get returns a copy; changes reach the store only through Update.
func (r *DeliveryRequestRepository) Get(_ context.Context, id kernel.UUID) (*delivery.DeliveryRequest, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var found *delivery.DeliveryRequest
	r.view.read(func(t *tables) {
		found = t.requests[id.String()]
	})
	if found == nil {
		return nil, errs.NewObjectNotFoundError("requestId", id.String())
	}
	return cloneRequest(found)
}

// GetForUpdate is Get: transactions are already serialised by the store.
func (r *DeliveryRequestRepository) GetForUpdate(ctx context.Context, id kernel.UUID) (*delivery.DeliveryRequest, error) {
	return r.Get(ctx, id)
}

func (r *DeliveryRequestRepository) GetByDestination(
	_ context.Context,
	destinationID kernel.UUID,
) (*delivery.DeliveryRequest, error) {
	if err := destinationID.Validate(); err != nil {
		return nil, err
	}

	var found *delivery.DeliveryRequest
	r.view.read(func(t *tables) {
		for _, req := range t.requests {
			if _, err := req.Destination(destinationID); err == nil {
				found = req
				return
			}
		}
	})
	if found == nil {
		return nil, errs.NewObjectNotFoundError("destinationId", destinationID.String())
	}
	return cloneRequest(found)
}

// FindByExternalIDs returns copies of the tenant's requests holding any of
// externalIDs, oldest first.
func (r *DeliveryRequestRepository) FindByExternalIDs(
	_ context.Context,
	tenantID kernel.UUID,
	externalIDs []string,
) ([]*delivery.DeliveryRequest, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	var matched []*delivery.DeliveryRequest
	r.view.read(func(t *tables) {
		for _, req := range t.requests {
			if !req.TenantID().IsEqual(tenantID) {
				continue
			}
			if slices.ContainsFunc(req.ExternalIDs(), func(id string) bool {
				return slices.Contains(externalIDs, id)
			}) {
				matched = append(matched, req)
			}
		}
	})
	slices.SortFunc(matched, func(a, b *delivery.DeliveryRequest) int {
		return a.CreatedAt().Compare(b.CreatedAt())
	})

	requests := make([]*delivery.DeliveryRequest, 0, len(matched))
	for _, req := range matched {
		c, err := cloneRequest(req)
		if err != nil {
			return nil, err
		}
		requests = append(requests, c)
	}
	return requests, nil
}

func externalIDsOf(t *tables, tenantID kernel.UUID) map[string]struct{} {
	ids := map[string]struct{}{}
	for _, req := range t.requests {
		if !req.TenantID().IsEqual(tenantID) {
			continue
		}
		for _, id := range req.ExternalIDs() {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// TripRepository implements ports.TripRepository.
type TripRepository struct {
	view view
}

// Add rejects a second active trip for the same request with ErrDuplicateKey.
func (r *TripRepository) Add(_ context.Context, aggregate *trip.Trip) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	row, err := cloneTrip(aggregate)
	if err != nil {
		return err
	}

	return r.view.write(func(current, target *tables) error {
		id := row.ID().String()
		if _, ok := current.trips[id]; ok {
			return fmt.Errorf("%w: trip %s", ErrDuplicateKey, id)
		}
		if row.Status().IsActive() && activeTrip(current, row.RequestID()) != nil {
			return fmt.Errorf("%w: active trip for request %s", ErrDuplicateKey, row.RequestID())
		}
		target.trips[id] = row
		return nil
	})
}

func (r *TripRepository) Update(_ context.Context, aggregate *trip.Trip) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	row, err := cloneTrip(aggregate)
	if err != nil {
		return err
	}

	return r.view.write(func(current, target *tables) error {
		id := row.ID().String()
		if _, ok := current.trips[id]; !ok {
			return errs.NewObjectNotFoundError("tripId", id)
		}
		target.trips[id] = row
		return nil
	})
}

func (r *TripRepository) Get(_ context.Context, id kernel.UUID) (*trip.Trip, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var found *trip.Trip
	r.view.read(func(t *tables) {
		found = t.trips[id.String()]
	})
	if found == nil {
		return nil, errs.NewObjectNotFoundError("tripId", id.String())
	}
	return cloneTrip(found)
}

func (r *TripRepository) GetForUpdate(ctx context.Context, id kernel.UUID) (*trip.Trip, error) {
	return r.Get(ctx, id)
}

// ListByRequest returns the request's trips, most recently assigned first.
func (r *TripRepository) ListByRequest(_ context.Context, requestID kernel.UUID) ([]*trip.Trip, error) {
	if err := requestID.Validate(); err != nil {
		return nil, err
	}

	var matched []*trip.Trip
	r.view.read(func(t *tables) {
		for _, tr := range t.trips {
			if tr.RequestID().IsEqual(requestID) {
				matched = append(matched, tr)
			}
		}
	})
	slices.SortFunc(matched, func(a, b *trip.Trip) int {
		return b.Timeline().AssignedAt.Compare(a.Timeline().AssignedAt)
	})

	trips := make([]*trip.Trip, 0, len(matched))
	for _, tr := range matched {
		c, err := cloneTrip(tr)
		if err != nil {
			return nil, err
		}
		trips = append(trips, c)
	}
	return trips, nil
}

func (r *TripRepository) GetActiveByRequest(_ context.Context, requestID kernel.UUID) (*trip.Trip, error) {
	if err := requestID.Validate(); err != nil {
		return nil, err
	}

	var found *trip.Trip
	r.view.read(func(t *tables) {
		found = activeTrip(t, requestID)
	})
	if found == nil {
		return nil, errs.NewObjectNotFoundError("activeTrip", requestID.String())
	}
	return cloneTrip(found)
}

func activeTrip(t *tables, requestID kernel.UUID) *trip.Trip {
	for _, tr := range t.trips {
		if tr.RequestID().IsEqual(requestID) && tr.Status().IsActive() {
			return tr
		}
	}
	return nil
}

// TenantRepository implements ports.TenantRepository.
type TenantRepository struct {
	view view
}

func (r *TenantRepository) Add(_ context.Context, aggregate *tenant.Tenant) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	row, err := cloneTenant(aggregate)
	if err != nil {
		return err
	}

	return r.view.write(func(current, target *tables) error {
		id := row.ID().String()
		if _, ok := current.tenants[id]; ok {
			return fmt.Errorf("%w: tenant %s", ErrDuplicateKey, id)
		}
		if tenantByKeyHash(current, row.APIKeyHash()) != nil {
			return fmt.Errorf("%w: api key", ErrDuplicateKey)
		}
		target.tenants[id] = row
		return nil
	})
}

func (r *TenantRepository) Update(_ context.Context, aggregate *tenant.Tenant) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	row, err := cloneTenant(aggregate)
	if err != nil {
		return err
	}

	return r.view.write(func(current, target *tables) error {
		id := row.ID().String()
		if _, ok := current.tenants[id]; !ok {
			return errs.NewObjectNotFoundError("tenantId", id)
		}
		if other := tenantByKeyHash(current, row.APIKeyHash()); other != nil && !other.ID().IsEqual(row.ID()) {
			return fmt.Errorf("%w: api key", ErrDuplicateKey)
		}
		target.tenants[id] = row
		return nil
	})
}

func (r *TenantRepository) Get(_ context.Context, id kernel.UUID) (*tenant.Tenant, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var found *tenant.Tenant
	r.view.read(func(t *tables) {
		found = t.tenants[id.String()]
	})
	if found == nil {
		return nil, errs.NewObjectNotFoundError("tenantId", id.String())
	}
	return cloneTenant(found)
}

// GetByAPIKeyHash finds the tenant whose stored key hash equals hash.
func (r *TenantRepository) GetByAPIKeyHash(_ context.Context, hash string) (*tenant.Tenant, error) {
	if hash == "" {
		return nil, errs.NewValueIsRequiredError("apiKey")
	}

	var found *tenant.Tenant
	r.view.read(func(t *tables) {
		found = tenantByKeyHash(t, hash)
	})
	if found == nil {
		return nil, errs.NewObjectNotFoundError("apiKey", "***")
	}
	return cloneTenant(found)
}

func tenantByKeyHash(t *tables, hash string) *tenant.Tenant {
	for _, tn := range t.tenants {
		if tn.APIKeyHash() == hash {
			return tn
		}
	}
	return nil
}

// CallbackRepository implements ports.CallbackRepository.
type CallbackRepository struct {
	view view
}

func (r *CallbackRepository) Add(_ context.Context, aggregate *callback.Callback) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	row, err := cloneCallback(aggregate)
	if err != nil {
		return err
	}

	return r.view.write(func(current, target *tables) error {
		id := row.ID().String()
		if _, ok := current.callbacks[id]; ok {
			return fmt.Errorf("%w: callback %s", ErrDuplicateKey, id)
		}
		target.callbacks[id] = row
		return nil
	})
}

func (r *CallbackRepository) Update(_ context.Context, aggregate *callback.Callback) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	row, err := cloneCallback(aggregate)
	if err != nil {
		return err
	}

	return r.view.write(func(current, target *tables) error {
		id := row.ID().String()
		if _, ok := current.callbacks[id]; !ok {
			return errs.NewObjectNotFoundError("callbackId", id)
		}
		target.callbacks[id] = row
		return nil
	})
}

func (r *CallbackRepository) Get(_ context.Context, id kernel.UUID) (*callback.Callback, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var found *callback.Callback
	r.view.read(func(t *tables) {
		found = t.callbacks[id.String()]
	})
	if found == nil {
		return nil, errs.NewObjectNotFoundError("callbackId", id.String())
	}
	return cloneCallback(found)
}

// ClaimDue leases due callbacks oldest first. The claim and the lookup happen
// under one lock, so concurrent pollers never receive the same callback.
// Callbacks whose lost leases used up their attempts come back as StatusFailed.
func (r *CallbackRepository) ClaimDue(
	_ context.Context,
	now time.Time,
	lease time.Duration,
	limit int,
) ([]*callback.Callback, error) {
	if limit <= 0 {
		return nil, errs.NewValueIsInvalidError("limit")
	}

	var claimed []*callback.Callback
	err := r.view.write(func(current, target *tables) error {
		var due []*callback.Callback
		for _, cb := range current.callbacks {
			if cb.IsDue(now) {
				due = append(due, cb)
			}
		}
		slices.SortFunc(due, func(a, b *callback.Callback) int {
			return cmp.Or(
				a.NextAttemptAt().Compare(b.NextAttemptAt()),
				cmp.Compare(a.ID().String(), b.ID().String()),
			)
		})
		if len(due) > limit {
			due = due[:limit]
		}

		for _, cb := range due {
			row, err := cloneCallback(cb)
			if err != nil {
				return err
			}
			if err := row.Claim(now, lease); err != nil {
				return err
			}
			target.callbacks[row.ID().String()] = row

			out, err := cloneCallback(row)
			if err != nil {
				return err
			}
			claimed = append(claimed, out)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim callbacks: %w", err)
	}

	return claimed, nil
}

func (r *CallbackRepository) List(_ context.Context, filter ports.CallbackFilter) ([]*callback.Callback, error) {
	var matched []*callback.Callback
	r.view.read(func(t *tables) {
		for _, cb := range t.callbacks {
			if filter.Status != callback.StatusUnknown && cb.Status() != filter.Status {
				continue
			}
			if filter.TenantID != nil && !cb.TenantID().IsEqual(*filter.TenantID) {
				continue
			}
			if filter.SubjectID != nil && !cb.SubjectID().IsEqual(*filter.SubjectID) {
				continue
			}
			matched = append(matched, cb)
		}
	})
	slices.SortFunc(matched, func(a, b *callback.Callback) int {
		return cmp.Or(
			b.CreatedAt().Compare(a.CreatedAt()),
			cmp.Compare(a.ID().String(), b.ID().String()),
		)
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	callbacks := make([]*callback.Callback, 0, len(matched))
	for _, cb := range matched {
		c, err := cloneCallback(cb)
		if err != nil {
			return nil, err
		}
		callbacks = append(callbacks, c)
	}
	return callbacks, nil
}
