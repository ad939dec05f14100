package delivery

import (
	"errors"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/schema"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

// ErrDestinationIsNotConstructed is returned by Validate for a Destination built
// without NewDestination or RestoreDestination.
var ErrDestinationIsNotConstructed = errors.New("Destination must be created via NewDestination constructor")

// DestinationData is the canonical form of one submitted stop. Tenant payloads are
// mapped into it through the inbound schema; the outbound schema maps it back.
// Items is passed through untouched.
type DestinationData struct {
	ExternalID   string
	Address      string
	Coordinates  kernel.Coordinates
	ContactName  string
	ContactPhone string
	Notes        string
	Items        []any
}

// DestinationDataFromRecord converts a transformed tenant record. Required fields
// are checked first so the caller sees every missing one at once.
func DestinationDataFromRecord(rec schema.Record) (DestinationData, error) {
	if err := rec.Validate(schema.RequiredInboundFields()); err != nil {
		return DestinationData{}, err
	}

	lat, latErr := rec.Float(schema.FieldLat)
	lng, lngErr := rec.Float(schema.FieldLng)
	if err := errors.Join(latErr, lngErr); err != nil {
		return DestinationData{}, err
	}
	coords, err := kernel.NewCoordinates(lat, lng)
	if err != nil {
		return DestinationData{}, err
	}

	var items []any
	switch v := rec[schema.FieldItems].(type) {
	case nil:
	case []any:
		items = v
	default:
		return DestinationData{}, errs.NewValueIsInvalidError(string(schema.FieldItems))
	}

	return DestinationData{
		ExternalID:   rec.String(schema.FieldExternalID),
		Address:      rec.String(schema.FieldAddress),
		Coordinates:  coords,
		ContactName:  rec.String(schema.FieldContactName),
		ContactPhone: rec.String(schema.FieldContactPhone),
		Notes:        rec.String(schema.FieldNotes),
		Items:        items,
	}, nil
}

// Arrival records when and where the driver reached the stop.
type Arrival struct {
	At          time.Time
	Coordinates *kernel.Coordinates
}

// Completion is the proof of delivery captured by the driver.
type Completion struct {
	RecipientName string
	Notes         string
	SignatureRef  string
	PhotoRefs     []string
	CompletedAt   time.Time
}

// Failure is the record of an undeliverable stop.
type Failure struct {
	Reason   FailureReason
	Notes    string
	FailedAt time.Time
}

// Destination is a single stop owned by a DeliveryRequest.
type Destination struct {
	id         kernel.UUID
	data       DestinationData
	status     DestinationStatus
	arrival    *Arrival
	completion *Completion
	failure    *Failure
	guard      guard.ConstructorGuard
}

// NewDestination creates a pending stop.
//
// Parameters:
//   - id: identifier of the stop
//   - data: canonical stop data; external_id, address and valid coordinates are
//     required
//
// Returns every missing or invalid field, joined.
//
// Example:
//
//	coords, err := kernel.NewCoordinates(31.9539, 35.9106)
//	if err != nil {
//	    return err
//	}
//	stop, err := delivery.NewDestination(kernel.NewUUID(), delivery.DestinationData{
//	    ExternalID:   "MELO-001",
//	    Address:      "Rainbow St 12, Amman",
//	    Coordinates:  coords,
//	    ContactPhone: "+962790000000",
//	})
func NewDestination(id kernel.UUID, data DestinationData) (*Destination, error) {
	d := &Destination{
		status: DestinationPending,
		guard:  guard.NewConstructorGuard(),
	}

	if err := errors.Join(d.setID(id), d.setData(data)); err != nil {
		return nil, err
	}

	return d, nil
}

// RestoreDestination rebuilds a stop from storage. The status must agree with the
// completion and failure records.
func RestoreDestination(
	id kernel.UUID,
	data DestinationData,
	status DestinationStatus,
	arrival *Arrival,
	completion *Completion,
	failure *Failure,
) (*Destination, error) {
	d := &Destination{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(d.setID(id), d.setData(data), status.Validate()); err != nil {
		return nil, err
	}
	if (status == DestinationCompleted) != (completion != nil) {
		return nil, errs.NewValueIsInvalidError("completion")
	}
	if (status == DestinationFailed) != (failure != nil) {
		return nil, errs.NewValueIsInvalidError("failure")
	}

	d.status = status
	d.arrival = arrival
	d.completion = completion
	d.failure = failure
	return d, nil
}

// Validate reports ErrDestinationIsNotConstructed for a nil or zero-value stop.
func (d *Destination) Validate() error {
	if d == nil {
		return ErrDestinationIsNotConstructed
	}
	return d.guard.Validate(ErrDestinationIsNotConstructed)
}

func (d *Destination) ID() kernel.UUID {
	return d.id
}

// ExternalID returns the tenant's identifier for the stop, unique per tenant.
func (d *Destination) ExternalID() string {
	return d.data.ExternalID
}

// Data returns the canonical stop data as last submitted.
func (d *Destination) Data() DestinationData {
	return d.data
}

func (d *Destination) Status() DestinationStatus {
	return d.status
}

// IsTerminal reports whether the stop is completed or failed.
func (d *Destination) IsTerminal() bool {
	return d.status.IsTerminal()
}

// Arrival returns the latest arrival report, nil if the driver never sent one.
func (d *Destination) Arrival() *Arrival {
	return d.arrival
}

// Completion returns the proof of delivery, nil unless the stop is completed.
func (d *Destination) Completion() *Completion {
	return d.completion
}

// Failure returns the failure record, nil unless the stop failed.
func (d *Destination) Failure() *Failure {
	return d.failure
}

func (d *Destination) Coordinates() kernel.Coordinates {
	return d.data.Coordinates
}

// Snapshot is the canonical record handed to the outbound transformer.
func (d *Destination) Snapshot() schema.Record {
	rec := schema.Record{
		schema.FieldExternalID:    d.data.ExternalID,
		schema.FieldStatus:        d.status.String(),
		schema.FieldNotes:         nilIfEmpty(d.data.Notes),
		schema.FieldItems:         d.data.Items,
		schema.FieldArrivedAt:     nil,
		schema.FieldCompletedAt:   nil,
		schema.FieldRecipientName: nil,
		schema.FieldSignatureRef:  nil,
		schema.FieldPhotoRefs:     nil,
		schema.FieldFailureReason: nil,
		schema.FieldFailureNotes:  nil,
		schema.FieldFailedAt:      nil,
	}

	if d.arrival != nil {
		rec[schema.FieldArrivedAt] = formatTime(d.arrival.At)
	}
	if c := d.completion; c != nil {
		rec[schema.FieldCompletedAt] = formatTime(c.CompletedAt)
		rec[schema.FieldRecipientName] = nilIfEmpty(c.RecipientName)
		rec[schema.FieldSignatureRef] = nilIfEmpty(c.SignatureRef)
		rec[schema.FieldPhotoRefs] = c.PhotoRefs
		if c.Notes != "" {
			rec[schema.FieldNotes] = c.Notes
		}
	}
	if f := d.failure; f != nil {
		rec[schema.FieldFailureReason] = f.Reason.String()
		rec[schema.FieldFailureNotes] = nilIfEmpty(f.Notes)
		rec[schema.FieldFailedAt] = formatTime(f.FailedAt)
	}

	return rec
}

func (d *Destination) arrive(at time.Time, coords *kernel.Coordinates) error {
	next, err := d.status.Arrive()
	if err != nil {
		return d.stateError("arrive at")
	}
	if coords != nil {
		if err := coords.Validate(); err != nil {
			return err
		}
	}

	d.status = next
	d.arrival = &Arrival{At: at, Coordinates: coords}
	return nil
}

func (d *Destination) complete(c Completion) error {
	next, err := d.status.Complete()
	if err != nil {
		return d.stateError("complete")
	}

	c.PhotoRefs = append([]string(nil), c.PhotoRefs...)
	d.status = next
	d.completion = &c
	return nil
}

func (d *Destination) fail(f Failure) error {
	if _, err := ParseFailureReason(string(f.Reason)); err != nil {
		return err
	}
	next, err := d.status.Fail()
	if err != nil {
		return d.stateError("fail")
	}

	d.status = next
	d.failure = &f
	return nil
}

// replaceData applies a resubmitted payload. Only pending stops change.
func (d *Destination) replaceData(data DestinationData) (bool, error) {
	if d.status != DestinationPending {
		return false, nil
	}
	if data.ExternalID != d.data.ExternalID {
		return false, errs.NewValueIsInvalidError(string(schema.FieldExternalID))
	}
	if err := d.setData(data); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Destination) stateError(action string) error {
	return errs.NewInvalidStateError("destination", d.id.String(), d.status.String(), action)
}

func (d *Destination) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	d.id = id
	return nil
}

func (d *Destination) setData(data DestinationData) error {
	var errList []error
	if data.ExternalID == "" {
		errList = append(errList, errs.NewValueIsRequiredError(string(schema.FieldExternalID)))
	}
	if data.Address == "" {
		errList = append(errList, errs.NewValueIsRequiredError(string(schema.FieldAddress)))
	}
	if err := data.Coordinates.Validate(); err != nil {
		errList = append(errList, err)
	}
	if err := errors.Join(errList...); err != nil {
		return err
	}

	data.Items = append([]any(nil), data.Items...)
	d.data = data
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
