package http

import (
	"errors"
	"time"

	"fulfillment/internal/core/application/callbacks"
	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/application/usecases/queries"
	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/trip"
	"fulfillment/internal/pkg/errs"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// NewDeliveryRequest is a submission. Destinations are in the tenant's shape.
type NewDeliveryRequest struct {
	Destinations  []map[string]any `json:"destinations"`
	CallbackURL   string           `json:"callback_url,omitempty"`
	ScheduledDate string           `json:"scheduled_date,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

func (r NewDeliveryRequest) details() (delivery.Details, error) {
	details := delivery.Details{
		Notes:       r.Notes,
		CallbackURL: r.CallbackURL,
	}
	if r.ScheduledDate == "" {
		return details, nil
	}

	day, err := parseScheduledDate(r.ScheduledDate)
	if err != nil {
		return delivery.Details{}, errs.NewValueIsInvalidErrorWithCause("scheduled_date", err)
	}
	details.ScheduledDate = &day
	return details, nil
}

// parseScheduledDate accepts a calendar day or a full timestamp.
func parseScheduledDate(s string) (time.Time, error) {
	if day, err := time.Parse(time.DateOnly, s); err == nil {
		return day, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("expected YYYY-MM-DD or an RFC 3339 timestamp")
	}
	return t, nil
}

// Position is an optional driver location; both parts or neither.
type Position struct {
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`
}

// TripCompletion is the body of POST /driver/trips/{tripId}/complete.
type TripCompletion struct {
	TotalKm *float64 `json:"total_km"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// ProofOfDelivery carries references to a signature and photos stored by the
// driver client.
type ProofOfDelivery struct {
	RecipientName string   `json:"recipient_name,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Signature     string   `json:"signature,omitempty"`
	Photo         string   `json:"photo,omitempty"`
	Photos        []string `json:"photos,omitempty"`
}

func (p ProofOfDelivery) toCommand() commands.ProofOfDelivery {
	photos := make([]string, 0, len(p.Photos)+1)
	if p.Photo != "" {
		photos = append(photos, p.Photo)
	}
	photos = append(photos, p.Photos...)

	return commands.ProofOfDelivery{
		RecipientName: p.RecipientName,
		Notes:         p.Notes,
		SignatureRef:  p.Signature,
		PhotoRefs:     photos,
	}
}

// DeliveryFailure is the body of the driver fail operation. Reason is one of the
// failure reason codes.
type DeliveryFailure struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}

// TenantSettings is the body of PUT /admin/tenants/{tenantId}. It replaces every setting.
type TenantSettings struct {
	Name           string        `json:"name,omitempty"`
	APIKey         string        `json:"api_key,omitempty"`
	CallbackURL    string        `json:"callback_url,omitempty"`
	CallbackAPIKey string        `json:"callback_api_key,omitempty"`
	Schema         *TenantSchema `json:"schema,omitempty"`
}

// TenantSchema maps canonical fields to dot paths of submissions (inbound) and
// to keys of callback bodies (outbound).
type TenantSchema struct {
	Inbound  map[string]string `json:"inbound"`
	Outbound map[string]string `json:"outbound"`
}

func (s *TenantSchema) toCommand() *commands.SchemaMaps {
	if s == nil {
		return nil
	}
	return &commands.SchemaMaps{Inbound: s.Inbound, Outbound: s.Outbound}
}

// TripAssignment is the body of POST /admin/delivery-requests/{requestId}/assign.
// Both ids are required.
type TripAssignment struct {
	DriverID  openapi_types.UUID `json:"driver_id"`
	VehicleID string             `json:"vehicle_id"`
}

// ListCallbacksParams defines parameters for ListCallbacks.
type ListCallbacksParams struct {
	Status *string `form:"status,omitempty" json:"status,omitempty"`
	Limit  *int    `form:"limit,omitempty" json:"limit,omitempty"`
}

// DeliveryRequest defines model for DeliveryRequest.
type DeliveryRequest struct {
	ID              string        `json:"id"`
	TenantID        string        `json:"tenant_id"`
	Status          string        `json:"status"`
	ScheduledDate   *string       `json:"scheduled_date,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	CallbackURL     string        `json:"callback_url,omitempty"`
	TotalDistanceKm *float64      `json:"total_distance_km,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	Destinations    []Destination `json:"destinations"`
	Trips           []Trip        `json:"trips"`
}

// Destination defines model for Destination.
type Destination struct {
	ID            string     `json:"id"`
	ExternalID    string     `json:"external_id"`
	Address       string     `json:"address"`
	Lat           float64    `json:"lat"`
	Lng           float64    `json:"lng"`
	ContactName   string     `json:"contact_name,omitempty"`
	ContactPhone  string     `json:"contact_phone,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Items         []any      `json:"items,omitempty"`
	Status        string     `json:"status"`
	ArrivedAt     *time.Time `json:"arrived_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	RecipientName string     `json:"recipient_name,omitempty"`
	Signature     string     `json:"signature,omitempty"`
	Photos        []string   `json:"photos,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	FailureNotes  string     `json:"failure_notes,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
}

// Trip defines model for Trip.
type Trip struct {
	ID                string     `json:"id"`
	DeliveryRequestID string     `json:"delivery_request_id,omitempty"`
	DriverID          *string    `json:"driver_id,omitempty"`
	VehicleID         string     `json:"vehicle_id,omitempty"`
	Status            string     `json:"status"`
	PlannedDistanceKm float64    `json:"planned_distance_km"`
	ActualDistanceKm  *float64   `json:"actual_distance_km,omitempty"`
	AssignedAt        time.Time  `json:"assigned_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
}

// Callback defines model for Callback.
type Callback struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id"`
	DeliveryRequestID string     `json:"delivery_request_id"`
	SubjectID         string     `json:"subject_id"`
	SubjectKind       string     `json:"subject_kind"`
	EventType         string     `json:"event_type"`
	Status            string     `json:"status"`
	Attempts          int        `json:"attempts"`
	NextAttemptAt     time.Time  `json:"next_attempt_at"`
	LastError         string     `json:"last_error,omitempty"`
	LastStatusCode    int        `json:"last_status_code,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
}

// SendNowResult reports a callback sent outside the queue.
type SendNowResult struct {
	EventType  string `json:"event_type"`
	Delivered  bool   `json:"delivered"`
	StatusCode int    `json:"status_code,omitempty"`
	LatencyMs  int64  `json:"latency_ms"`
	Error      string `json:"error,omitempty"`
}

func toDeliveryRequest(v queries.GetDeliveryRequestQueryResponse) DeliveryRequest {
	out := DeliveryRequest{
		ID:              v.ID.String(),
		TenantID:        v.TenantID.String(),
		Status:          v.Status,
		Notes:           v.Notes,
		CallbackURL:     v.CallbackURL,
		TotalDistanceKm: v.TotalDistanceKm,
		CreatedAt:       v.CreatedAt,
		Destinations:    make([]Destination, 0, len(v.Destinations)),
		Trips:           make([]Trip, 0, len(v.Trips)),
	}
	if v.ScheduledDate != nil {
		day := v.ScheduledDate.Format(time.DateOnly)
		out.ScheduledDate = &day
	}

	for _, d := range v.Destinations {
		out.Destinations = append(out.Destinations, Destination{
			ID:            d.ID.String(),
			ExternalID:    d.ExternalID,
			Address:       d.Address,
			Lat:           d.Lat,
			Lng:           d.Lng,
			ContactName:   d.ContactName,
			ContactPhone:  d.ContactPhone,
			Notes:         d.Notes,
			Items:         d.Items,
			Status:        d.Status,
			ArrivedAt:     d.ArrivedAt,
			CompletedAt:   d.CompletedAt,
			RecipientName: d.RecipientName,
			Signature:     d.SignatureRef,
			Photos:        d.PhotoRefs,
			FailureReason: d.FailureReason,
			FailureNotes:  d.FailureNotes,
			FailedAt:      d.FailedAt,
		})
	}
	for _, t := range v.Trips {
		out.Trips = append(out.Trips, Trip{
			ID:                t.ID.String(),
			DeliveryRequestID: v.ID.String(),
			DriverID:          uuidString(t.DriverID),
			VehicleID:         t.VehicleID,
			Status:            t.Status,
			PlannedDistanceKm: t.PlannedDistanceKm,
			ActualDistanceKm:  t.ActualDistanceKm,
			AssignedAt:        t.AssignedAt,
			StartedAt:         t.StartedAt,
			CompletedAt:       t.CompletedAt,
			CancelledAt:       t.CancelledAt,
		})
	}

	return out
}

func toTrip(t *trip.Trip) Trip {
	tl := t.Timeline()
	return Trip{
		ID:                t.ID().String(),
		DeliveryRequestID: t.RequestID().String(),
		DriverID:          uuidString(t.DriverID()),
		VehicleID:         t.VehicleID(),
		Status:            t.Status().String(),
		PlannedDistanceKm: t.PlannedDistanceKm(),
		ActualDistanceKm:  t.ActualDistanceKm(),
		AssignedAt:        tl.AssignedAt,
		StartedAt:         tl.StartedAt,
		CompletedAt:       tl.CompletedAt,
		CancelledAt:       tl.CancelledAt,
	}
}

func toCallback(v queries.ListCallbacksQueryResponse) Callback {
	return Callback{
		ID:                v.ID.String(),
		TenantID:          v.TenantID.String(),
		DeliveryRequestID: v.RequestID.String(),
		SubjectID:         v.SubjectID.String(),
		SubjectKind:       v.SubjectKind,
		EventType:         v.EventType,
		Status:            v.Status,
		Attempts:          v.Attempts,
		NextAttemptAt:     v.NextAttemptAt,
		LastError:         v.LastError,
		LastStatusCode:    v.LastStatusCode,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
		DeliveredAt:       v.DeliveredAt,
	}
}

func toSendNowResult(r callbacks.SendNowResult) SendNowResult {
	return SendNowResult{
		EventType:  r.EventType.String(),
		Delivered:  r.Delivered,
		StatusCode: r.StatusCode,
		LatencyMs:  r.Latency.Milliseconds(),
		Error:      r.Error,
	}
}

func uuidString(id *kernel.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
