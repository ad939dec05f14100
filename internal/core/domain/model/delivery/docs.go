// Package delivery implements the DeliveryRequest aggregate and its Destinations.
//
// A request moves pending → accepted → in_progress → completed, or is cancelled.
// Destinations move pending → (arrived) → completed | failed; completed and failed
// are terminal. Terminal destination transitions raise events and complete the
// request once every stop is terminal.
package delivery
