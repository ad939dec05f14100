// Package services holds domain logic that spans more than one aggregate.
//
// The package includes:
//   - TripDispatcher: binds a driver and vehicle to a delivery request by creating a Trip
//   - PayloadBuilder: shapes destination and trip events into tenant callback bodies
package services
