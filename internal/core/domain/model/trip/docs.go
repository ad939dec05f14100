// Package trip implements the Trip aggregate: a driver and vehicle working through
// the destinations of one delivery request.
//
// A trip cannot start without a driver and vehicle, and cannot complete while any
// destination of its request is non-terminal.
package trip
