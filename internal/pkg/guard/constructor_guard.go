// Package guard marks domain values as built through their constructor.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate when no specific error is supplied.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard is embedded in value objects and aggregates so that a zero value
// can be told apart from one produced by NewX or RestoreX.
//
// Example:
//
//	var errCoordinatesNotConstructed = errors.New("coordinates must be created via NewCoordinates")
//
//	type Coordinates struct {
//	    lat, lng float64
//	    guard    guard.ConstructorGuard
//	}
//
//	func (c Coordinates) Validate() error {
//	    return c.guard.Validate(errCoordinatesNotConstructed)
//	}
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard returns a guard flagged as constructed.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns validationError (or ErrDefaultConstructorGuard when it is nil)
// if the guard is a zero value, nil otherwise.
func (g ConstructorGuard) Validate(validationError error) error {
	if validationError == nil {
		validationError = ErrDefaultConstructorGuard
	}
	if !g.isConstructed {
		return validationError
	}
	return nil
}
