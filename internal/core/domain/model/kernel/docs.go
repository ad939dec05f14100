// Package kernel holds the value objects shared by every aggregate of the
// fulfillment domain: UUID identifiers and validated geographic Coordinates.
//
// Both are immutable and have an invalid zero value; construct them through
// the exported constructors.
package kernel
