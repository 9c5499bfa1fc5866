package errors

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InsufficientStockError is returned when a transfer or pack order asks for
// more stock than the non-expired rows at the source can supply.
type InsufficientStockError struct {
	Medication string
	Available  int
	Required   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, required %d", e.Medication, e.Available, e.Required)
}

// InvalidTransitionError is returned when a state-machine operation is
// attempted from a state it is not legal in. The record is left unchanged.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// SameLocationError rejects inter-dispensary transfers where source and
// destination are the same dispensary.
type SameLocationError struct {
	Location string
}

func (e *SameLocationError) Error() string {
	return fmt.Sprintf("source and destination are the same location: %s", e.Location)
}

// DuplicateCodeError is returned when a manually supplied authorization code
// already exists in the code table.
type DuplicateCodeError struct {
	Code string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("authorization code %q already exists", e.Code)
}

// CodeGenerationError signals exhaustion of the bounded collision-retry loop
// for auto-generated authorization codes.
type CodeGenerationError struct {
	Attempts int
}

func (e *CodeGenerationError) Error() string {
	return fmt.Sprintf("failed to generate a unique authorization code after %d attempts", e.Attempts)
}

// UnsupportedRecordError is returned when a record kind is not registered
// with the authorization engine. Programmer error.
type UnsupportedRecordError struct {
	Kind string
}

func (e *UnsupportedRecordError) Error() string {
	return fmt.Sprintf("record kind %q does not support authorization", e.Kind)
}

// CircularHierarchyError blocks role saves that would introduce a cycle in
// the parent graph, and surfaces cycles found during traversal.
type CircularHierarchyError struct {
	Role string
}

func (e *CircularHierarchyError) Error() string {
	return fmt.Sprintf("circular role hierarchy detected at role %q", e.Role)
}

// CapacityExceededError is an advisory warning: execution is still permitted
// but the destination store is over its declared capacity.
type CapacityExceededError struct {
	Location string
	Capacity int
	Stock    int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded at %s: capacity %d, stock %d", e.Location, e.Capacity, e.Stock)
}

// PermissionDeniedError carries the permission key the caller lacked.
type PermissionDeniedError struct {
	Permission string
	Reason     string
}

func (e *PermissionDeniedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("permission %q required: %s", e.Permission, e.Reason)
	}
	return fmt.Sprintf("permission %q required", e.Permission)
}

// AmountMismatchError reports a claim whose amount does not match the
// authorization code it is drawn against.
type AmountMismatchError struct {
	Expected decimal.Decimal
	Got      decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("authorization amount mismatch: expected %s, got %s", e.Expected, e.Got)
}
