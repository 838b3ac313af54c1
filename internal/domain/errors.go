package domain

import (
	"fmt"
)

// ValidationError reports missing or malformed required input. The message is
// a corrective instruction shown to the user as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthorizationError reports a privileged operation attempted without the
// privilege flag.
type AuthorizationError struct {
	Operation string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("operation %q requires HR privileges", e.Operation)
}

// InsufficientBalanceError reports a leave request exceeding the remaining
// balance for its type.
type InsufficientBalanceError struct {
	LeaveType LeaveType
	Remaining int
	Requested int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s leave balance: %d remaining, %d requested",
		e.LeaveType, e.Remaining, e.Requested)
}

// NotFoundError reports that no record matched the request.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ExternalServiceError wraps a failure from a classifier, model, or store
// dependency. The dispatcher converts it to a generic retry message; the
// wrapped error is only logged.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
