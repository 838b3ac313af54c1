// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/ashureev/virtual-hr/internal/domain"
)

// Repository defines the interface for persisting leave and feedback records.
type Repository interface {
	// AddLeaveRequest appends a new leave request and fills in its ID.
	AddLeaveRequest(ctx context.Context, req *domain.LeaveRequest) error

	// LeaveHistory returns all leave records for an employee in submission order.
	LeaveHistory(ctx context.Context, employeeID string) ([]*domain.LeaveRequest, error)

	// PendingLeaves returns the employee's Pending records in submission order.
	PendingLeaves(ctx context.Context, employeeID string) ([]*domain.LeaveRequest, error)

	// UpdateLeaveStatus transitions a Pending record to Approved or Rejected,
	// stamps the approval date, and appends the reason to the record's
	// comments. Returns domain.NotFoundError when the record is not Pending.
	UpdateLeaveStatus(ctx context.Context, id int64, status domain.LeaveStatus, reason string) error

	// ApprovedDays sums the day counts of the employee's Approved records of
	// the given type.
	ApprovedDays(ctx context.Context, employeeID string, leaveType domain.LeaveType) (int, error)

	// AddFeedback appends an anonymous feedback record.
	AddFeedback(ctx context.Context, fb *domain.Feedback) error

	// AllFeedback returns all feedback records in submission order.
	AllFeedback(ctx context.Context) ([]*domain.Feedback, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
