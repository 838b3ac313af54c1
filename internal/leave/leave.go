// Package leave implements the leave-management domain handler.
package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/virtual-hr/internal/domain"
	"github.com/ashureev/virtual-hr/internal/store"
)

// historyDisplayLimit caps how many records ViewHistory surfaces.
const historyDisplayLimit = 10

// Params carries the inputs for one leave operation, merged by the dispatcher
// from extracted parameters and caller context.
type Params struct {
	Action       string
	EmployeeID   string
	EmployeeName string
	LeaveType    string
	StartDate    string
	EndDate      string
	NumDays      int
	Reason       string
	Status       string
	Privileged   bool
}

// Handler performs leave operations against the backing store. It is the only
// writer of leave status transitions.
type Handler struct {
	repo       store.Repository
	allowances map[domain.LeaveType]int
}

// NewHandler creates a leave handler with the given per-type allowances.
// Types absent from the map have no fixed allowance and are not
// balance-limited.
func NewHandler(repo store.Repository, allowances map[string]int) *Handler {
	m := make(map[domain.LeaveType]int, len(allowances))
	for k, v := range allowances {
		if lt, ok := domain.ParseLeaveType(k); ok {
			m[lt] = v
		}
	}
	return &Handler{repo: repo, allowances: m}
}

// Handle dispatches a leave action.
func (h *Handler) Handle(ctx context.Context, p Params) (string, error) {
	switch strings.ToLower(p.Action) {
	case "submit_leave", "submit":
		return h.Submit(ctx, p)
	case "check_balance":
		return h.CheckBalance(ctx, p)
	case "view_history":
		return h.ViewHistory(ctx, p)
	case "update_status":
		return h.UpdateStatus(ctx, p)
	default:
		return "I'm not sure what you'd like to do with leave management. " +
			"I can help you submit a leave request, check your balance, " +
			"view your leave history, or (for HR) approve/reject leave requests.", nil
	}
}

// Submit validates and records a new Pending leave request.
func (h *Handler) Submit(ctx context.Context, p Params) (string, error) {
	if p.EmployeeID == "" || p.EmployeeName == "" {
		return "", &domain.ValidationError{
			Message: "I need your employee ID and name to submit a leave request. " +
				"Please provide them like: 'I am John Doe (ID: 123) and I want to apply for leave...'",
		}
	}
	if p.StartDate == "" {
		return "", &domain.ValidationError{
			Message: "Please specify when you'd like to start your leave. " +
				"For example: 'I want leave from 2026-01-15 to 2026-01-17'",
		}
	}

	leaveType := domain.LeaveAnnual
	if p.LeaveType != "" {
		lt, ok := domain.ParseLeaveType(p.LeaveType)
		if !ok {
			return "", &domain.ValidationError{
				Message: fmt.Sprintf("%q is not a leave type I know. Valid types are: %s.",
					p.LeaveType, leaveTypeList()),
			}
		}
		leaveType = lt
	}

	startDate, endDate, numDays, err := resolveDates(p.StartDate, p.EndDate, p.NumDays)
	if err != nil {
		return "", err
	}

	if allowance, ok := h.allowances[leaveType]; ok {
		used, err := h.repo.ApprovedDays(ctx, p.EmployeeID, leaveType)
		if err != nil {
			return "", &domain.ExternalServiceError{Service: "leave tracker", Err: err}
		}
		remaining := allowance - used
		if remaining < 0 {
			remaining = 0
		}
		if numDays > remaining {
			return "", &domain.InsufficientBalanceError{
				LeaveType: leaveType,
				Remaining: remaining,
				Requested: numDays,
			}
		}
	}

	req := &domain.LeaveRequest{
		EmployeeID:   p.EmployeeID,
		EmployeeName: p.EmployeeName,
		LeaveType:    leaveType,
		StartDate:    startDate,
		EndDate:      endDate,
		NumDays:      numDays,
		Status:       domain.StatusPending,
		Comments:     p.Reason,
	}
	if err := h.repo.AddLeaveRequest(ctx, req); err != nil {
		return "", &domain.ExternalServiceError{Service: "leave tracker", Err: err}
	}

	slog.Info("Leave request submitted",
		"employee_id", p.EmployeeID,
		"leave_type", leaveType,
		"num_days", numDays,
	)

	reason := p.Reason
	if reason == "" {
		reason = "Not specified"
	}
	return fmt.Sprintf("Your %s leave request has been submitted successfully!\n\n"+
		"Dates: %s to %s (%d days)\n"+
		"Status: Pending approval\n"+
		"Reason: %s\n\n"+
		"You'll be notified once HR reviews your request.",
		leaveType, startDate, endDate, numDays, reason), nil
}

// CheckBalance reports remaining balances, for one type or all types with a
// defined allowance.
func (h *Handler) CheckBalance(ctx context.Context, p Params) (string, error) {
	if p.EmployeeID == "" {
		return "", &domain.ValidationError{
			Message: "Please provide your employee ID to check your leave balance. " +
				"Example: 'Check leave balance for employee ID 123'",
		}
	}

	var types []domain.LeaveType
	if p.LeaveType != "" {
		lt, ok := domain.ParseLeaveType(p.LeaveType)
		if !ok {
			return "", &domain.ValidationError{
				Message: fmt.Sprintf("%q is not a leave type I know. Valid types are: %s.",
					p.LeaveType, leaveTypeList()),
			}
		}
		types = []domain.LeaveType{lt}
	} else {
		types = domain.LeaveTypes
	}

	var lines []string
	for _, lt := range types {
		allowance, ok := h.allowances[lt]
		if !ok {
			continue
		}
		used, err := h.repo.ApprovedDays(ctx, p.EmployeeID, lt)
		if err != nil {
			return "", &domain.ExternalServiceError{Service: "leave tracker", Err: err}
		}
		remaining := allowance - used
		if remaining < 0 {
			remaining = 0
		}
		lines = append(lines, fmt.Sprintf("- %s: %d days remaining", lt, remaining))
	}

	if len(lines) == 0 {
		return fmt.Sprintf("No balance is tracked for %s leave.", p.LeaveType), nil
	}
	return fmt.Sprintf("Leave Balance for Employee %s\n\n%s",
		p.EmployeeID, strings.Join(lines, "\n")), nil
}

// ViewHistory lists the employee's leave records, surfacing the most recent
// ten.
func (h *Handler) ViewHistory(ctx context.Context, p Params) (string, error) {
	if p.EmployeeID == "" {
		return "", &domain.ValidationError{
			Message: "Please provide your employee ID to view leave history. " +
				"Example: 'Show leave history for employee 123'",
		}
	}

	history, err := h.repo.LeaveHistory(ctx, p.EmployeeID)
	if err != nil {
		return "", &domain.ExternalServiceError{Service: "leave tracker", Err: err}
	}
	if len(history) == 0 {
		return fmt.Sprintf("No leave records found for employee %s.", p.EmployeeID), nil
	}

	if len(history) > historyDisplayLimit {
		history = history[len(history)-historyDisplayLimit:]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Leave History for Employee %s\n", p.EmployeeID)
	for _, rec := range history {
		fmt.Fprintf(&sb, "\n%s - %s to %s (%d days)\n   Status: %s\n",
			rec.LeaveType, rec.StartDate, rec.EndDate, rec.NumDays, rec.Status)
	}
	return sb.String(), nil
}

// UpdateStatus approves or rejects the employee's first Pending request,
// optionally disambiguated by start date. HR only.
func (h *Handler) UpdateStatus(ctx context.Context, p Params) (string, error) {
	if !p.Privileged {
		return "", &domain.AuthorizationError{Operation: "update_status"}
	}
	if p.EmployeeID == "" {
		return "", &domain.ValidationError{
			Message: "Please specify the employee ID for the leave to update. " +
				"Example: 'Approve leave for employee 123. Reason: Medical emergency'",
		}
	}
	status := domain.LeaveStatus(p.Status)
	if status != domain.StatusApproved && status != domain.StatusRejected {
		return "", &domain.ValidationError{
			Message: "Please specify whether to Approve or Reject the leave. " +
				"Example: 'Approve leave for employee 123. Reason: Medical emergency'",
		}
	}
	if strings.TrimSpace(p.Reason) == "" {
		return "", &domain.ValidationError{
			Message: "A reason is required for approval/rejection. " +
				"Example: 'Approve leave for employee 123. Reason: Approved as per policy'",
		}
	}

	pending, err := h.repo.PendingLeaves(ctx, p.EmployeeID)
	if err != nil {
		return "", &domain.ExternalServiceError{Service: "leave tracker", Err: err}
	}

	// First match in storage order wins when no start date is given.
	var target *domain.LeaveRequest
	for _, rec := range pending {
		if p.StartDate != "" && rec.StartDate != p.StartDate {
			continue
		}
		target = rec
		break
	}
	if target == nil {
		return "", &domain.NotFoundError{
			Message: fmt.Sprintf("No pending leave found for employee %s", p.EmployeeID),
		}
	}

	if err := h.repo.UpdateLeaveStatus(ctx, target.ID, status, p.Reason); err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return "", err
		}
		return "", &domain.ExternalServiceError{Service: "leave tracker", Err: err}
	}

	slog.Info("Leave status updated",
		"employee_id", p.EmployeeID,
		"leave_id", target.ID,
		"status", status,
	)

	return fmt.Sprintf("Leave for employee %s has been %s.\n\nReason: %s",
		p.EmployeeID, status, p.Reason), nil
}

// resolveDates derives the missing one of end date and day count. When
// neither is given the leave is a single day.
func resolveDates(start, end string, numDays int) (string, string, int, error) {
	if _, err := time.Parse(domain.DateLayout, start); err != nil {
		return "", "", 0, &domain.ValidationError{
			Message: fmt.Sprintf("I couldn't understand the start date %q. Please use YYYY-MM-DD format.", start),
		}
	}

	switch {
	case end == "" && numDays > 0:
		derived, err := domain.EndDateFor(start, numDays)
		if err != nil {
			return "", "", 0, &domain.ValidationError{
				Message: fmt.Sprintf("I couldn't derive an end date from %q and %d days.", start, numDays),
			}
		}
		end = derived
	case end != "" && numDays == 0:
		numDays = domain.InclusiveDays(start, end)
		if numDays == 0 {
			return "", "", 0, &domain.ValidationError{
				Message: fmt.Sprintf("The dates %q to %q don't form a valid range. Please use YYYY-MM-DD and make sure the end date isn't before the start.", start, end),
			}
		}
	case end == "" && numDays == 0:
		end = start
		numDays = 1
	default:
		// Both given: the inclusive span is authoritative.
		span := domain.InclusiveDays(start, end)
		if span == 0 {
			return "", "", 0, &domain.ValidationError{
				Message: fmt.Sprintf("The dates %q to %q don't form a valid range. Please use YYYY-MM-DD and make sure the end date isn't before the start.", start, end),
			}
		}
		numDays = span
	}
	return start, end, numDays, nil
}

func leaveTypeList() string {
	strs := make([]string, len(domain.LeaveTypes))
	for i, lt := range domain.LeaveTypes {
		strs[i] = string(lt)
	}
	return strings.Join(strs, ", ")
}
