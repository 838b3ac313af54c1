package domain

import (
	"time"
)

// LeaveStatus is the approval state of a leave request.
type LeaveStatus string

const (
	StatusPending  LeaveStatus = "Pending"
	StatusApproved LeaveStatus = "Approved"
	StatusRejected LeaveStatus = "Rejected"
)

// LeaveType is one of the fixed leave categories.
type LeaveType string

const (
	LeaveAnnual      LeaveType = "Annual"
	LeaveSick        LeaveType = "Sick"
	LeavePersonal    LeaveType = "Personal"
	LeaveMaternity   LeaveType = "Maternity"
	LeavePaternity   LeaveType = "Paternity"
	LeaveMarriage    LeaveType = "Marriage"
	LeaveBereavement LeaveType = "Bereavement"
)

// LeaveTypes lists all leave categories in display order.
var LeaveTypes = []LeaveType{
	LeaveAnnual,
	LeaveSick,
	LeavePersonal,
	LeaveMaternity,
	LeavePaternity,
	LeaveMarriage,
	LeaveBereavement,
}

// ParseLeaveType maps a string to a known leave type.
func ParseLeaveType(s string) (LeaveType, bool) {
	for _, lt := range LeaveTypes {
		if string(lt) == s {
			return lt, true
		}
	}
	return "", false
}

// LeaveRequest is a single leave application record.
// Status transitions exactly once: Pending -> Approved or Pending -> Rejected.
type LeaveRequest struct {
	ID           int64       `json:"id"`
	EmployeeID   string      `json:"employee_id"`
	EmployeeName string      `json:"employee_name"`
	LeaveType    LeaveType   `json:"leave_type"`
	StartDate    string      `json:"start_date"` // YYYY-MM-DD
	EndDate      string      `json:"end_date"`   // YYYY-MM-DD
	NumDays      int         `json:"num_days"`
	Status       LeaveStatus `json:"status"`
	RequestedOn  time.Time   `json:"requested_on"`
	ApprovalDate *time.Time  `json:"approval_date,omitempty"`
	Comments     string      `json:"comments"`
}

// DateLayout is the wire format for leave dates.
const DateLayout = "2006-01-02"

// InclusiveDays returns the day count of the inclusive range [start, end].
// Returns 0 when either date is malformed or end precedes start.
func InclusiveDays(start, end string) int {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return 0
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return 0
	}
	days := int(e.Sub(s).Hours()/24) + 1
	if days < 1 {
		return 0
	}
	return days
}

// EndDateFor returns the inclusive end date for a leave of numDays starting
// at start.
func EndDateFor(start string, numDays int) (string, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return "", err
	}
	return s.AddDate(0, 0, numDays-1).Format(DateLayout), nil
}
