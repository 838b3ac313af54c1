package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ashureev/virtual-hr/internal/domain"
)

type fakeRepo struct {
	mu           sync.Mutex
	leaves       []*domain.LeaveRequest
	approvedDays map[string]int

	addLeaveCalls int
	updateCalls   int
	lastUpdateID  int64
	lastStatus    domain.LeaveStatus
	lastReason    string

	approvedErr error
	updateErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{approvedDays: make(map[string]int)}
}

func approvedKey(employeeID string, leaveType domain.LeaveType) string {
	return employeeID + ":" + string(leaveType)
}

func (f *fakeRepo) AddLeaveRequest(_ context.Context, req *domain.LeaveRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addLeaveCalls++
	req.ID = int64(len(f.leaves) + 1)
	stored := *req
	f.leaves = append(f.leaves, &stored)
	return nil
}

func (f *fakeRepo) LeaveHistory(_ context.Context, employeeID string) ([]*domain.LeaveRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.LeaveRequest
	for _, rec := range f.leaves {
		if rec.EmployeeID == employeeID {
			copy := *rec
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeRepo) PendingLeaves(_ context.Context, employeeID string) ([]*domain.LeaveRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.LeaveRequest
	for _, rec := range f.leaves {
		if rec.EmployeeID == employeeID && rec.Status == domain.StatusPending {
			copy := *rec
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateLeaveStatus(_ context.Context, id int64, status domain.LeaveStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updateCalls++
	f.lastUpdateID = id
	f.lastStatus = status
	f.lastReason = reason
	for _, rec := range f.leaves {
		if rec.ID == id {
			rec.Status = status
		}
	}
	return nil
}

func (f *fakeRepo) ApprovedDays(_ context.Context, employeeID string, leaveType domain.LeaveType) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.approvedErr != nil {
		return 0, f.approvedErr
	}
	return f.approvedDays[approvedKey(employeeID, leaveType)], nil
}

func (f *fakeRepo) AddFeedback(_ context.Context, _ *domain.Feedback) error { return nil }
func (f *fakeRepo) AllFeedback(_ context.Context) ([]*domain.Feedback, error) {
	return nil, nil
}
func (f *fakeRepo) Ping(_ context.Context) error { return nil }
func (f *fakeRepo) Close() error                 { return nil }

func testAllowances() map[string]int {
	return map[string]int{
		"Annual":    20,
		"Sick":      10,
		"Personal":  5,
		"Maternity": 90,
		"Paternity": 15,
		"Marriage":  5,
	}
}

func TestSubmitRecordsPendingRequest(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(repo, testAllowances())

	reply, err := h.Submit(context.Background(), Params{
		EmployeeID:   "E1",
		EmployeeName: "Alice",
		LeaveType:    "Annual",
		StartDate:    "2026-01-15",
		EndDate:      "2026-01-17",
		Reason:       "Family trip",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if len(repo.leaves) != 1 {
		t.Fatalf("Expected 1 stored request, got %d", len(repo.leaves))
	}
	rec := repo.leaves[0]
	if rec.NumDays != 3 {
		t.Errorf("Expected 3 days for inclusive range, got %d", rec.NumDays)
	}
	if rec.Status != domain.StatusPending {
		t.Errorf("Expected Pending status, got %s", rec.Status)
	}
	if !strings.Contains(reply, "2026-01-15 to 2026-01-17 (3 days)") {
		t.Errorf("Reply missing date summary: %q", reply)
	}
	if !strings.Contains(reply, "Reason: Family trip") {
		t.Errorf("Reply missing reason: %q", reply)
	}
}

func TestSubmitRequiresIdentity(t *testing.T) {
	h := NewHandler(newFakeRepo(), testAllowances())

	_, err := h.Submit(context.Background(), Params{StartDate: "2026-01-15"})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Message, "employee ID and name") {
		t.Errorf("Unexpected message: %q", verr.Message)
	}
}

func TestSubmitRequiresStartDate(t *testing.T) {
	h := NewHandler(newFakeRepo(), testAllowances())

	_, err := h.Submit(context.Background(), Params{EmployeeID: "E1", EmployeeName: "Alice"})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestSubmitRejectsMalformedStartDate(t *testing.T) {
	h := NewHandler(newFakeRepo(), testAllowances())

	_, err := h.Submit(context.Background(), Params{
		EmployeeID:   "E1",
		EmployeeName: "Alice",
		StartDate:    "January 15th",
	})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Message, "YYYY-MM-DD") {
		t.Errorf("Unexpected message: %q", verr.Message)
	}
}

func TestSubmitRejectsUnknownLeaveType(t *testing.T) {
	h := NewHandler(newFakeRepo(), testAllowances())

	_, err := h.Submit(context.Background(), Params{
		EmployeeID:   "E1",
		EmployeeName: "Alice",
		LeaveType:    "Sabbatical",
		StartDate:    "2026-01-15",
	})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestSubmitInsufficientBalanceWritesNothing(t *testing.T) {
	repo := newFakeRepo()
	repo.approvedDays[approvedKey("E1", domain.LeaveAnnual)] = 19
	h := NewHandler(repo, testAllowances())

	_, err := h.Submit(context.Background(), Params{
		EmployeeID:   "E1",
		EmployeeName: "Alice",
		LeaveType:    "Annual",
		StartDate:    "2026-01-15",
		EndDate:      "2026-01-17",
	})

	var berr *domain.InsufficientBalanceError
	if !errors.As(err, &berr) {
		t.Fatalf("Expected InsufficientBalanceError, got %v", err)
	}
	if berr.Remaining != 1 || berr.Requested != 3 {
		t.Errorf("Expected remaining=1 requested=3, got %d/%d", berr.Remaining, berr.Requested)
	}
	if repo.addLeaveCalls != 0 {
		t.Errorf("Expected no store write on insufficient balance, got %d", repo.addLeaveCalls)
	}
}

func TestSubmitSkipsBalanceCheckForUntrackedType(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(repo, testAllowances())

	_, err := h.Submit(context.Background(), Params{
		EmployeeID:   "E1",
		EmployeeName: "Alice",
		LeaveType:    "Bereavement",
		StartDate:    "2026-01-15",
		NumDays:      30,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if repo.addLeaveCalls != 1 {
		t.Errorf("Expected request stored, got %d writes", repo.addLeaveCalls)
	}
}

func TestSubmitDateResolution(t *testing.T) {
	cases := []struct {
		name     string
		end      string
		numDays  int
		wantEnd  string
		wantDays int
	}{
		{"end date only", "2026-01-19", 0, "2026-01-19", 5},
		{"day count only", "", 5, "2026-01-19", 5},
		{"neither defaults to one day", "", 0, "2026-01-15", 1},
		{"span wins over day count", "2026-01-16", 7, "2026-01-16", 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepo()
			h := NewHandler(repo, testAllowances())

			_, err := h.Submit(context.Background(), Params{
				EmployeeID:   "E1",
				EmployeeName: "Alice",
				StartDate:    "2026-01-15",
				EndDate:      tc.end,
				NumDays:      tc.numDays,
			})
			if err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
			rec := repo.leaves[0]
			if rec.EndDate != tc.wantEnd || rec.NumDays != tc.wantDays {
				t.Errorf("Got end=%s days=%d, want end=%s days=%d",
					rec.EndDate, rec.NumDays, tc.wantEnd, tc.wantDays)
			}
		})
	}
}

func TestSubmitRejectsInvertedRange(t *testing.T) {
	h := NewHandler(newFakeRepo(), testAllowances())

	_, err := h.Submit(context.Background(), Params{
		EmployeeID:   "E1",
		EmployeeName: "Alice",
		StartDate:    "2026-01-17",
		EndDate:      "2026-01-15",
	})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestCheckBalanceSubtractsApprovedDays(t *testing.T) {
	repo := newFakeRepo()
	repo.approvedDays[approvedKey("E1", domain.LeaveAnnual)] = 5
	h := NewHandler(repo, testAllowances())

	reply, err := h.CheckBalance(context.Background(), Params{EmployeeID: "E1", LeaveType: "Annual"})
	if err != nil {
		t.Fatalf("CheckBalance failed: %v", err)
	}
	if !strings.Contains(reply, "- Annual: 15 days remaining") {
		t.Errorf("Unexpected balance reply: %q", reply)
	}
}

func TestCheckBalanceIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	repo.approvedDays[approvedKey("E1", domain.LeaveAnnual)] = 5
	h := NewHandler(repo, testAllowances())

	first, err := h.CheckBalance(context.Background(), Params{EmployeeID: "E1"})
	if err != nil {
		t.Fatalf("first CheckBalance failed: %v", err)
	}
	second, err := h.CheckBalance(context.Background(), Params{EmployeeID: "E1"})
	if err != nil {
		t.Fatalf("second CheckBalance failed: %v", err)
	}

	if first != second {
		t.Errorf("Consecutive balance checks diverged:\nfirst:  %q\nsecond: %q", first, second)
	}
	if repo.addLeaveCalls != 0 || repo.updateCalls != 0 {
		t.Errorf("Balance check wrote to the store: adds=%d updates=%d", repo.addLeaveCalls, repo.updateCalls)
	}
}

func TestCheckBalanceFloorsAtZero(t *testing.T) {
	repo := newFakeRepo()
	repo.approvedDays[approvedKey("E1", domain.LeaveSick)] = 25
	h := NewHandler(repo, testAllowances())

	reply, err := h.CheckBalance(context.Background(), Params{EmployeeID: "E1", LeaveType: "Sick"})
	if err != nil {
		t.Fatalf("CheckBalance failed: %v", err)
	}
	if !strings.Contains(reply, "- Sick: 0 days remaining") {
		t.Errorf("Expected floored balance, got %q", reply)
	}
}

func TestCheckBalanceListsAllTrackedTypes(t *testing.T) {
	h := NewHandler(newFakeRepo(), testAllowances())

	reply, err := h.CheckBalance(context.Background(), Params{EmployeeID: "E1"})
	if err != nil {
		t.Fatalf("CheckBalance failed: %v", err)
	}

	for _, want := range []string{"Annual: 20", "Sick: 10", "Personal: 5", "Maternity: 90", "Paternity: 15", "Marriage: 5"} {
		if !strings.Contains(reply, want) {
			t.Errorf("Balance reply missing %q: %q", want, reply)
		}
	}
	if strings.Contains(reply, "Bereavement") {
		t.Errorf("Bereavement has no tracked balance, reply: %q", reply)
	}
}

func TestCheckBalanceRequiresEmployeeID(t *testing.T) {
	h := NewHandler(newFakeRepo(), testAllowances())

	_, err := h.CheckBalance(context.Background(), Params{})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestViewHistoryEmpty(t *testing.T) {
	h := NewHandler(newFakeRepo(), testAllowances())

	reply, err := h.ViewHistory(context.Background(), Params{EmployeeID: "E1"})
	if err != nil {
		t.Fatalf("ViewHistory failed: %v", err)
	}
	if !strings.Contains(reply, "No leave records found") {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestViewHistorySurfacesLastTen(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(repo, testAllowances())

	for i := 0; i < 12; i++ {
		repo.leaves = append(repo.leaves, &domain.LeaveRequest{
			ID:         int64(i + 1),
			EmployeeID: "E1",
			LeaveType:  domain.LeaveAnnual,
			StartDate:  fmt.Sprintf("2026-01-%02d", i+1),
			EndDate:    fmt.Sprintf("2026-01-%02d", i+1),
			NumDays:    1,
			Status:     domain.StatusPending,
		})
	}

	reply, err := h.ViewHistory(context.Background(), Params{EmployeeID: "E1"})
	if err != nil {
		t.Fatalf("ViewHistory failed: %v", err)
	}
	if strings.Contains(reply, "2026-01-01") || strings.Contains(reply, "2026-01-02") {
		t.Errorf("Oldest records should be dropped: %q", reply)
	}
	if !strings.Contains(reply, "2026-01-03") || !strings.Contains(reply, "2026-01-12") {
		t.Errorf("Recent records missing: %q", reply)
	}
}

func TestUpdateStatusRequiresPrivilege(t *testing.T) {
	h := NewHandler(newFakeRepo(), testAllowances())

	_, err := h.UpdateStatus(context.Background(), Params{
		EmployeeID: "E1",
		Status:     "Approved",
		Reason:     "ok",
	})

	var aerr *domain.AuthorizationError
	if !errors.As(err, &aerr) {
		t.Fatalf("Expected AuthorizationError, got %v", err)
	}
}

func TestUpdateStatusValidatesStatus(t *testing.T) {
	h := NewHandler(newFakeRepo(), testAllowances())

	_, err := h.UpdateStatus(context.Background(), Params{
		EmployeeID: "E1",
		Status:     "Maybe",
		Reason:     "ok",
		Privileged: true,
	})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Message, "Approve or Reject") {
		t.Errorf("Unexpected message: %q", verr.Message)
	}
}

func TestUpdateStatusRequiresReason(t *testing.T) {
	h := NewHandler(newFakeRepo(), testAllowances())

	_, err := h.UpdateStatus(context.Background(), Params{
		EmployeeID: "E1",
		Status:     "Approved",
		Reason:     "   ",
		Privileged: true,
	})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestUpdateStatusNoPendingLeave(t *testing.T) {
	repo := newFakeRepo()
	repo.leaves = append(repo.leaves, &domain.LeaveRequest{
		ID:         1,
		EmployeeID: "E1",
		Status:     domain.StatusApproved,
	})
	h := NewHandler(repo, testAllowances())

	_, err := h.UpdateStatus(context.Background(), Params{
		EmployeeID: "E1",
		Status:     "Approved",
		Reason:     "ok",
		Privileged: true,
	})

	var nerr *domain.NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestUpdateStatusFirstPendingWins(t *testing.T) {
	repo := newFakeRepo()
	repo.leaves = append(repo.leaves,
		&domain.LeaveRequest{ID: 1, EmployeeID: "E1", StartDate: "2026-02-01", Status: domain.StatusPending},
		&domain.LeaveRequest{ID: 2, EmployeeID: "E1", StartDate: "2026-03-01", Status: domain.StatusPending},
	)
	h := NewHandler(repo, testAllowances())

	reply, err := h.UpdateStatus(context.Background(), Params{
		EmployeeID: "E1",
		Status:     "Approved",
		Reason:     "Per policy",
		Privileged: true,
	})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if repo.lastUpdateID != 1 {
		t.Errorf("Expected first pending record updated, got ID %d", repo.lastUpdateID)
	}
	if !strings.Contains(reply, "has been Approved") {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestUpdateStatusFiltersByStartDate(t *testing.T) {
	repo := newFakeRepo()
	repo.leaves = append(repo.leaves,
		&domain.LeaveRequest{ID: 1, EmployeeID: "E1", StartDate: "2026-02-01", Status: domain.StatusPending},
		&domain.LeaveRequest{ID: 2, EmployeeID: "E1", StartDate: "2026-03-01", Status: domain.StatusPending},
	)
	h := NewHandler(repo, testAllowances())

	_, err := h.UpdateStatus(context.Background(), Params{
		EmployeeID: "E1",
		StartDate:  "2026-03-01",
		Status:     "Rejected",
		Reason:     "Coverage gap",
		Privileged: true,
	})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if repo.lastUpdateID != 2 {
		t.Errorf("Expected start-date match updated, got ID %d", repo.lastUpdateID)
	}
	if repo.lastStatus != domain.StatusRejected {
		t.Errorf("Expected Rejected, got %s", repo.lastStatus)
	}
}

func TestHandleUnknownActionReturnsUsage(t *testing.T) {
	h := NewHandler(newFakeRepo(), testAllowances())

	reply, err := h.Handle(context.Background(), Params{Action: "dance"})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(reply, "submit a leave request") {
		t.Errorf("Expected usage message, got %q", reply)
	}
}
