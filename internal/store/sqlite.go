package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/virtual-hr/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

// Column order mirrors the original leave/feedback tracker sheets.
func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS leave_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		num_days INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'Pending',
		requested_on INTEGER NOT NULL,
		approval_date INTEGER,
		comments TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_leave_employee ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_leave_status ON leave_requests(status) WHERE status = 'Pending';

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		action_items TEXT NOT NULL,
		submitted_on INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// AddLeaveRequest appends a new leave request and fills in its ID.
func (s *SQLiteStore) AddLeaveRequest(ctx context.Context, req *domain.LeaveRequest) error {
	query := `
	INSERT INTO leave_requests (
		employee_id, employee_name, leave_type, start_date, end_date,
		num_days, status, requested_on, comments
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if req.Status == "" {
		req.Status = domain.StatusPending
	}
	if req.RequestedOn.IsZero() {
		req.RequestedOn = time.Now()
	}

	result, err := s.db.ExecContext(ctx, query,
		req.EmployeeID, req.EmployeeName, string(req.LeaveType),
		req.StartDate, req.EndDate, req.NumDays,
		string(req.Status), req.RequestedOn.Unix(), req.Comments,
	)
	if err != nil {
		return fmt.Errorf("insert leave request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("leave request insert id: %w", err)
	}
	req.ID = id
	return nil
}

const leaveColumns = `id, employee_id, employee_name, leave_type, start_date, end_date,
       num_days, status, requested_on, approval_date, comments`

// LeaveHistory returns all leave records for an employee in submission order.
func (s *SQLiteStore) LeaveHistory(ctx context.Context, employeeID string) ([]*domain.LeaveRequest, error) {
	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE employee_id = ? ORDER BY id`
	return s.queryLeaves(ctx, query, employeeID)
}

// PendingLeaves returns the employee's Pending records in submission order.
func (s *SQLiteStore) PendingLeaves(ctx context.Context, employeeID string) ([]*domain.LeaveRequest, error) {
	query := `SELECT ` + leaveColumns + ` FROM leave_requests
	          WHERE employee_id = ? AND status = 'Pending' ORDER BY id`
	return s.queryLeaves(ctx, query, employeeID)
}

func (s *SQLiteStore) queryLeaves(ctx context.Context, query string, args ...interface{}) ([]*domain.LeaveRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leave requests: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close leave rows", "error", closeErr)
		}
	}()

	var leaves []*domain.LeaveRequest
	for rows.Next() {
		var req domain.LeaveRequest
		var leaveType, status string
		var requestedOn int64
		var approvalDate sql.NullInt64

		if err := rows.Scan(
			&req.ID, &req.EmployeeID, &req.EmployeeName, &leaveType,
			&req.StartDate, &req.EndDate, &req.NumDays, &status,
			&requestedOn, &approvalDate, &req.Comments,
		); err != nil {
			return nil, fmt.Errorf("scan leave row: %w", err)
		}

		req.LeaveType = domain.LeaveType(leaveType)
		req.Status = domain.LeaveStatus(status)
		req.RequestedOn = time.Unix(requestedOn, 0)
		if approvalDate.Valid {
			ts := time.Unix(approvalDate.Int64, 0)
			req.ApprovalDate = &ts
		}
		leaves = append(leaves, &req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leave rows: %w", err)
	}
	return leaves, nil
}

// UpdateLeaveStatus transitions a Pending record to a terminal status.
// The status guard in the WHERE clause makes the transition one-way: a record
// already Approved or Rejected matches zero rows. Retries on SQLITE_BUSY.
func (s *SQLiteStore) UpdateLeaveStatus(ctx context.Context, id int64, status domain.LeaveStatus, reason string) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.updateLeaveStatusOnce(ctx, id, status, reason)
		if err == nil {
			return nil
		}
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return err
		}

		if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "SQLITE_BUSY") {
			if i < maxRetries-1 {
				delay := baseDelay * time.Duration(1<<i)
				slog.Debug("UpdateLeaveStatus hit SQLITE_BUSY, retrying",
					"leave_id", id,
					"attempt", i+1,
					"delay", delay)
				time.Sleep(delay)
				continue
			}
		}

		return fmt.Errorf("update leave status for %d: %w", id, err)
	}

	return nil
}

func (s *SQLiteStore) updateLeaveStatusOnce(ctx context.Context, id int64, status domain.LeaveStatus, reason string) error {
	query := `
	UPDATE leave_requests SET
		status = ?,
		approval_date = ?,
		comments = CASE WHEN comments = '' THEN 'HR: ' || ?
		                ELSE comments || ' | HR: ' || ? END
	WHERE id = ? AND status = 'Pending'`

	result, err := s.db.ExecContext(ctx, query,
		string(status), time.Now().Unix(), reason, reason, id)
	if err != nil {
		return fmt.Errorf("update leave row: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("no pending leave request with id %d", id)}
	}
	return nil
}

// ApprovedDays sums approved day counts for an employee and leave type.
func (s *SQLiteStore) ApprovedDays(ctx context.Context, employeeID string, leaveType domain.LeaveType) (int, error) {
	query := `
	SELECT COALESCE(SUM(num_days), 0) FROM leave_requests
	WHERE employee_id = ? AND leave_type = ? AND status = 'Approved'`

	var total int
	if err := s.db.QueryRowContext(ctx, query, employeeID, string(leaveType)).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum approved days: %w", err)
	}
	return total, nil
}

// AddFeedback appends an anonymous feedback record.
func (s *SQLiteStore) AddFeedback(ctx context.Context, fb *domain.Feedback) error {
	if fb.SubmittedOn.IsZero() {
		fb.SubmittedOn = time.Now()
	}

	query := `INSERT INTO feedback (text, sentiment, action_items, submitted_on) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		fb.Text, string(fb.Sentiment), fb.ActionItems, fb.SubmittedOn.Unix())
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// AllFeedback returns all feedback records in submission order.
func (s *SQLiteStore) AllFeedback(ctx context.Context) ([]*domain.Feedback, error) {
	query := `SELECT text, sentiment, action_items, submitted_on FROM feedback ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close feedback rows", "error", closeErr)
		}
	}()

	var records []*domain.Feedback
	for rows.Next() {
		var fb domain.Feedback
		var sentiment string
		var submittedOn int64

		if err := rows.Scan(&fb.Text, &sentiment, &fb.ActionItems, &submittedOn); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}

		fb.Sentiment = domain.Sentiment(sentiment)
		fb.SubmittedOn = time.Unix(submittedOn, 0)
		records = append(records, &fb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback rows: %w", err)
	}
	return records, nil
}
