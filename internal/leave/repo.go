package leave

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hrm/internal/employee"
	"hrm/internal/model"
)

// Repository persists leave requests in Postgres.
type Repository struct {
	*employee.Repository
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{Repository: employee.NewRepository(db), db: db}
}

const selectLeave = `
	SELECT l.id, l.employee_id, e.employee_id, e.full_name, l.leave_type, l.start_date, l.end_date,
	       l.reason, l.status, l.created_at, l.updated_at
	FROM leaves l
	JOIN employees e ON e.id = l.employee_id`

func scanLeave(row interface{ Scan(...any) error }) (model.Leave, error) {
	var l model.Leave
	err := row.Scan(&l.ID, &l.EmployeeID, &l.EmployeeCode, &l.EmployeeName, &l.LeaveType, &l.StartDate, &l.EndDate,
		&l.Reason, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (r *Repository) one(ctx context.Context, where string, args ...any) (*model.Leave, error) {
	l, err := scanLeave(r.db.QueryRowContext(ctx, selectLeave+" WHERE "+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// CreateLeave inserts a leave request, Pending unless a status is given.
func (r *Repository) CreateLeave(ctx context.Context, l model.Leave) (model.Leave, error) {
	if l.Status == "" {
		l.Status = model.LeavePending
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO leaves (employee_id, leave_type, start_date, end_date, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, l.EmployeeID, l.LeaveType, l.StartDate, l.EndDate, l.Reason, l.Status).Scan(&id)
	if err != nil {
		return model.Leave{}, err
	}
	created, err := r.one(ctx, "l.id = $1", id)
	if err != nil {
		return model.Leave{}, err
	}
	return *created, nil
}

// GetLeave returns one leave visible in scope, or nil.
func (r *Repository) GetLeave(ctx context.Context, scope model.Scope, id int64) (*model.Leave, error) {
	return r.one(ctx, "l.id = $1 AND e.company_id = $2 AND ($3::bigint = 0 OR l.employee_id = $3)", id, scope.CompanyID, scope.EmployeeID)
}

// ListLeaves returns the leaves visible in scope, newest first.
func (r *Repository) ListLeaves(ctx context.Context, scope model.Scope) ([]model.Leave, error) {
	rows, err := r.db.QueryContext(ctx, selectLeave+`
		WHERE e.company_id = $1 AND ($2::bigint = 0 OR l.employee_id = $2)
		ORDER BY l.id DESC
	`, scope.CompanyID, scope.EmployeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Leave
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// TransitionLeave is a single conditional update; the status guard lives in
// the WHERE clause so concurrent opposite decisions cannot both win.
func (r *Repository) TransitionLeave(ctx context.Context, companyID, id int64, to model.LeaveStatus, now time.Time) (*model.Leave, error) {
	var updated int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE leaves l SET status = $3, updated_at = $4
		FROM employees e
		WHERE l.id = $1 AND e.id = l.employee_id AND e.company_id = $2
		  AND l.status IN ('Pending', $3)
		RETURNING l.id
	`, id, companyID, to, now).Scan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r.one(ctx, "l.id = $1", updated)
}
