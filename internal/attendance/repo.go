package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hrm/internal/employee"
	"hrm/internal/model"
	"hrm/internal/store"
)

// Repository persists attendance records in Postgres. Every read joins the
// owning employee so rows are filtered by tenant.
type Repository struct {
	*employee.Repository
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{Repository: employee.NewRepository(db), db: db}
}

const selectRecord = `
	SELECT a.id, a.employee_id, e.employee_id, e.full_name, a.date, a.status, a.notes, a.created_at
	FROM attendance_records a
	JOIN employees e ON e.id = a.employee_id`

func scanRecord(row interface{ Scan(...any) error }) (model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.EmployeeCode, &rec.EmployeeName, &rec.Date, &rec.Status, &rec.Notes, &rec.CreatedAt)
	return rec, err
}

// CreateAttendance inserts a record. A second record for the same employee
// and date fails with apperr.ErrDuplicate.
func (r *Repository) CreateAttendance(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (employee_id, date, status, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, rec.EmployeeID, rec.Date, rec.Status, rec.Notes).Scan(&id)
	if err != nil {
		return model.AttendanceRecord{}, store.MapError(err)
	}
	return scanRecord(r.db.QueryRowContext(ctx, selectRecord+` WHERE a.id = $1`, id))
}

// GetAttendance returns one record visible in scope, or nil.
func (r *Repository) GetAttendance(ctx context.Context, scope model.Scope, id int64) (*model.AttendanceRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, selectRecord+`
		WHERE a.id = $1 AND e.company_id = $2 AND ($3::bigint = 0 OR a.employee_id = $3)
	`, id, scope.CompanyID, scope.EmployeeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListAttendance returns all records visible in scope, newest date first.
func (r *Repository) ListAttendance(ctx context.Context, scope model.Scope) ([]model.AttendanceRecord, error) {
	return r.list(ctx, scope, nil, nil)
}

// ListAttendanceForMonth returns the records in scope dated within month of
// year.
func (r *Repository) ListAttendanceForMonth(ctx context.Context, scope model.Scope, year, month int) ([]model.AttendanceRecord, error) {
	from := model.NewDate(year, time.Month(month), 1)
	to := model.NewDate(year, time.Month(month)+1, 1)
	return r.list(ctx, scope, &from, &to)
}

func (r *Repository) list(ctx context.Context, scope model.Scope, from, to *model.Date) ([]model.AttendanceRecord, error) {
	args := []any{scope.CompanyID}
	clauses := []string{"e.company_id = $1"}
	if scope.EmployeeID != 0 {
		args = append(args, scope.EmployeeID)
		clauses = append(clauses, fmt.Sprintf("a.employee_id = $%d", len(args)))
	}
	if from != nil {
		args = append(args, *from)
		clauses = append(clauses, fmt.Sprintf("a.date >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		clauses = append(clauses, fmt.Sprintf("a.date < $%d", len(args)))
	}
	query := selectRecord + " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY a.date DESC, a.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
