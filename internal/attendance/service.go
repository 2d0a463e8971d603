package attendance

import (
	"context"
	"errors"
	"fmt"

	"hrm/internal/apperr"
	"hrm/internal/model"
)

// Store is the persistence the attendance service needs.
type Store interface {
	CreateAttendance(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error)
	GetAttendance(ctx context.Context, scope model.Scope, id int64) (*model.AttendanceRecord, error)
	ListAttendance(ctx context.Context, scope model.Scope) ([]model.AttendanceRecord, error)
	ListAttendanceForMonth(ctx context.Context, scope model.Scope, year, month int) ([]model.AttendanceRecord, error)
	GetScopedEmployee(ctx context.Context, scope model.Scope, id int64) (*model.Employee, error)
	ListEmployees(ctx context.Context, scope model.Scope) ([]model.Employee, error)
}

// MarkInput is an admin's request to record one day of attendance.
type MarkInput struct {
	Employee int64                  `json:"employee"`
	Date     model.Date             `json:"date"`
	Status   model.AttendanceStatus `json:"status"`
	Notes    string                 `json:"notes"`
}

// Service coordinates attendance marking, listing and monthly reports.
type Service struct {
	store Store
}

// NewService creates a service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

var errNotFound = apperr.NotFound("Not found.")

// Mark records attendance for an employee of the caller's company. Admin only.
// A second mark for the same employee and date is a conflict.
func (s *Service) Mark(ctx context.Context, caller model.Employee, in MarkInput) (model.AttendanceRecord, error) {
	if !caller.IsAdmin {
		return model.AttendanceRecord{}, apperr.Forbidden("Only admins can mark attendance")
	}
	if in.Date.IsZero() {
		return model.AttendanceRecord{}, apperr.Validation("date is required")
	}
	if !in.Status.Valid() {
		return model.AttendanceRecord{}, apperr.Validation(fmt.Sprintf("%q is not a valid choice.", in.Status))
	}
	emp, err := s.store.GetScopedEmployee(ctx, model.ScopeFor(caller), in.Employee)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if emp == nil {
		return model.AttendanceRecord{}, apperr.NotFound("Employee not found.")
	}

	rec, err := s.store.CreateAttendance(ctx, model.AttendanceRecord{
		EmployeeID: emp.ID,
		Date:       in.Date,
		Status:     in.Status,
		Notes:      in.Notes,
	})
	if errors.Is(err, apperr.ErrDuplicate) {
		return model.AttendanceRecord{}, apperr.Conflict(fmt.Sprintf(
			"Attendance for this employee on %s has already been marked.", in.Date.Format("02 Jan 2006")))
	}
	return rec, err
}

// List returns the records visible to the caller.
func (s *Service) List(ctx context.Context, caller model.Employee) ([]model.AttendanceRecord, error) {
	return s.store.ListAttendance(ctx, model.ScopeFor(caller))
}

// Get returns one record visible to the caller.
func (s *Service) Get(ctx context.Context, caller model.Employee, id int64) (model.AttendanceRecord, error) {
	rec, err := s.store.GetAttendance(ctx, model.ScopeFor(caller), id)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if rec == nil {
		return model.AttendanceRecord{}, errNotFound
	}
	return *rec, nil
}

// ForEmployee returns every record of one employee visible to the caller.
func (s *Service) ForEmployee(ctx context.Context, caller model.Employee, employeeID int64) ([]model.AttendanceRecord, error) {
	emp, err := s.store.GetScopedEmployee(ctx, model.ScopeFor(caller), employeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, errNotFound
	}
	return s.store.ListAttendance(ctx, model.Scope{CompanyID: emp.CompanyID, EmployeeID: emp.ID})
}

// MyReport returns the caller's own month. It never looks at anyone else's
// records.
func (s *Service) MyReport(ctx context.Context, caller model.Employee, year, month int) (Report, error) {
	if err := ValidatePeriod(year, month); err != nil {
		return Report{}, err
	}
	records, err := s.store.ListAttendanceForMonth(ctx, model.Scope{CompanyID: caller.CompanyID, EmployeeID: caller.ID}, year, month)
	if err != nil {
		return Report{}, err
	}
	return Report{Month: month, Year: year, Summary: Summarize(year, month, records)}, nil
}

// CompanyReport returns one summary per employee of the caller's company.
// Admin only.
func (s *Service) CompanyReport(ctx context.Context, caller model.Employee, year, month int) (CompanyReport, error) {
	if !caller.IsAdmin {
		return CompanyReport{}, apperr.Forbidden("Only admins can view company attendance")
	}
	if err := ValidatePeriod(year, month); err != nil {
		return CompanyReport{}, err
	}
	scope := model.Scope{CompanyID: caller.CompanyID}
	employees, err := s.store.ListEmployees(ctx, scope)
	if err != nil {
		return CompanyReport{}, err
	}
	records, err := s.store.ListAttendanceForMonth(ctx, scope, year, month)
	if err != nil {
		return CompanyReport{}, err
	}
	return BuildCompanyReport(year, month, employees, records), nil
}
