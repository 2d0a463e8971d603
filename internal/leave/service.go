package leave

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"hrm/internal/apperr"
	"hrm/internal/model"
)

// Store is the persistence the leave service needs.
type Store interface {
	CreateLeave(ctx context.Context, l model.Leave) (model.Leave, error)
	GetLeave(ctx context.Context, scope model.Scope, id int64) (*model.Leave, error)
	ListLeaves(ctx context.Context, scope model.Scope) ([]model.Leave, error)
	// TransitionLeave moves a leave of companyID to status `to` if it is
	// Pending or already `to`, and returns the result. It returns nil when
	// the leave does not exist or holds the other decision.
	TransitionLeave(ctx context.Context, companyID, id int64, to model.LeaveStatus, now time.Time) (*model.Leave, error)
	GetEmployee(ctx context.Context, id int64) (*model.Employee, error)
	GetScopedEmployee(ctx context.Context, scope model.Scope, id int64) (*model.Employee, error)
}

// Notifier is told about decisions so the employee can be emailed.
type Notifier interface {
	LeaveDecided(ctx context.Context, l model.Leave, emp model.Employee) error
}

// NewLeave is a leave request as submitted.
type NewLeave struct {
	Employee  int64           `json:"employee"`
	LeaveType model.LeaveType `json:"leave_type"`
	StartDate model.Date      `json:"start_date"`
	EndDate   model.Date      `json:"end_date"`
	Reason    string          `json:"reason"`
}

// Service implements leave requests and their decisions.
type Service struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

// NewService creates a service. notifier may be nil.
func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier, now: time.Now}
}

var errNotFound = apperr.NotFound("Not found.")

// Create files a leave request. Members always file for themselves; admins
// may file for any employee of their company.
func (s *Service) Create(ctx context.Context, caller model.Employee, in NewLeave) (model.Leave, error) {
	target := caller.ID
	if caller.IsAdmin && in.Employee != 0 {
		target = in.Employee
	}
	if !in.LeaveType.Valid() {
		return model.Leave{}, apperr.Validation("leave_type must be one of Sick, Casual, Earned")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return model.Leave{}, apperr.Validation("start_date and end_date are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return model.Leave{}, apperr.Validation("end_date must be on or after start_date")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return model.Leave{}, apperr.Validation("reason is required")
	}
	emp, err := s.store.GetScopedEmployee(ctx, model.ScopeFor(caller), target)
	if err != nil {
		return model.Leave{}, err
	}
	if emp == nil {
		return model.Leave{}, apperr.NotFound("Employee not found.")
	}
	return s.store.CreateLeave(ctx, model.Leave{
		EmployeeID: emp.ID,
		LeaveType:  in.LeaveType,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Reason:     strings.TrimSpace(in.Reason),
		Status:     model.LeavePending,
	})
}

// List returns the leaves visible to the caller.
func (s *Service) List(ctx context.Context, caller model.Employee) ([]model.Leave, error) {
	return s.store.ListLeaves(ctx, model.ScopeFor(caller))
}

// Get returns one leave visible to the caller.
func (s *Service) Get(ctx context.Context, caller model.Employee, id int64) (model.Leave, error) {
	l, err := s.store.GetLeave(ctx, model.ScopeFor(caller), id)
	if err != nil {
		return model.Leave{}, err
	}
	if l == nil {
		return model.Leave{}, errNotFound
	}
	return *l, nil
}

// ForEmployee returns the leaves of one employee visible to the caller.
func (s *Service) ForEmployee(ctx context.Context, caller model.Employee, employeeID int64) ([]model.Leave, error) {
	emp, err := s.store.GetScopedEmployee(ctx, model.ScopeFor(caller), employeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, errNotFound
	}
	return s.store.ListLeaves(ctx, model.Scope{CompanyID: emp.CompanyID, EmployeeID: emp.ID})
}

// Approve moves a pending leave to Approved. Admin only.
func (s *Service) Approve(ctx context.Context, caller model.Employee, id int64) (model.Leave, error) {
	return s.decide(ctx, caller, id, model.LeaveApproved)
}

// Reject moves a pending leave to Rejected. Admin only.
func (s *Service) Reject(ctx context.Context, caller model.Employee, id int64) (model.Leave, error) {
	return s.decide(ctx, caller, id, model.LeaveRejected)
}

// decide applies a guarded transition. Repeating the same decision succeeds
// without side effects; reversing a decision is a conflict.
func (s *Service) decide(ctx context.Context, caller model.Employee, id int64, to model.LeaveStatus) (model.Leave, error) {
	if !caller.IsAdmin {
		return model.Leave{}, apperr.Forbidden("Only admins can approve or reject leaves")
	}
	cur, err := s.Get(ctx, caller, id)
	if err != nil {
		return model.Leave{}, err
	}
	updated, err := s.store.TransitionLeave(ctx, caller.CompanyID, id, to, s.now().UTC())
	if err != nil {
		return model.Leave{}, err
	}
	if updated == nil {
		latest, err := s.Get(ctx, caller, id)
		if err != nil {
			return model.Leave{}, err
		}
		return model.Leave{}, apperr.Conflict("Leave has already been " + strings.ToLower(string(latest.Status)))
	}
	if cur.Status == model.LeavePending {
		s.notify(ctx, *updated)
	}
	return *updated, nil
}

func (s *Service) notify(ctx context.Context, l model.Leave) {
	if s.notifier == nil {
		return
	}
	emp, err := s.store.GetEmployee(ctx, l.EmployeeID)
	if err != nil || emp == nil {
		slog.Warn("leave decision not notified", "leave_id", l.ID, "err", err)
		return
	}
	if err := s.notifier.LeaveDecided(ctx, l, *emp); err != nil {
		slog.Warn("leave decision not notified", "leave_id", l.ID, "err", err)
	}
}
