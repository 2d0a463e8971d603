// Package memstore is an in-memory implementation of every repository. It
// backs STORE_BACKEND=memory and the service tests, and keeps the same
// uniqueness and conditional-update guarantees as the Postgres schema.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"hrm/internal/apperr"
	"hrm/internal/credential"
	"hrm/internal/invitation"
	"hrm/internal/model"
)

// Store holds all tables behind one mutex.
type Store struct {
	mu     sync.Mutex
	nextID int64

	companies   map[int64]model.Company
	employees   map[int64]model.Employee
	resetCodes  map[int64]model.ResetCode
	attendance  map[int64]model.AttendanceRecord
	leaves      map[int64]model.Leave
	invitations map[int64]model.Invitation

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		companies:   make(map[int64]model.Company),
		employees:   make(map[int64]model.Employee),
		resetCodes:  make(map[int64]model.ResetCode),
		attendance:  make(map[int64]model.AttendanceRecord),
		leaves:      make(map[int64]model.Leave),
		invitations: make(map[int64]model.Invitation),
		now:         time.Now,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func duplicate(constraint string) error {
	return fmt.Errorf("%w: %s", apperr.ErrDuplicate, constraint)
}

// ---------- companies & employees ----------

func (s *Store) CreateCompanyWithAdmin(_ context.Context, company model.Company, admin model.Employee) (model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEmailLocked(0, admin.Email); err != nil {
		return model.Employee{}, err
	}
	company.ID = s.id()
	if company.CreatedAt.IsZero() {
		company.CreatedAt = s.now().UTC()
	}
	s.companies[company.ID] = company

	admin.CompanyID = company.ID
	admin.IsAdmin = true
	return s.insertEmployeeLocked(admin)
}

func (s *Store) CreateEmployee(_ context.Context, emp model.Employee) (model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.companies[emp.CompanyID]; !ok {
		return model.Employee{}, fmt.Errorf("company %d does not exist", emp.CompanyID)
	}
	if err := s.checkEmailLocked(emp.CompanyID, emp.Email); err != nil {
		return model.Employee{}, err
	}
	return s.insertEmployeeLocked(emp)
}

func (s *Store) checkEmailLocked(companyID int64, email string) error {
	for _, e := range s.employees {
		if strings.EqualFold(e.Email, email) {
			if e.CompanyID == companyID {
				return duplicate("employees_company_email_key")
			}
			return duplicate("employees_email_key")
		}
	}
	return nil
}

func (s *Store) insertEmployeeLocked(emp model.Employee) (model.Employee, error) {
	count := 0
	for _, e := range s.employees {
		if e.CompanyID == emp.CompanyID {
			count++
		}
	}
	emp.ID = s.id()
	emp.EmployeeID = model.EmployeeCode(count + 1)
	emp.CompanyName = s.companies[emp.CompanyID].Name
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = s.now().UTC()
	}
	s.employees[emp.ID] = emp
	return emp, nil
}

func (s *Store) GetEmployee(_ context.Context, id int64) (*model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Store) FindEmployeeByEmail(_ context.Context, email string) (*model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.employees {
		if strings.EqualFold(e.Email, strings.TrimSpace(email)) {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *Store) GetScopedEmployee(_ context.Context, scope model.Scope, id int64) (*model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok || !scope.Allows(e.CompanyID, e.ID) {
		return nil, nil
	}
	return &e, nil
}

func (s *Store) ListEmployees(_ context.Context, scope model.Scope) ([]model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Employee
	for _, e := range s.employees {
		if scope.Allows(e.CompanyID, e.ID) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateProfile(_ context.Context, emp model.Employee) (model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.employees[emp.ID]
	if !ok {
		return model.Employee{}, fmt.Errorf("employee %d does not exist", emp.ID)
	}
	cur.FullName = emp.FullName
	cur.Department = emp.Department
	cur.Phone = emp.Phone
	cur.Position = emp.Position
	cur.ProfilePicture = emp.ProfilePicture
	cur.PasswordHash = emp.PasswordHash
	s.employees[cur.ID] = cur
	return cur, nil
}

func (s *Store) ToggleAdmin(_ context.Context, companyID, id int64) (*model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok || e.CompanyID != companyID {
		return nil, nil
	}
	e.IsAdmin = !e.IsAdmin
	s.employees[id] = e
	return &e, nil
}

func (s *Store) GetCompany(_ context.Context, id int64) (*model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// ---------- reset codes ----------

func (s *Store) CreateResetCode(_ context.Context, rc model.ResetCode) (model.ResetCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc.ID = s.id()
	s.resetCodes[rc.ID] = rc
	return rc, nil
}

func (s *Store) LatestResetCode(_ context.Context, employeeID int64, code string) (*model.ResetCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *model.ResetCode
	for _, rc := range s.resetCodes {
		if rc.EmployeeID != employeeID || rc.Code != code || rc.Used {
			continue
		}
		if best == nil || rc.CreatedAt.After(best.CreatedAt) || (rc.CreatedAt.Equal(best.CreatedAt) && rc.ID > best.ID) {
			c := rc
			best = &c
		}
	}
	return best, nil
}

func (s *Store) RedeemResetCode(_ context.Context, codeID, employeeID int64, passwordHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc, ok := s.resetCodes[codeID]
	if !ok || rc.EmployeeID != employeeID || !rc.ValidAt(now) {
		return credential.ErrInvalidCode
	}
	e, ok := s.employees[employeeID]
	if !ok {
		return credential.ErrInvalidCode
	}
	rc.Used = true
	s.resetCodes[codeID] = rc
	e.PasswordHash = passwordHash
	s.employees[employeeID] = e
	return nil
}

// ---------- attendance ----------

func (s *Store) CreateAttendance(_ context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[rec.EmployeeID]
	if !ok {
		return model.AttendanceRecord{}, fmt.Errorf("employee %d does not exist", rec.EmployeeID)
	}
	for _, r := range s.attendance {
		if r.EmployeeID == rec.EmployeeID && r.Date.Equal(rec.Date.Time) {
			return model.AttendanceRecord{}, duplicate("attendance_records_employee_date_key")
		}
	}
	rec.ID = s.id()
	rec.EmployeeCode = e.EmployeeID
	rec.EmployeeName = e.FullName
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	s.attendance[rec.ID] = rec
	return rec, nil
}

func (s *Store) GetAttendance(_ context.Context, scope model.Scope, id int64) (*model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.attendance[id]
	if !ok || !s.visibleLocked(scope, r.EmployeeID) {
		return nil, nil
	}
	return &r, nil
}

func (s *Store) ListAttendance(_ context.Context, scope model.Scope) ([]model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attendanceLocked(scope, func(model.AttendanceRecord) bool { return true }), nil
}

func (s *Store) ListAttendanceForMonth(_ context.Context, scope model.Scope, year, month int) ([]model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attendanceLocked(scope, func(r model.AttendanceRecord) bool {
		return r.Date.Year() == year && int(r.Date.Month()) == month
	}), nil
}

func (s *Store) attendanceLocked(scope model.Scope, keep func(model.AttendanceRecord) bool) []model.AttendanceRecord {
	var out []model.AttendanceRecord
	for _, r := range s.attendance {
		if s.visibleLocked(scope, r.EmployeeID) && keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) visibleLocked(scope model.Scope, employeeID int64) bool {
	e, ok := s.employees[employeeID]
	return ok && scope.Allows(e.CompanyID, e.ID)
}

// ---------- leaves ----------

func (s *Store) CreateLeave(_ context.Context, l model.Leave) (model.Leave, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[l.EmployeeID]
	if !ok {
		return model.Leave{}, fmt.Errorf("employee %d does not exist", l.EmployeeID)
	}
	l.ID = s.id()
	l.EmployeeCode = e.EmployeeID
	l.EmployeeName = e.FullName
	if l.Status == "" {
		l.Status = model.LeavePending
	}
	now := s.now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	s.leaves[l.ID] = l
	return l, nil
}

func (s *Store) GetLeave(_ context.Context, scope model.Scope, id int64) (*model.Leave, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leaves[id]
	if !ok || !s.visibleLocked(scope, l.EmployeeID) {
		return nil, nil
	}
	return &l, nil
}

func (s *Store) ListLeaves(_ context.Context, scope model.Scope) ([]model.Leave, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Leave
	for _, l := range s.leaves {
		if s.visibleLocked(scope, l.EmployeeID) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) TransitionLeave(_ context.Context, companyID, id int64, to model.LeaveStatus, now time.Time) (*model.Leave, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leaves[id]
	if !ok || !s.visibleLocked(model.Scope{CompanyID: companyID}, l.EmployeeID) {
		return nil, nil
	}
	if l.Status != model.LeavePending && l.Status != to {
		return nil, nil
	}
	l.Status = to
	l.UpdatedAt = now
	s.leaves[id] = l
	return &l, nil
}

// ---------- invitations ----------

func (s *Store) CreateInvitation(_ context.Context, inv model.Invitation) (model.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.invitations {
		if other.CompanyID == inv.CompanyID && strings.EqualFold(other.Email, inv.Email) {
			return model.Invitation{}, duplicate("invitations_email_company_key")
		}
		if other.Token == inv.Token {
			return model.Invitation{}, duplicate("invitations_token_key")
		}
	}
	inv.ID = s.id()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = s.now().UTC()
	}
	s.invitations[inv.ID] = s.decorateLocked(inv)
	return s.invitations[inv.ID], nil
}

func (s *Store) decorateLocked(inv model.Invitation) model.Invitation {
	inv.CompanyName = s.companies[inv.CompanyID].Name
	inv.InvitedByName = s.employees[inv.InvitedBy].FullName
	return inv
}

func (s *Store) DeleteInvitation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.invitations, id)
	return nil
}

func (s *Store) PendingInvitation(_ context.Context, companyID int64, email string) (*model.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invitations {
		if inv.CompanyID == companyID && strings.EqualFold(inv.Email, email) && !inv.IsAccepted {
			return &inv, nil
		}
	}
	return nil, nil
}

func (s *Store) OpenInvitation(_ context.Context, token string) (*model.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.openLocked(token)
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (s *Store) openLocked(token string) (model.Invitation, bool) {
	for _, inv := range s.invitations {
		if inv.Token == token && !inv.IsAccepted && !inv.IsExpired {
			return s.decorateLocked(inv), true
		}
	}
	return model.Invitation{}, false
}

func (s *Store) AcceptInvitation(_ context.Context, token string, emp model.Employee, now time.Time) (model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.openLocked(token)
	if !ok {
		return model.Employee{}, invitation.ErrNotOpen
	}
	emp.CompanyID = inv.CompanyID
	emp.Email = inv.Email
	emp.IsAdmin = false
	if err := s.checkEmailLocked(inv.CompanyID, emp.Email); err != nil {
		return model.Employee{}, err
	}
	created, err := s.insertEmployeeLocked(emp)
	if err != nil {
		return model.Employee{}, err
	}
	inv.IsAccepted = true
	inv.AcceptedAt = &now
	s.invitations[inv.ID] = inv
	return created, nil
}

func (s *Store) ListInvitations(_ context.Context, companyID int64, limit, offset int) ([]model.Invitation, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.Invitation
	for _, inv := range s.invitations {
		if inv.CompanyID == companyID {
			all = append(all, s.decorateLocked(inv))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}
