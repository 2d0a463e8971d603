package employee

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"hrm/internal/apperr"
	"hrm/internal/credential"
	"hrm/internal/model"
)

// Store is the persistence the employee service needs.
type Store interface {
	CreateEmployee(ctx context.Context, emp model.Employee) (model.Employee, error)
	GetEmployee(ctx context.Context, id int64) (*model.Employee, error)
	GetScopedEmployee(ctx context.Context, scope model.Scope, id int64) (*model.Employee, error)
	ListEmployees(ctx context.Context, scope model.Scope) ([]model.Employee, error)
	UpdateProfile(ctx context.Context, emp model.Employee) (model.Employee, error)
	ToggleAdmin(ctx context.Context, companyID, id int64) (*model.Employee, error)
	GetCompany(ctx context.Context, id int64) (*model.Company, error)
}

// NewEmployee is the admin-supplied data for a new employee.
type NewEmployee struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
	Position   string `json:"position"`
	IsAdmin    bool   `json:"is_admin"`
}

// ProfilePatch holds the fields an employee may change about themselves.
// Nil means unchanged.
type ProfilePatch struct {
	FullName       *string `json:"full_name"`
	Department     *string `json:"department"`
	Phone          *string `json:"phone"`
	Position       *string `json:"position"`
	ProfilePicture *string `json:"profile_picture"`
	Password       *string `json:"password"`
}

// Service implements employee and company operations, scoped to the caller.
type Service struct {
	store Store
}

// NewService creates a service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

var errNotFound = apperr.NotFound("Not found.")

// NormalizeEmail trims addr and reports whether it is a plain address.
func NormalizeEmail(addr string) (string, bool) {
	addr = strings.TrimSpace(addr)
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return addr, false
	}
	return addr, true
}

// List returns every employee of the caller's company. Admin only.
func (s *Service) List(ctx context.Context, caller model.Employee) ([]model.Employee, error) {
	if !caller.IsAdmin {
		return nil, apperr.Forbidden("Only admins can view the employee list")
	}
	return s.store.ListEmployees(ctx, model.ScopeFor(caller))
}

// Get returns one employee visible to the caller.
func (s *Service) Get(ctx context.Context, caller model.Employee, id int64) (model.Employee, error) {
	e, err := s.store.GetScopedEmployee(ctx, model.ScopeFor(caller), id)
	if err != nil {
		return model.Employee{}, err
	}
	if e == nil {
		return model.Employee{}, errNotFound
	}
	return *e, nil
}

// Create adds an employee to the caller's company. Admin only.
func (s *Service) Create(ctx context.Context, caller model.Employee, in NewEmployee) (model.Employee, error) {
	if !caller.IsAdmin {
		return model.Employee{}, apperr.Forbidden("Only admins can add employees")
	}
	email, ok := NormalizeEmail(in.Email)
	if !ok {
		return model.Employee{}, apperr.Validation("Enter a valid email address.")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return model.Employee{}, apperr.Validation("full_name is required")
	}
	if strings.TrimSpace(in.Department) == "" {
		return model.Employee{}, apperr.Validation("department is required")
	}
	emp := model.Employee{
		CompanyID:  caller.CompanyID,
		FullName:   strings.TrimSpace(in.FullName),
		Email:      email,
		Department: strings.TrimSpace(in.Department),
		Phone:      in.Phone,
		Position:   in.Position,
		IsAdmin:    in.IsAdmin,
	}
	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return model.Employee{}, err
		}
		emp.PasswordHash = hash
	}
	created, err := s.store.CreateEmployee(ctx, emp)
	if errors.Is(err, apperr.ErrDuplicate) {
		return model.Employee{}, apperr.Conflict("Employee with this email already exists")
	}
	return created, err
}

// Profile returns the caller's current record.
func (s *Service) Profile(ctx context.Context, caller model.Employee) (model.Employee, error) {
	e, err := s.store.GetEmployee(ctx, caller.ID)
	if err != nil {
		return model.Employee{}, err
	}
	if e == nil {
		return model.Employee{}, errNotFound
	}
	return *e, nil
}

// UpdateProfile applies patch to the caller. Email, employee code and company
// cannot be changed here.
func (s *Service) UpdateProfile(ctx context.Context, caller model.Employee, patch ProfilePatch) (model.Employee, error) {
	cur, err := s.Profile(ctx, caller)
	if err != nil {
		return model.Employee{}, err
	}
	if patch.FullName != nil {
		if strings.TrimSpace(*patch.FullName) == "" {
			return model.Employee{}, apperr.Validation("full_name may not be blank")
		}
		cur.FullName = strings.TrimSpace(*patch.FullName)
	}
	if patch.Department != nil {
		if strings.TrimSpace(*patch.Department) == "" {
			return model.Employee{}, apperr.Validation("department may not be blank")
		}
		cur.Department = strings.TrimSpace(*patch.Department)
	}
	if patch.Phone != nil {
		cur.Phone = *patch.Phone
	}
	if patch.Position != nil {
		cur.Position = *patch.Position
	}
	if patch.ProfilePicture != nil {
		if *patch.ProfilePicture == "" {
			cur.ProfilePicture = nil
		} else {
			pic := *patch.ProfilePicture
			cur.ProfilePicture = &pic
		}
	}
	if patch.Password != nil && *patch.Password != "" {
		hash, err := hashPassword(*patch.Password)
		if err != nil {
			return model.Employee{}, err
		}
		cur.PasswordHash = hash
	}
	return s.store.UpdateProfile(ctx, cur)
}

// SetProfilePicture stores an uploaded avatar URL for the caller.
func (s *Service) SetProfilePicture(ctx context.Context, caller model.Employee, url string) (model.Employee, error) {
	return s.UpdateProfile(ctx, caller, ProfilePatch{ProfilePicture: &url})
}

// ToggleAdmin flips the admin flag of another employee of the caller's
// company. Admin only.
func (s *Service) ToggleAdmin(ctx context.Context, caller model.Employee, id int64) (model.Employee, error) {
	if !caller.IsAdmin {
		return model.Employee{}, apperr.Forbidden("Only admins can change admin status")
	}
	target, err := s.Get(ctx, caller, id)
	if err != nil {
		return model.Employee{}, err
	}
	if target.ID == caller.ID {
		return model.Employee{}, apperr.Validation("You cannot change your own admin status")
	}
	toggled, err := s.store.ToggleAdmin(ctx, caller.CompanyID, id)
	if err != nil {
		return model.Employee{}, err
	}
	if toggled == nil {
		return model.Employee{}, errNotFound
	}
	return *toggled, nil
}

// Companies lists the companies visible to the caller, which is only their
// own.
func (s *Service) Companies(ctx context.Context, caller model.Employee) ([]model.Company, error) {
	c, err := s.store.GetCompany(ctx, caller.CompanyID)
	if err != nil || c == nil {
		return nil, err
	}
	return []model.Company{*c}, nil
}

// Company returns the company with id if it is the caller's.
func (s *Service) Company(ctx context.Context, caller model.Employee, id int64) (model.Company, error) {
	if id != caller.CompanyID {
		return model.Company{}, errNotFound
	}
	c, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return model.Company{}, err
	}
	if c == nil {
		return model.Company{}, errNotFound
	}
	return *c, nil
}

func hashPassword(plain string) (string, error) {
	hash, err := credential.HashPassword(plain)
	if errors.Is(err, credential.ErrPasswordTooShort) {
		return "", apperr.Validation("Password must be at least 6 characters")
	}
	return hash, err
}
