package invitation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"hrm/internal/apperr"
	"hrm/internal/credential"
	"hrm/internal/employee"
	"hrm/internal/model"
)

// PageSize is the number of invitations per list page.
const PageSize = 10

const tokenBytes = 32

// ErrNotOpen is returned by AcceptInvitation when the token does not name an
// unaccepted, unexpired invitation.
var ErrNotOpen = errors.New("invalid or expired invitation")

var errInvalid = apperr.NotFound("Invalid or expired invitation")

// Store persists invitations.
type Store interface {
	CreateInvitation(ctx context.Context, inv model.Invitation) (model.Invitation, error)
	DeleteInvitation(ctx context.Context, id int64) error
	// PendingInvitation returns the unaccepted invitation for email in
	// companyID, or nil.
	PendingInvitation(ctx context.Context, companyID int64, email string) (*model.Invitation, error)
	// OpenInvitation returns the invitation with token if it is neither
	// accepted nor expired, or nil.
	OpenInvitation(ctx context.Context, token string) (*model.Invitation, error)
	// AcceptInvitation claims the open invitation named by token and creates
	// emp in its company in one atomic step. It returns ErrNotOpen when the
	// invitation was already claimed.
	AcceptInvitation(ctx context.Context, token string, emp model.Employee, now time.Time) (model.Employee, error)
	ListInvitations(ctx context.Context, companyID int64, limit, offset int) ([]model.Invitation, int, error)
	FindEmployeeByEmail(ctx context.Context, email string) (*model.Employee, error)
}

// Mailer delivers invitation emails.
type Mailer interface {
	SendInvitation(ctx context.Context, to, link, companyName, inviterName string) error
}

// Service implements the invitation flow.
type Service struct {
	store       Store
	mailer      Mailer
	frontendURL string
	now         func() time.Time
}

// NewService creates a service. Links point at frontendURL.
func NewService(store Store, mailer Mailer, frontendURL string) *Service {
	return &Service{
		store:       store,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

// Send creates an invitation for email into the caller's company and emails
// the link. If delivery fails the invitation is removed again.
func (s *Service) Send(ctx context.Context, caller model.Employee, email string) (model.Invitation, error) {
	if !caller.IsAdmin {
		return model.Invitation{}, apperr.Forbidden("Only admins can send invitations")
	}
	if strings.TrimSpace(email) == "" {
		return model.Invitation{}, apperr.Validation("Email is required")
	}
	email, ok := employee.NormalizeEmail(email)
	if !ok {
		return model.Invitation{}, apperr.Validation("Enter a valid email address.")
	}

	existing, err := s.store.FindEmployeeByEmail(ctx, email)
	if err != nil {
		return model.Invitation{}, err
	}
	if existing != nil {
		return model.Invitation{}, apperr.Validation("Employee with this email already exists")
	}
	pending, err := s.store.PendingInvitation(ctx, caller.CompanyID, email)
	if err != nil {
		return model.Invitation{}, err
	}
	if pending != nil {
		return model.Invitation{}, apperr.Validation("Invitation already sent to this email")
	}

	token, err := generateToken()
	if err != nil {
		return model.Invitation{}, err
	}
	inv, err := s.store.CreateInvitation(ctx, model.Invitation{
		Email:     email,
		CompanyID: caller.CompanyID,
		InvitedBy: caller.ID,
		Token:     token,
	})
	if errors.Is(err, apperr.ErrDuplicate) {
		return model.Invitation{}, apperr.Validation("Invitation already sent to this email")
	}
	if err != nil {
		return model.Invitation{}, err
	}

	link := s.frontendURL + "/accept-invitation?token=" + url.QueryEscape(inv.Token)
	if err := s.mailer.SendInvitation(ctx, email, link, caller.CompanyName, caller.FullName); err != nil {
		if delErr := s.store.DeleteInvitation(context.WithoutCancel(ctx), inv.ID); delErr != nil {
			slog.Error("rollback invitation failed", "invitation_id", inv.ID, "err", delErr)
		}
		slog.Error("invitation email failed", "invitation_id", inv.ID, "err", err)
		return model.Invitation{}, apperr.Upstream("Failed to send email", err)
	}
	slog.Info("invitation sent", "invitation_id", inv.ID, "company_id", caller.CompanyID)
	return inv, nil
}

// Verify returns the open invitation named by token.
func (s *Service) Verify(ctx context.Context, token string) (model.Invitation, error) {
	if token == "" {
		return model.Invitation{}, apperr.Validation("Token is required")
	}
	inv, err := s.store.OpenInvitation(ctx, token)
	if err != nil {
		return model.Invitation{}, err
	}
	if inv == nil {
		return model.Invitation{}, errInvalid
	}
	return *inv, nil
}

// Acceptance is the data an invitee supplies to create their account.
type Acceptance struct {
	Token      string `json:"token"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
	Position   string `json:"position"`
}

// Accept creates a non-admin employee from an open invitation. A token can be
// used once.
func (s *Service) Accept(ctx context.Context, in Acceptance) (model.Employee, error) {
	if in.Token == "" || in.Password == "" || strings.TrimSpace(in.FullName) == "" {
		return model.Employee{}, apperr.Validation("Token, password, and full name are required")
	}
	hash, err := credential.HashPassword(in.Password)
	if errors.Is(err, credential.ErrPasswordTooShort) {
		return model.Employee{}, apperr.Validation("Password must be at least 6 characters")
	}
	if err != nil {
		return model.Employee{}, err
	}
	department := strings.TrimSpace(in.Department)
	if department == "" {
		department = "General"
	}

	emp, err := s.store.AcceptInvitation(ctx, in.Token, model.Employee{
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: hash,
		Department:   department,
		Phone:        in.Phone,
		Position:     in.Position,
	}, s.now().UTC())
	switch {
	case errors.Is(err, ErrNotOpen):
		return model.Employee{}, errInvalid
	case errors.Is(err, apperr.ErrDuplicate):
		return model.Employee{}, apperr.Validation("Employee with this email already exists")
	case err != nil:
		return model.Employee{}, err
	}
	slog.Info("invitation accepted", "employee_id", emp.ID, "company_id", emp.CompanyID)
	return emp, nil
}

// Page is one page of a paginated listing.
type Page struct {
	Count    int                `json:"count"`
	Next     *int               `json:"-"`
	Previous *int               `json:"-"`
	Results  []model.Invitation `json:"results"`
}

// List returns page (1-based) of the caller company's invitations, newest
// first. Admin only.
func (s *Service) List(ctx context.Context, caller model.Employee, page int) (Page, error) {
	if !caller.IsAdmin {
		return Page{}, apperr.Forbidden("Only admins can view invitations")
	}
	if page < 1 {
		return Page{}, apperr.NotFound("Invalid page.")
	}
	items, total, err := s.store.ListInvitations(ctx, caller.CompanyID, PageSize, (page-1)*PageSize)
	if err != nil {
		return Page{}, err
	}
	if page > 1 && len(items) == 0 {
		return Page{}, apperr.NotFound("Invalid page.")
	}
	p := Page{Count: total, Results: items}
	if p.Results == nil {
		p.Results = []model.Invitation{}
	}
	if page*PageSize < total {
		next := page + 1
		p.Next = &next
	}
	if page > 1 {
		prev := page - 1
		p.Previous = &prev
	}
	return p, nil
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
