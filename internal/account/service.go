// Package account implements the public authentication flows: registration,
// login, password reset and token lifecycle.
package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"hrm/internal/apperr"
	"hrm/internal/auth"
	"hrm/internal/credential"
	"hrm/internal/employee"
	"hrm/internal/metrics"
	"hrm/internal/model"
)

// ForgotPasswordMessage is returned whether or not the email is known.
const ForgotPasswordMessage = "If this email exists, an OTP has been sent"

var (
	errInvalidCredentials = apperr.Unauthenticated("Invalid credentials")
	errInvalidOTP         = apperr.Validation("Invalid OTP")
	errExpiredOTP         = apperr.Validation("OTP has expired")
)

// Store is the persistence the account flows need.
type Store interface {
	CreateCompanyWithAdmin(ctx context.Context, company model.Company, admin model.Employee) (model.Employee, error)
	FindEmployeeByEmail(ctx context.Context, email string) (*model.Employee, error)
}

// Mailer delivers reset codes.
type Mailer interface {
	SendOTP(ctx context.Context, to, code, name string) error
}

// Session is the result of a successful authentication.
type Session struct {
	Tokens   auth.TokenPair
	Employee model.Employee
}

// Registration creates a company and its first admin.
type Registration struct {
	CompanyName string `json:"company_name"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Department  string `json:"department"`
	Phone       string `json:"phone"`
}

// Service wires the credential store, token issuer and mailer together.
type Service struct {
	store  Store
	codes  *credential.ResetCodes
	issuer *auth.Issuer
	mailer Mailer
}

// NewService creates the account service.
func NewService(store Store, codes *credential.ResetCodes, issuer *auth.Issuer, mailer Mailer) *Service {
	return &Service{store: store, codes: codes, issuer: issuer, mailer: mailer}
}

// Register creates a new tenant with the registrant as its admin and logs
// them in.
func (s *Service) Register(ctx context.Context, in Registration) (Session, error) {
	email, ok := employee.NormalizeEmail(in.Email)
	switch {
	case strings.TrimSpace(in.CompanyName) == "":
		return Session{}, apperr.Validation("company_name is required")
	case strings.TrimSpace(in.FullName) == "":
		return Session{}, apperr.Validation("full_name is required")
	case strings.TrimSpace(in.Department) == "":
		return Session{}, apperr.Validation("department is required")
	case !ok:
		return Session{}, apperr.Validation("Enter a valid email address.")
	}
	hash, err := credential.HashPassword(in.Password)
	if errors.Is(err, credential.ErrPasswordTooShort) {
		return Session{}, apperr.Validation("Password must be at least 6 characters")
	}
	if err != nil {
		return Session{}, err
	}

	emp, err := s.store.CreateCompanyWithAdmin(ctx, model.Company{Name: strings.TrimSpace(in.CompanyName)}, model.Employee{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		PasswordHash: hash,
		Department:   strings.TrimSpace(in.Department),
		Phone:        in.Phone,
	})
	if errors.Is(err, apperr.ErrDuplicate) {
		return Session{}, apperr.Conflict("Employee ID or Email already exists")
	}
	if err != nil {
		return Session{}, err
	}
	slog.Info("company registered", "company_id", emp.CompanyID, "employee_id", emp.ID)
	return s.SessionFor(emp)
}

// Login authenticates by email and password. Unknown email and wrong
// password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, apperr.Validation("Email and password required")
	}
	emp, err := s.store.FindEmployeeByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return Session{}, err
	}
	if emp == nil {
		credential.BurnCompare(password)
		metrics.AuthEvents.WithLabelValues("login", "rejected").Inc()
		return Session{}, errInvalidCredentials
	}
	if !credential.CheckPassword(emp.PasswordHash, password) {
		metrics.AuthEvents.WithLabelValues("login", "rejected").Inc()
		return Session{}, errInvalidCredentials
	}
	metrics.AuthEvents.WithLabelValues("login", "ok").Inc()
	return s.SessionFor(*emp)
}

// SessionFor issues a token pair for an already authenticated employee.
func (s *Service) SessionFor(emp model.Employee) (Session, error) {
	tokens, err := s.issuer.Issue(auth.SubjectFor(emp))
	if err != nil {
		return Session{}, err
	}
	return Session{Tokens: tokens, Employee: emp}, nil
}

// ForgotPassword issues and emails a reset code when the email is known. The
// returned message is the same either way.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperr.Validation("Email is required")
	}
	emp, err := s.store.FindEmployeeByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if emp == nil {
		metrics.AuthEvents.WithLabelValues("forgot_password", "unknown").Inc()
		return ForgotPasswordMessage, nil
	}
	rc, err := s.codes.Issue(ctx, emp.ID)
	if err != nil {
		return "", err
	}
	if err := s.mailer.SendOTP(ctx, emp.Email, rc.Code, emp.FullName); err != nil {
		metrics.AuthEvents.WithLabelValues("forgot_password", "mail_failed").Inc()
		slog.Error("reset code email failed", "employee_id", emp.ID, "err", err)
		return "", apperr.Upstream("Failed to send email", err)
	}
	metrics.AuthEvents.WithLabelValues("forgot_password", "sent").Inc()
	return ForgotPasswordMessage, nil
}

// VerifyOTP checks a reset code without consuming it. The returned reset
// token is informational; ResetPassword validates the code again.
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	if strings.TrimSpace(email) == "" || otp == "" {
		return "", apperr.Validation("Email and OTP are required")
	}
	emp, err := s.store.FindEmployeeByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", err
	}
	if emp == nil {
		return "", errInvalidOTP
	}
	if _, err := s.codes.Check(ctx, emp.ID, otp); err != nil {
		return "", otpError(err)
	}
	return resetToken()
}

// ResetPassword re-validates the code, then sets the new password and marks
// the code used in one atomic step.
func (s *Service) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	if strings.TrimSpace(email) == "" || otp == "" || newPassword == "" {
		return apperr.Validation("Email, OTP, and new password are required")
	}
	hash, err := credential.HashPassword(newPassword)
	if errors.Is(err, credential.ErrPasswordTooShort) {
		return apperr.Validation("Password must be at least 6 characters")
	}
	if err != nil {
		return err
	}
	emp, err := s.store.FindEmployeeByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if emp == nil {
		return errInvalidOTP
	}
	if err := s.codes.Redeem(ctx, emp.ID, otp, hash); err != nil {
		return otpError(err)
	}
	metrics.AuthEvents.WithLabelValues("reset_password", "ok").Inc()
	slog.Info("password reset", "employee_id", emp.ID)
	return nil
}

// Logout revokes a refresh token. It never fails for bad input.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	if err := s.issuer.Revoke(ctx, refreshToken); err != nil {
		slog.Warn("refresh token revocation failed", "err", err)
	}
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	if refreshToken == "" {
		return "", time.Time{}, apperr.Validation("refresh is required")
	}
	access, exp, err := s.issuer.Refresh(ctx, refreshToken)
	switch {
	case errors.Is(err, auth.ErrTokenRevoked), errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrTokenInvalid):
		return "", time.Time{}, apperr.Unauthenticated("Token is invalid or expired")
	case err != nil:
		return "", time.Time{}, err
	}
	return access, exp, nil
}

func otpError(err error) error {
	switch {
	case errors.Is(err, credential.ErrInvalidCode):
		return errInvalidOTP
	case errors.Is(err, credential.ErrCodeExpired):
		return errExpiredOTP
	}
	return err
}

func resetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
