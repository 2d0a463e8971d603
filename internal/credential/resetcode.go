package credential

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"hrm/internal/model"
)

var (
	ErrInvalidCode = errors.New("invalid OTP")
	ErrCodeExpired = errors.New("OTP has expired")
)

// DefaultCodeTTL is how long a reset code stays redeemable.
const DefaultCodeTTL = 10 * time.Minute

// Store persists reset codes.
type Store interface {
	CreateResetCode(ctx context.Context, rc model.ResetCode) (model.ResetCode, error)
	// LatestResetCode returns the most recently created unused code matching
	// employeeID and code, or nil.
	LatestResetCode(ctx context.Context, employeeID int64, code string) (*model.ResetCode, error)
	// RedeemResetCode marks the code used and sets the employee's password
	// hash in one atomic step. It fails with ErrInvalidCode when the code was
	// already used or expired at now.
	RedeemResetCode(ctx context.Context, codeID, employeeID int64, passwordHash string, now time.Time) error
}

// ResetCodes issues and validates single-use password reset codes.
type ResetCodes struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewResetCodes creates a reset code service.
func NewResetCodes(store Store, ttl time.Duration) *ResetCodes {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &ResetCodes{store: store, ttl: ttl, now: time.Now}
}

// Issue generates and persists a fresh 6-digit code for employeeID.
func (r *ResetCodes) Issue(ctx context.Context, employeeID int64) (model.ResetCode, error) {
	code, err := randomCode()
	if err != nil {
		return model.ResetCode{}, err
	}
	now := r.now().UTC()
	return r.store.CreateResetCode(ctx, model.ResetCode{
		EmployeeID: employeeID,
		Code:       code,
		CreatedAt:  now,
		ExpiresAt:  now.Add(r.ttl),
	})
}

// Check finds the newest unused code matching the submission. It does not
// mark the code used.
func (r *ResetCodes) Check(ctx context.Context, employeeID int64, code string) (model.ResetCode, error) {
	rc, err := r.store.LatestResetCode(ctx, employeeID, code)
	if err != nil {
		return model.ResetCode{}, err
	}
	if rc == nil {
		return model.ResetCode{}, ErrInvalidCode
	}
	if !rc.ValidAt(r.now()) {
		return model.ResetCode{}, ErrCodeExpired
	}
	return *rc, nil
}

// Redeem validates the code and, atomically with marking it used, stores
// passwordHash for the employee.
func (r *ResetCodes) Redeem(ctx context.Context, employeeID int64, code, passwordHash string) error {
	rc, err := r.Check(ctx, employeeID, code)
	if err != nil {
		return err
	}
	return r.store.RedeemResetCode(ctx, rc.ID, employeeID, passwordHash, r.now().UTC())
}

// randomCode draws uniformly from [100000, 999999].
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
