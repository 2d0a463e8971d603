package credential

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hrm/internal/model"
	"hrm/internal/store"
)

// Repository persists reset codes in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateResetCode stores a new unused code and returns it with its id.
func (r *Repository) CreateResetCode(ctx context.Context, rc model.ResetCode) (model.ResetCode, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO password_reset_codes (employee_id, code, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, rc.EmployeeID, rc.Code, rc.CreatedAt, rc.ExpiresAt)
	if err := row.Scan(&rc.ID); err != nil {
		return model.ResetCode{}, err
	}
	return rc, nil
}

// LatestResetCode returns the newest unused code matching code for the
// employee, or nil. Expiry is left to the caller.
func (r *Repository) LatestResetCode(ctx context.Context, employeeID int64, code string) (*model.ResetCode, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, employee_id, code, created_at, expires_at, used
		FROM password_reset_codes
		WHERE employee_id = $1 AND code = $2 AND NOT used
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, employeeID, code)
	var rc model.ResetCode
	if err := row.Scan(&rc.ID, &rc.EmployeeID, &rc.Code, &rc.CreatedAt, &rc.ExpiresAt, &rc.Used); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rc, nil
}

// RedeemResetCode marks the code used and sets the new password hash in one
// transaction. It returns ErrInvalidCode when the code is already used or
// expired, so only one of several concurrent redeems wins.
func (r *Repository) RedeemResetCode(ctx context.Context, codeID, employeeID int64, passwordHash string, now time.Time) error {
	return store.InTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE password_reset_codes
			SET used = TRUE
			WHERE id = $1 AND employee_id = $2 AND NOT used AND expires_at > $3
		`, codeID, employeeID, now)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrInvalidCode
		}
		_, err = tx.ExecContext(ctx, `UPDATE employees SET password_hash = $2 WHERE id = $1`, employeeID, passwordHash)
		return err
	})
}
