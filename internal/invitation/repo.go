package invitation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hrm/internal/employee"
	"hrm/internal/model"
	"hrm/internal/store"
)

// Repository persists invitations in Postgres.
type Repository struct {
	*employee.Repository
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{Repository: employee.NewRepository(db), db: db}
}

const selectInvitation = `
	SELECT i.id, i.email, i.company_id, c.name, i.invited_by, e.full_name, i.created_at,
	       i.is_accepted, i.accepted_at, i.is_expired, i.token
	FROM invitations i
	JOIN companies c ON c.id = i.company_id
	JOIN employees e ON e.id = i.invited_by`

type scanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row scanner) (model.Invitation, error) {
	var inv model.Invitation
	err := row.Scan(&inv.ID, &inv.Email, &inv.CompanyID, &inv.CompanyName, &inv.InvitedBy, &inv.InvitedByName,
		&inv.CreatedAt, &inv.IsAccepted, &inv.AcceptedAt, &inv.IsExpired, &inv.Token)
	return inv, err
}

func (r *Repository) one(ctx context.Context, where string, args ...any) (*model.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, selectInvitation+" WHERE "+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

// CreateInvitation inserts a pending invitation. A second pending invite for
// the same company and email fails with apperr.ErrDuplicate.
func (r *Repository) CreateInvitation(ctx context.Context, inv model.Invitation) (model.Invitation, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO invitations (email, company_id, invited_by, token)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, inv.Email, inv.CompanyID, inv.InvitedBy, inv.Token).Scan(&id)
	if err != nil {
		return model.Invitation{}, store.MapError(err)
	}
	created, err := r.one(ctx, "i.id = $1", id)
	if err != nil {
		return model.Invitation{}, err
	}
	return *created, nil
}

// DeleteInvitation removes an invitation whose email could not be sent.
func (r *Repository) DeleteInvitation(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	return err
}

// PendingInvitation returns the unaccepted invitation for email in the
// company, or nil.
func (r *Repository) PendingInvitation(ctx context.Context, companyID int64, email string) (*model.Invitation, error) {
	return r.one(ctx, "i.company_id = $1 AND lower(i.email) = lower($2) AND NOT i.is_accepted", companyID, email)
}

// OpenInvitation returns the invitation for token if it can still be
// accepted, or nil.
func (r *Repository) OpenInvitation(ctx context.Context, token string) (*model.Invitation, error) {
	return r.one(ctx, "i.token = $1 AND NOT i.is_accepted AND NOT i.is_expired", token)
}

// AcceptInvitation claims the invitation with a conditional update so two
// concurrent accepts cannot both succeed, then inserts the employee in the
// same transaction.
func (r *Repository) AcceptInvitation(ctx context.Context, token string, emp model.Employee, now time.Time) (model.Employee, error) {
	var created model.Employee
	err := store.InTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE invitations SET is_accepted = TRUE, accepted_at = $2
			WHERE token = $1 AND NOT is_accepted AND NOT is_expired
			RETURNING email, company_id
		`, token, now).Scan(&emp.Email, &emp.CompanyID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotOpen
		}
		if err != nil {
			return err
		}
		emp.IsAdmin = false
		created, err = employee.InsertTx(ctx, tx, emp)
		return err
	})
	return created, store.MapError(err)
}

// ListInvitations returns one page of the company's invitations, newest
// first, and the total count.
func (r *Repository) ListInvitations(ctx context.Context, companyID int64, limit, offset int) ([]model.Invitation, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invitations WHERE company_id = $1`, companyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, selectInvitation+`
		WHERE i.company_id = $1
		ORDER BY i.created_at DESC, i.id DESC
		LIMIT $2 OFFSET $3
	`, companyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []model.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, inv)
	}
	return res, total, rows.Err()
}
