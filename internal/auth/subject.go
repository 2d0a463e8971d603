package auth

import "hrm/internal/model"

// TokenSubject is the only view of an employee the token issuer sees: a
// stable numeric identity, an active flag and a permission predicate. It is
// not an account and must not be passed to business logic, which works on
// model.Employee directly.
type TokenSubject struct {
	id int64
}

// SubjectFor adapts an authenticated employee for token issuance.
func SubjectFor(e model.Employee) TokenSubject {
	return TokenSubject{id: e.ID}
}

// ID returns the storage identity carried in the token subject claim.
func (s TokenSubject) ID() int64 { return s.id }

// IsActive is always true; employees are never deactivated.
func (s TokenSubject) IsActive() bool { return true }

// HasPerm is always true. Role checks happen per operation on the employee.
func (s TokenSubject) HasPerm(string) bool { return true }
