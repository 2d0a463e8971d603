package model

// Scope restricts a read or write to the rows a caller may touch. Every
// repository query that returns tenant data takes one.
type Scope struct {
	CompanyID int64
	// EmployeeID, when non-zero, narrows the scope to one employee's rows.
	EmployeeID int64
}

// ScopeFor returns the visibility of caller: admins see their whole company,
// members see only themselves.
func ScopeFor(caller Employee) Scope {
	if caller.IsAdmin {
		return Scope{CompanyID: caller.CompanyID}
	}
	return Scope{CompanyID: caller.CompanyID, EmployeeID: caller.ID}
}

// Allows reports whether a row owned by employeeID in companyID is visible.
func (s Scope) Allows(companyID, employeeID int64) bool {
	if companyID != s.CompanyID {
		return false
	}
	return s.EmployeeID == 0 || s.EmployeeID == employeeID
}
