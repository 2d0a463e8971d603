package employee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hrm/internal/model"
	"hrm/internal/store"
)

// Repository persists companies and employees in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectEmployee = `
	SELECT e.id, e.company_id, c.name, e.employee_id, e.full_name, e.email, e.password_hash,
	       e.department, e.phone, e.position, e.profile_picture, e.is_admin, e.created_at
	FROM employees e
	JOIN companies c ON c.id = e.company_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (model.Employee, error) {
	var e model.Employee
	err := row.Scan(&e.ID, &e.CompanyID, &e.CompanyName, &e.EmployeeID, &e.FullName, &e.Email, &e.PasswordHash,
		&e.Department, &e.Phone, &e.Position, &e.ProfilePicture, &e.IsAdmin, &e.CreatedAt)
	return e, err
}

func (r *Repository) one(ctx context.Context, where string, args ...any) (*model.Employee, error) {
	e, err := scanEmployee(r.db.QueryRowContext(ctx, selectEmployee+" WHERE "+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// CreateCompanyWithAdmin creates a tenant and its first employee, who is
// always an admin.
func (r *Repository) CreateCompanyWithAdmin(ctx context.Context, company model.Company, admin model.Employee) (model.Employee, error) {
	var created model.Employee
	err := store.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO companies (name) VALUES ($1) RETURNING id, created_at`, company.Name,
		).Scan(&company.ID, &company.CreatedAt); err != nil {
			return err
		}
		admin.CompanyID = company.ID
		admin.IsAdmin = true
		var err error
		created, err = InsertTx(ctx, tx, admin)
		return err
	})
	return created, store.MapError(err)
}

// CreateEmployee adds an employee to an existing company.
func (r *Repository) CreateEmployee(ctx context.Context, emp model.Employee) (model.Employee, error) {
	var created model.Employee
	err := store.InTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		created, err = InsertTx(ctx, tx, emp)
		return err
	})
	return created, store.MapError(err)
}

// InsertTx inserts emp inside tx and assigns the next EMPnnnn code of its
// company. The company row is locked for the rest of the transaction so
// concurrent inserts into one company see each other's counts.
func InsertTx(ctx context.Context, tx *sql.Tx, emp model.Employee) (model.Employee, error) {
	if err := tx.QueryRowContext(ctx,
		`SELECT name FROM companies WHERE id = $1 FOR UPDATE`, emp.CompanyID,
	).Scan(&emp.CompanyName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Employee{}, fmt.Errorf("company %d does not exist", emp.CompanyID)
		}
		return model.Employee{}, err
	}
	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employees WHERE company_id = $1`, emp.CompanyID,
	).Scan(&count); err != nil {
		return model.Employee{}, err
	}
	emp.EmployeeID = model.EmployeeCode(count + 1)

	err := tx.QueryRowContext(ctx, `
		INSERT INTO employees (company_id, employee_id, full_name, email, password_hash, department, phone, position, profile_picture, is_admin)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at
	`, emp.CompanyID, emp.EmployeeID, emp.FullName, emp.Email, emp.PasswordHash,
		emp.Department, emp.Phone, emp.Position, emp.ProfilePicture, emp.IsAdmin,
	).Scan(&emp.ID, &emp.CreatedAt)
	if err != nil {
		return model.Employee{}, store.MapError(err)
	}
	return emp, nil
}

// GetEmployee returns an employee by storage id.
func (r *Repository) GetEmployee(ctx context.Context, id int64) (*model.Employee, error) {
	return r.one(ctx, "e.id = $1", id)
}

// FindEmployeeByEmail looks an employee up by email, case-insensitively.
func (r *Repository) FindEmployeeByEmail(ctx context.Context, email string) (*model.Employee, error) {
	return r.one(ctx, "lower(e.email) = lower($1)", email)
}

// GetScopedEmployee returns the employee only when scope allows it.
func (r *Repository) GetScopedEmployee(ctx context.Context, scope model.Scope, id int64) (*model.Employee, error) {
	return r.one(ctx, "e.id = $1 AND e.company_id = $2 AND ($3::bigint = 0 OR e.id = $3)", id, scope.CompanyID, scope.EmployeeID)
}

// ListEmployees returns the employees visible in scope in creation order.
func (r *Repository) ListEmployees(ctx context.Context, scope model.Scope) ([]model.Employee, error) {
	rows, err := r.db.QueryContext(ctx, selectEmployee+`
		WHERE e.company_id = $1 AND ($2::bigint = 0 OR e.id = $2)
		ORDER BY e.id
	`, scope.CompanyID, scope.EmployeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []model.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// UpdateProfile writes the mutable profile fields. Identity fields are
// never touched.
func (r *Repository) UpdateProfile(ctx context.Context, emp model.Employee) (model.Employee, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE employees
		SET full_name = $2, department = $3, phone = $4, position = $5, profile_picture = $6, password_hash = $7
		WHERE id = $1
	`, emp.ID, emp.FullName, emp.Department, emp.Phone, emp.Position, emp.ProfilePicture, emp.PasswordHash)
	if err != nil {
		return model.Employee{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Employee{}, err
	} else if n == 0 {
		return model.Employee{}, fmt.Errorf("employee %d does not exist", emp.ID)
	}
	updated, err := r.GetEmployee(ctx, emp.ID)
	if err != nil {
		return model.Employee{}, err
	}
	return *updated, nil
}

// ToggleAdmin flips the admin flag of an employee of companyID in one
// statement. It returns nil when no such employee exists.
func (r *Repository) ToggleAdmin(ctx context.Context, companyID, id int64) (*model.Employee, error) {
	var toggled int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE employees SET is_admin = NOT is_admin
		WHERE id = $1 AND company_id = $2
		RETURNING id
	`, id, companyID).Scan(&toggled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r.GetEmployee(ctx, toggled)
}

// GetCompany returns a company by id.
func (r *Repository) GetCompany(ctx context.Context, id int64) (*model.Company, error) {
	var c model.Company
	err := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM companies WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
