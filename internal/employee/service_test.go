package employee_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrm/internal/apperr"
	"hrm/internal/credential"
	"hrm/internal/employee"
	"hrm/internal/memstore"
	"hrm/internal/model"
)

type tenant struct {
	admin  model.Employee
	member model.Employee
}

func seed(t *testing.T, st *memstore.Store, name string) tenant {
	t.Helper()
	ctx := context.Background()
	admin, err := st.CreateCompanyWithAdmin(ctx, model.Company{Name: name}, model.Employee{
		FullName: name + " Admin", Email: "admin@" + name + ".test", Department: "Ops",
	})
	require.NoError(t, err)
	member, err := st.CreateEmployee(ctx, model.Employee{
		CompanyID: admin.CompanyID, FullName: name + " Member", Email: "member@" + name + ".test", Department: "Eng",
	})
	require.NoError(t, err)
	return tenant{admin: admin, member: member}
}

func TestListIsAdminOnlyAndTenantScoped(t *testing.T) {
	st := memstore.New()
	svc := employee.NewService(st)
	acme := seed(t, st, "acme")
	seed(t, st, "globex")

	list, err := svc.List(context.Background(), acme.admin)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "EMP0001", list[0].EmployeeID)
	assert.Equal(t, "EMP0002", list[1].EmployeeID)

	_, err = svc.List(context.Background(), acme.member)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestGetHidesOtherTenantsAndOtherMembers(t *testing.T) {
	st := memstore.New()
	svc := employee.NewService(st)
	acme := seed(t, st, "acme")
	globex := seed(t, st, "globex")

	_, err := svc.Get(context.Background(), acme.admin, globex.member.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.Get(context.Background(), acme.member, acme.admin.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	self, err := svc.Get(context.Background(), acme.member, acme.member.ID)
	require.NoError(t, err)
	assert.Equal(t, acme.member.Email, self.Email)
}

func TestCreateAssignsSequentialCodes(t *testing.T) {
	st := memstore.New()
	svc := employee.NewService(st)
	acme := seed(t, st, "acme")

	created, err := svc.Create(context.Background(), acme.admin, employee.NewEmployee{
		FullName: "Third", Email: "third@acme.test", Department: "Eng", Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "EMP0003", created.EmployeeID)
	assert.True(t, credential.CheckPassword(created.PasswordHash, "secret1"))

	_, err = svc.Create(context.Background(), acme.admin, employee.NewEmployee{
		FullName: "Dup", Email: "THIRD@acme.test", Department: "Eng",
	})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = svc.Create(context.Background(), acme.member, employee.NewEmployee{
		FullName: "X", Email: "x@acme.test", Department: "Eng",
	})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = svc.Create(context.Background(), acme.admin, employee.NewEmployee{
		FullName: "Bad", Email: "not-an-email", Department: "Eng",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestToggleAdmin(t *testing.T) {
	st := memstore.New()
	svc := employee.NewService(st)
	acme := seed(t, st, "acme")
	globex := seed(t, st, "globex")
	ctx := context.Background()

	toggled, err := svc.ToggleAdmin(ctx, acme.admin, acme.member.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsAdmin)

	toggled, err = svc.ToggleAdmin(ctx, acme.admin, acme.member.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsAdmin)

	_, err = svc.ToggleAdmin(ctx, acme.admin, acme.admin.ID)
	assert.Equal(t, "You cannot change your own admin status", apperr.Message(err, ""))

	_, err = svc.ToggleAdmin(ctx, acme.admin, globex.member.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.ToggleAdmin(ctx, acme.member, acme.admin.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestUpdateProfileKeepsIdentity(t *testing.T) {
	st := memstore.New()
	svc := employee.NewService(st)
	acme := seed(t, st, "acme")
	ctx := context.Background()

	name, phone, pw := "Renamed", "555-0100", "newpass1"
	updated, err := svc.UpdateProfile(ctx, acme.member, employee.ProfilePatch{FullName: &name, Phone: &phone, Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FullName)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, acme.member.Email, updated.Email)
	assert.Equal(t, acme.member.EmployeeID, updated.EmployeeID)
	assert.True(t, credential.CheckPassword(updated.PasswordHash, "newpass1"))

	short := "abc"
	_, err = svc.UpdateProfile(ctx, acme.member, employee.ProfilePatch{Password: &short})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	withPic, err := svc.SetProfilePicture(ctx, acme.member, "https://res.cloudinary.com/x/avatar.png")
	require.NoError(t, err)
	require.NotNil(t, withPic.ProfilePicture)
	assert.Equal(t, "https://res.cloudinary.com/x/avatar.png", *withPic.ProfilePicture)
}

func TestCompanyVisibility(t *testing.T) {
	st := memstore.New()
	svc := employee.NewService(st)
	acme := seed(t, st, "acme")
	globex := seed(t, st, "globex")
	ctx := context.Background()

	list, err := svc.Companies(ctx, acme.member)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "acme", list[0].Name)

	_, err = svc.Company(ctx, acme.admin, globex.admin.CompanyID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestNormalizeEmail(t *testing.T) {
	addr, ok := employee.NormalizeEmail("  a@b.test ")
	assert.True(t, ok)
	assert.Equal(t, "a@b.test", addr)

	_, ok = employee.NormalizeEmail("Ann <a@b.test>")
	assert.False(t, ok)
}
