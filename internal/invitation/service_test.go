package invitation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrm/internal/apperr"
	"hrm/internal/invitation"
	"hrm/internal/memstore"
	"hrm/internal/model"
)

type fakeMailer struct {
	mu    sync.Mutex
	links []string
	err   error
}

func (f *fakeMailer) SendInvitation(_ context.Context, to, link, companyName, inviterName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.links = append(f.links, link)
	return nil
}

func seedAdmin(t *testing.T, st *memstore.Store, company, email string) model.Employee {
	t.Helper()
	admin, err := st.CreateCompanyWithAdmin(context.Background(), model.Company{Name: company}, model.Employee{
		FullName: "Admin " + company, Email: email, Department: "Ops",
	})
	require.NoError(t, err)
	return admin
}

func TestSendBuildsLinkFromFrontendURL(t *testing.T) {
	st := memstore.New()
	mailer := &fakeMailer{}
	svc := invitation.NewService(st, mailer, "https://hr.example/")
	admin := seedAdmin(t, st, "Acme", "boss@acme.test")

	inv, err := svc.Send(context.Background(), admin, " new@acme.test ")
	require.NoError(t, err)
	assert.Equal(t, "new@acme.test", inv.Email)
	assert.Equal(t, "Acme", inv.CompanyName)
	require.Len(t, mailer.links, 1)
	assert.Equal(t, "https://hr.example/accept-invitation?token="+inv.Token, mailer.links[0])
	assert.GreaterOrEqual(t, len(inv.Token), 40)
}

func TestSendRejectsNonAdmin(t *testing.T) {
	st := memstore.New()
	svc := invitation.NewService(st, &fakeMailer{}, "http://localhost:3000")
	admin := seedAdmin(t, st, "Acme", "boss@acme.test")
	member, err := st.CreateEmployee(context.Background(), model.Employee{CompanyID: admin.CompanyID, FullName: "M", Email: "m@acme.test"})
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), member, "x@acme.test")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestSendRejectsExistingEmployeeAndDuplicateInvite(t *testing.T) {
	st := memstore.New()
	svc := invitation.NewService(st, &fakeMailer{}, "http://localhost:3000")
	admin := seedAdmin(t, st, "Acme", "boss@acme.test")

	_, err := svc.Send(context.Background(), admin, "BOSS@acme.test")
	assert.Equal(t, "Employee with this email already exists", apperr.Message(err, ""))

	_, err = svc.Send(context.Background(), admin, "new@acme.test")
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), admin, "new@acme.test")
	assert.Equal(t, "Invitation already sent to this email", apperr.Message(err, ""))
}

func TestSendRollsBackWhenMailFails(t *testing.T) {
	st := memstore.New()
	mailer := &fakeMailer{err: errors.New("Brevo API error: 401 - unauthorized")}
	svc := invitation.NewService(st, mailer, "http://localhost:3000")
	admin := seedAdmin(t, st, "Acme", "boss@acme.test")

	_, err := svc.Send(context.Background(), admin, "new@acme.test")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Equal(t, "Failed to send email", apperr.Message(err, ""))
	assert.NotContains(t, apperr.Message(err, ""), "unauthorized")

	pending, err := st.PendingInvitation(context.Background(), admin.CompanyID, "new@acme.test")
	require.NoError(t, err)
	assert.Nil(t, pending)

	mailer.err = nil
	_, err = svc.Send(context.Background(), admin, "new@acme.test")
	assert.NoError(t, err)
}

func TestAcceptTwiceCreatesOneEmployee(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := invitation.NewService(st, &fakeMailer{}, "http://localhost:3000")
	admin := seedAdmin(t, st, "Acme", "boss@acme.test")
	inv, err := svc.Send(ctx, admin, "new@acme.test")
	require.NoError(t, err)

	emp, err := svc.Accept(ctx, invitation.Acceptance{Token: inv.Token, Password: "secret1", FullName: "New Person"})
	require.NoError(t, err)
	assert.Equal(t, "EMP0002", emp.EmployeeID)
	assert.Equal(t, "General", emp.Department)
	assert.False(t, emp.IsAdmin)
	assert.Equal(t, admin.CompanyID, emp.CompanyID)

	_, err = svc.Accept(ctx, invitation.Acceptance{Token: inv.Token, Password: "secret1", FullName: "New Person"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Invalid or expired invitation", apperr.Message(err, ""))

	all, err := st.ListEmployees(ctx, model.Scope{CompanyID: admin.CompanyID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Verify(ctx, inv.Token)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAcceptConcurrentlyOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := invitation.NewService(st, &fakeMailer{}, "http://localhost:3000")
	admin := seedAdmin(t, st, "Acme", "boss@acme.test")
	inv, err := svc.Send(ctx, admin, "new@acme.test")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Accept(ctx, invitation.Acceptance{Token: inv.Token, Password: "secret1", FullName: "N"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
}

func TestAcceptValidation(t *testing.T) {
	svc := invitation.NewService(memstore.New(), &fakeMailer{}, "")
	_, err := svc.Accept(context.Background(), invitation.Acceptance{Token: "t", Password: "123", FullName: "N"})
	assert.Equal(t, "Password must be at least 6 characters", apperr.Message(err, ""))

	_, err = svc.Accept(context.Background(), invitation.Acceptance{Token: "t", Password: "123456"})
	assert.Equal(t, "Token, password, and full name are required", apperr.Message(err, ""))
}

func TestListIsTenantScopedAndPaginated(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := invitation.NewService(st, &fakeMailer{}, "http://localhost:3000")
	acme := seedAdmin(t, st, "Acme", "boss@acme.test")
	globex := seedAdmin(t, st, "Globex", "boss@globex.test")

	for i := 0; i < 12; i++ {
		_, err := svc.Send(ctx, acme, fmt.Sprintf("p%d@acme.test", i))
		require.NoError(t, err)
	}
	_, err := svc.Send(ctx, globex, "only@globex.test")
	require.NoError(t, err)

	first, err := svc.List(ctx, acme, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, first.Count)
	assert.Len(t, first.Results, invitation.PageSize)
	require.NotNil(t, first.Next)
	assert.Equal(t, 2, *first.Next)
	assert.Nil(t, first.Previous)

	second, err := svc.List(ctx, acme, 2)
	require.NoError(t, err)
	assert.Len(t, second.Results, 2)
	assert.Nil(t, second.Next)

	_, err = svc.List(ctx, acme, 3)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	other, err := svc.List(ctx, globex, 1)
	require.NoError(t, err)
	require.Len(t, other.Results, 1)
	assert.Equal(t, "only@globex.test", other.Results[0].Email)

	member, err := st.CreateEmployee(ctx, model.Employee{CompanyID: acme.CompanyID, FullName: "M", Email: "m@acme.test"})
	require.NoError(t, err)
	_, err = svc.List(ctx, member, 1)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
