package leave_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrm/internal/apperr"
	"hrm/internal/leave"
	"hrm/internal/memstore"
	"hrm/internal/model"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []model.LeaveStatus
}

func (r *recordingNotifier) LeaveDecided(_ context.Context, l model.Leave, _ model.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, l.Status)
	return nil
}

type fixture struct {
	svc          *leave.Service
	notifier     *recordingNotifier
	admin        model.Employee
	member, peer model.Employee
	outsider     model.Employee
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	admin, err := st.CreateCompanyWithAdmin(ctx, model.Company{Name: "Acme"}, model.Employee{FullName: "Boss", Email: "boss@acme.test"})
	require.NoError(t, err)
	member, err := st.CreateEmployee(ctx, model.Employee{CompanyID: admin.CompanyID, FullName: "Mia", Email: "mia@acme.test"})
	require.NoError(t, err)
	peer, err := st.CreateEmployee(ctx, model.Employee{CompanyID: admin.CompanyID, FullName: "Pat", Email: "pat@acme.test"})
	require.NoError(t, err)
	outsider, err := st.CreateCompanyWithAdmin(ctx, model.Company{Name: "Globex"}, model.Employee{FullName: "Out", Email: "out@globex.test"})
	require.NoError(t, err)
	n := &recordingNotifier{}
	return fixture{svc: leave.NewService(st, n), notifier: n, admin: admin, member: member, peer: peer, outsider: outsider}
}

func request(employee int64) leave.NewLeave {
	return leave.NewLeave{
		Employee:  employee,
		LeaveType: model.SickLeave,
		StartDate: model.NewDate(2024, 3, 4),
		EndDate:   model.NewDate(2024, 3, 5),
		Reason:    "flu",
	}
}

func TestMemberCreatesOnlyForSelf(t *testing.T) {
	f := newFixture(t)
	l, err := f.svc.Create(context.Background(), f.member, request(f.peer.ID))
	require.NoError(t, err)
	assert.Equal(t, f.member.ID, l.EmployeeID)
	assert.Equal(t, model.LeavePending, l.Status)
}

func TestAdminCreatesForTenantEmployeeOnly(t *testing.T) {
	f := newFixture(t)
	l, err := f.svc.Create(context.Background(), f.admin, request(f.peer.ID))
	require.NoError(t, err)
	assert.Equal(t, f.peer.ID, l.EmployeeID)

	_, err = f.svc.Create(context.Background(), f.admin, request(f.outsider.ID))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreateValidatesDateRange(t *testing.T) {
	f := newFixture(t)
	in := request(0)
	in.StartDate, in.EndDate = in.EndDate, in.StartDate
	_, err := f.svc.Create(context.Background(), f.member, in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	in = request(0)
	in.EndDate = in.StartDate
	_, err = f.svc.Create(context.Background(), f.member, in)
	assert.NoError(t, err)

	in = request(0)
	in.LeaveType = "Vacation"
	_, err = f.svc.Create(context.Background(), f.member, in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestTransitionsAreGuarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.Create(ctx, f.member, request(0))
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, f.member, l.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	approved, err := f.svc.Approve(ctx, f.admin, l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeaveApproved, approved.Status)

	again, err := f.svc.Approve(ctx, f.admin, l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeaveApproved, again.Status)

	_, err = f.svc.Reject(ctx, f.admin, l.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Leave has already been approved", apperr.Message(err, ""))

	assert.Equal(t, []model.LeaveStatus{model.LeaveApproved}, f.notifier.calls)
}

func TestTransitionRejectsOtherTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.Create(ctx, f.member, request(0))
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, f.outsider, l.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	got, err := f.svc.Get(ctx, f.member, l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeavePending, got.Status)
}

func TestListIsScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, f.member, request(0))
	require.NoError(t, err)
	peerLeave, err := f.svc.Create(ctx, f.peer, request(0))
	require.NoError(t, err)

	mine, err := f.svc.List(ctx, f.member)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := f.svc.List(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := f.svc.List(ctx, f.outsider)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.svc.Get(ctx, f.member, peerLeave.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	forPeer, err := f.svc.ForEmployee(ctx, f.admin, f.peer.ID)
	require.NoError(t, err)
	assert.Len(t, forPeer, 1)
}

// racingStore decides the leave the other way just before the service's
// transition lands.
type racingStore struct {
	*memstore.Store
}

func (r racingStore) TransitionLeave(ctx context.Context, companyID, id int64, to model.LeaveStatus, now time.Time) (*model.Leave, error) {
	other := model.LeaveApproved
	if to == model.LeaveApproved {
		other = model.LeaveRejected
	}
	if _, err := r.Store.TransitionLeave(ctx, companyID, id, other, now); err != nil {
		return nil, err
	}
	return r.Store.TransitionLeave(ctx, companyID, id, to, now)
}

func TestConflictReportsStatusThatWon(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	admin, err := st.CreateCompanyWithAdmin(ctx, model.Company{Name: "Acme"}, model.Employee{FullName: "Boss", Email: "boss@race.test"})
	require.NoError(t, err)
	svc := leave.NewService(racingStore{Store: st}, nil)

	l, err := svc.Create(ctx, admin, request(0))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, admin, l.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Leave has already been rejected", apperr.Message(err, ""))
}
