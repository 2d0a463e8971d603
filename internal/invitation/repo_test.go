package invitation_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrm/internal/apperr"
	"hrm/internal/invitation"
	"hrm/internal/model"
	"hrm/internal/store/storetest"
)

func TestRepositoryAcceptClaimsOnceUnderConcurrency(t *testing.T) {
	repo := invitation.NewRepository(storetest.Open(t))
	ctx := context.Background()

	admin, err := repo.CreateCompanyWithAdmin(ctx, model.Company{Name: "Invite Co"}, model.Employee{
		FullName: "Boss", Email: storetest.Email("inviter"), Department: "Ops",
	})
	require.NoError(t, err)

	email := storetest.Email("invitee")
	token := fmt.Sprintf("tok-%d", time.Now().UnixNano())
	inv, err := repo.CreateInvitation(ctx, model.Invitation{
		Email: email, CompanyID: admin.CompanyID, InvitedBy: admin.ID, Token: token,
	})
	require.NoError(t, err)
	assert.Equal(t, "Invite Co", inv.CompanyName)

	_, err = repo.CreateInvitation(ctx, model.Invitation{
		Email: email, CompanyID: admin.CompanyID, InvitedBy: admin.ID, Token: token + "-2",
	})
	assert.ErrorIs(t, err, apperr.ErrDuplicate)

	const n = 4
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created []model.Employee
		closed  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			emp, err := repo.AcceptInvitation(ctx, token, model.Employee{
				FullName: "New Hire", PasswordHash: "hash", Department: "General",
			}, time.Now().UTC())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created = append(created, emp)
			case assert.ErrorIs(t, err, invitation.ErrNotOpen):
				closed++
			}
		}()
	}
	wg.Wait()

	require.Len(t, created, 1)
	assert.Equal(t, n-1, closed)
	assert.Equal(t, email, created[0].Email)
	assert.Equal(t, admin.CompanyID, created[0].CompanyID)
	assert.False(t, created[0].IsAdmin)

	open, err := repo.OpenInvitation(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, open)

	list, total, err := repo.ListInvitations(ctx, admin.CompanyID, invitation.PageSize, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsAccepted)
	assert.NotNil(t, list[0].AcceptedAt)
}
