package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrm/internal/mailer"
	"hrm/internal/model"
	"hrm/internal/queue"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.LeaveDecision
	fail bool
	done chan struct{}
}

func (f *fakeMailer) SendLeaveDecision(_ context.Context, d mailer.LeaveDecision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.done <- struct{}{} }()
	if f.fail {
		return errors.New("down")
	}
	f.sent = append(f.sent, d)
	return nil
}

func TestPublishedDecisionIsEmailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(8)
	m := &fakeMailer{done: make(chan struct{}, 8)}
	d := NewDispatcher(q, m, 2)
	stopped := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(stopped)
	}()

	l := model.Leave{
		ID:        9,
		LeaveType: model.CasualLeave,
		StartDate: model.NewDate(2024, 5, 1),
		EndDate:   model.NewDate(2024, 5, 2),
		Status:    model.LeaveApproved,
	}
	emp := model.Employee{FullName: "Mia", Email: "mia@acme.test"}
	require.NoError(t, NewPublisher(q).LeaveDecided(ctx, l, emp))

	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
	m.mu.Lock()
	require.Len(t, m.sent, 1)
	assert.Equal(t, mailer.LeaveDecision{
		To: "mia@acme.test", Name: "Mia", LeaveType: "Casual",
		StartDate: "2024-05-01", EndDate: "2024-05-02", Status: "Approved",
	}, m.sent[0])
	m.mu.Unlock()

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestFailedSendDoesNotStopDispatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(8)
	m := &fakeMailer{done: make(chan struct{}, 8), fail: true}
	go func() { _ = NewDispatcher(q, m, 1).Run(ctx) }()

	pub := NewPublisher(q)
	leave := model.Leave{ID: 1, Status: model.LeaveRejected}
	require.NoError(t, pub.LeaveDecided(ctx, leave, model.Employee{Email: "a@acme.test"}))
	require.NoError(t, pub.LeaveDecided(ctx, leave, model.Employee{Email: "b@acme.test"}))

	for i := 0; i < 2; i++ {
		select {
		case <-m.done:
		case <-time.After(2 * time.Second):
			t.Fatal("dispatcher stalled after a failed send")
		}
	}
}
