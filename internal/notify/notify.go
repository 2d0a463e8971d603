// Package notify publishes domain events onto the queue and delivers them
// as email from a worker.
package notify

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/conc/pool"

	"hrm/internal/mailer"
	"hrm/internal/metrics"
	"hrm/internal/model"
	"hrm/internal/queue"
)

// LeaveDecision is the queued payload for a decided leave.
type LeaveDecision struct {
	LeaveID   int64  `json:"leave_id"`
	To        string `json:"to"`
	Name      string `json:"name"`
	LeaveType string `json:"leave_type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
}

// Publisher enqueues notifications.
type Publisher struct {
	q queue.Queue
}

// NewPublisher creates a publisher on q.
func NewPublisher(q queue.Queue) *Publisher {
	return &Publisher{q: q}
}

// LeaveDecided enqueues an email to emp about l.
func (p *Publisher) LeaveDecided(ctx context.Context, l model.Leave, emp model.Employee) error {
	msg, err := queue.NewMessage(queue.TypeLeaveDecision, LeaveDecision{
		LeaveID:   l.ID,
		To:        emp.Email,
		Name:      emp.FullName,
		LeaveType: string(l.LeaveType),
		StartDate: l.StartDate.String(),
		EndDate:   l.EndDate.String(),
		Status:    string(l.Status),
	})
	if err != nil {
		return err
	}
	return p.q.Publish(ctx, msg)
}

// Mailer is the delivery side of the dispatcher.
type Mailer interface {
	SendLeaveDecision(ctx context.Context, d mailer.LeaveDecision) error
}

// Dispatcher consumes the queue and sends emails with bounded concurrency.
type Dispatcher struct {
	q           queue.Queue
	mailer      Mailer
	concurrency int
}

// NewDispatcher creates a dispatcher running at most concurrency sends at
// once.
func NewDispatcher(q queue.Queue, m Mailer, concurrency int) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Dispatcher{q: q, mailer: m, concurrency: concurrency}
}

// Run processes messages until ctx is cancelled, then waits for in-flight
// sends.
func (d *Dispatcher) Run(ctx context.Context) error {
	messages, err := d.q.Consume(ctx)
	if err != nil {
		return err
	}
	p := pool.New().WithMaxGoroutines(d.concurrency)
	slog.Info("notification dispatcher started", "concurrency", d.concurrency)
	for msg := range messages {
		msg := msg
		p.Go(func() { d.handle(ctx, msg) })
	}
	p.Wait()
	slog.Info("notification dispatcher stopped")
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, msg queue.Message) {
	switch msg.Type {
	case queue.TypeLeaveDecision:
		var ev LeaveDecision
		if err := msg.Decode(&ev); err != nil {
			slog.Warn("malformed leave decision", "err", err)
			metrics.Notifications.WithLabelValues(msg.Type, "malformed").Inc()
			return
		}
		err := d.mailer.SendLeaveDecision(context.WithoutCancel(ctx), mailer.LeaveDecision{
			To:        ev.To,
			Name:      ev.Name,
			LeaveType: ev.LeaveType,
			StartDate: ev.StartDate,
			EndDate:   ev.EndDate,
			Status:    ev.Status,
		})
		if err != nil {
			slog.Warn("leave decision email failed", "leave_id", ev.LeaveID, "err", err)
			metrics.Notifications.WithLabelValues(msg.Type, "failed").Inc()
			return
		}
		metrics.Notifications.WithLabelValues(msg.Type, "sent").Inc()
	default:
		slog.Debug("ignoring message", "type", msg.Type)
		metrics.Notifications.WithLabelValues(msg.Type, "ignored").Inc()
	}
}
