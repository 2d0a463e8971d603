package main

import (
	"context"
	"fmt"
	"log/slog"

	"hrm/internal/account"
	"hrm/internal/attendance"
	"hrm/internal/auth"
	"hrm/internal/config"
	"hrm/internal/credential"
	"hrm/internal/employee"
	"hrm/internal/invitation"
	"hrm/internal/leave"
	"hrm/internal/memstore"
	"hrm/internal/queue"
	"hrm/internal/store"
)

// backends are the storage, revocation and queue implementations chosen by
// configuration.
type backends struct {
	db    *store.DB
	redis *store.Redis

	accounts    account.Store
	resetCodes  credential.Store
	attendance  attendance.Store
	leaves      leave.Store
	invitations invitation.Store
	revocations auth.Revocations
	queue       queue.Queue

	employees interface {
		employee.Store
		auth.EmployeeLookup
	}
}

func openBackends(ctx context.Context, cfg config.App, migrate bool) (*backends, error) {
	b := &backends{}
	if cfg.RevocationBackend == "redis" || cfg.QueueBackend == "redis" {
		b.redis = store.NewRedis(store.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if !b.redis.Healthy(ctx) {
			slog.Warn("redis not reachable at startup", "addr", cfg.RedisAddr)
		}
	}

	switch cfg.StoreBackend {
	case "memory":
		mem := memstore.New()
		b.accounts, b.resetCodes, b.employees = mem, mem, mem
		b.attendance, b.leaves, b.invitations = mem, mem, mem
		slog.Warn("using in-memory store; data is lost on restart")
	case "postgres":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.db = db
		if migrate {
			if err := db.Migrate(ctx); err != nil {
				b.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		emp := employee.NewRepository(db.Client)
		b.accounts, b.employees = emp, emp
		b.resetCodes = credential.NewRepository(db.Client)
		b.attendance = attendance.NewRepository(db.Client)
		b.leaves = leave.NewRepository(db.Client)
		b.invitations = invitation.NewRepository(db.Client)
	default:
		b.Close()
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.RevocationBackend {
	case "redis":
		b.revocations = auth.NewRedisRevocations(b.redis.Client, "")
	case "memory":
		b.revocations = auth.NewInMemoryRevocations()
	default:
		b.Close()
		return nil, fmt.Errorf("unknown REVOCATION_BACKEND %q", cfg.RevocationBackend)
	}

	switch cfg.QueueBackend {
	case "redis":
		b.queue = queue.NewRedisQueue(b.redis.Client, "")
	case "memory":
		b.queue = queue.NewInMemory(256)
	default:
		b.Close()
		return nil, fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.QueueBackend)
	}
	return b, nil
}

// Health reports reachability of the configured external backends.
func (b *backends) Health(ctx context.Context) map[string]bool {
	checks := map[string]bool{}
	if b.db != nil {
		checks["db"] = b.db.Healthy(ctx)
	}
	if b.redis != nil {
		checks["redis"] = b.redis.Healthy(ctx)
	}
	return checks
}

func (b *backends) Close() {
	if err := b.db.Close(); err != nil {
		slog.Warn("close postgres", "err", err)
	}
	if err := b.redis.Close(); err != nil {
		slog.Warn("close redis", "err", err)
	}
}
