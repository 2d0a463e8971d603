package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"hrm/internal/config"
	"hrm/internal/logging"
	"hrm/internal/mailer"
	"hrm/internal/notify"
	"hrm/internal/queue"
	"hrm/internal/store"
)

// Worker drains the notification queue and emails leave decisions.
func main() {
	configPath := pflag.String("config", os.Getenv("HRM_CONFIG"), "path to a YAML config file")
	concurrency := pflag.Int("concurrency", 0, "parallel email sends (defaults to WORKER_CONCURRENCY)")
	pflag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, closer := logging.New(cfg)
	defer closer.Close()

	if cfg.QueueBackend != "redis" {
		logger.Error("worker needs QUEUE_BACKEND=redis; the memory queue is drained inside the api process")
		return
	}
	if *concurrency <= 0 {
		*concurrency = cfg.WorkerConcurrency
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := store.NewRedis(store.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		logger.Warn("redis not reachable yet; consumer will keep retrying", "addr", cfg.RedisAddr)
	}

	mail := mailer.New(mailer.Config{
		APIKey:     cfg.BrevoAPIKey,
		APIURL:     cfg.BrevoAPIURL,
		From:       cfg.MailFrom,
		SenderName: cfg.MailSenderName,
	})

	d := notify.NewDispatcher(queue.NewRedisQueue(redisClient.Client, ""), mail, *concurrency)
	if err := d.Run(ctx); err != nil {
		logger.Error("dispatcher failed", "err", err)
	}
	logger.Info("worker stopped")
}
