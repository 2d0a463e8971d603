package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"hrm/internal/account"
	"hrm/internal/attendance"
	"hrm/internal/auth"
	"hrm/internal/cloudinary"
	"hrm/internal/config"
	"hrm/internal/credential"
	"hrm/internal/employee"
	"hrm/internal/handler"
	"hrm/internal/httpmiddleware"
	"hrm/internal/invitation"
	"hrm/internal/leave"
	"hrm/internal/logging"
	"hrm/internal/mailer"
	"hrm/internal/notify"
)

func main() {
	configPath := pflag.String("config", os.Getenv("HRM_CONFIG"), "path to a YAML config file")
	migrate := pflag.Bool("migrate", true, "apply database migrations on start")
	pflag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, closer := logging.New(cfg)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	err = runHTTP(cfg, logger, *migrate)
	_ = closer.Close()
	if err != nil {
		logger.Error("http server failed", "err", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, logger *slog.Logger, migrate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := openBackends(ctx, cfg, migrate)
	if err != nil {
		return err
	}
	defer deps.Close()

	issuer := auth.NewIssuer(auth.IssuerConfig{
		Issuer:     cfg.JWTIssuer,
		AccessKey:  cfg.JWTSigningKey,
		RefreshKey: cfg.JWTRefreshSigningKey,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}, deps.revocations)

	mail := mailer.New(mailer.Config{
		APIKey:     cfg.BrevoAPIKey,
		APIURL:     cfg.BrevoAPIURL,
		From:       cfg.MailFrom,
		SenderName: cfg.MailSenderName,
	})
	if cfg.BrevoAPIKey == "" {
		logger.Warn("BREVO_API_KEY not set; password reset and invitation emails will fail")
	}

	avatars := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	if avatars.Configured() {
		logger.Info("cloudinary configured", "cloud", cfg.CloudinaryCloudName)
	} else {
		logger.Info("cloudinary not configured; avatar uploads disabled")
	}

	// With an in-memory queue nobody else can drain it, so dispatch here.
	if cfg.QueueBackend == "memory" {
		dispatcher := notify.NewDispatcher(deps.queue, mail, cfg.WorkerConcurrency)
		go func() {
			if err := dispatcher.Run(ctx); err != nil {
				logger.Error("notification dispatcher stopped", "err", err)
			}
		}()
	}

	h := &handler.Handler{
		Accounts:    account.NewService(deps.accounts, credential.NewResetCodes(deps.resetCodes, cfg.ResetCodeTTL), issuer, mail),
		Employees:   employee.NewService(deps.employees),
		Attendance:  attendance.NewService(deps.attendance),
		Leaves:      leave.NewService(deps.leaves, notify.NewPublisher(deps.queue)),
		Invitations: invitation.NewService(deps.invitations, mail, cfg.FrontendURL),
		Avatars:     avatars,
		Gate:        auth.Gate(issuer, deps.employees),
	}

	r := gin.New()
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.Recovery(logger))
	r.Use(httpmiddleware.AccessLog(logger, "/healthz", "/metrics"))
	r.Use(httpmiddleware.Metrics())
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		checks := deps.Health(c.Request.Context())
		status := http.StatusOK
		for _, ok := range checks {
			if !ok {
				status = http.StatusServiceUnavailable
			}
		}
		body := gin.H{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		for name, ok := range checks {
			body[name] = ok
		}
		c.JSON(status, body)
	})
	h.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "store", cfg.StoreBackend, "queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", "err", err)
	}
	logger.Info("server exited")
	return nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}
