package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gnetorg/gnet/internal/config"
	"github.com/gnetorg/gnet/internal/database"
	"github.com/gnetorg/gnet/internal/email"
	"github.com/gnetorg/gnet/internal/logging"
	"github.com/gnetorg/gnet/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", false).Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.Debug)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var sender email.Sender
	if cfg.EmailBackend == "postmark" {
		sender = email.NewClient(cfg.PostmarkToken, cfg.FromEmail)
	} else {
		sender = email.NewLogSender(logger)
	}

	srv := server.New(cfg, db, sender, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// Hourly sweep of expired sessions and stale rate limit buckets.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-bgCtx.Done():
				return
			}
		}
	}()

	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(bgCtx)
		defer sched.Stop()
	}
	if mgr := srv.BackupManager(); mgr != nil {
		mgr.Start(bgCtx)
		defer mgr.Stop()
	}

	go func() {
		logger.Info("gnet starting", "addr", ":"+cfg.Port, "debug", cfg.Debug)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	bgCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
