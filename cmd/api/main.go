package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Lens_Community/internal/config"
	"Lens_Community/internal/logger"
	"Lens_Community/internal/pkg"
	"Lens_Community/internal/repository/mysql"
	rcache "Lens_Community/internal/repository/redis"
	"Lens_Community/internal/router"
	"Lens_Community/internal/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Server.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := mysql.RunMigrations(cfg.Database.MigrateURL()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	db, err := mysql.InitDB(cfg.Database)
	if err != nil {
		return err
	}

	// redis 只承担限流与点赞计数缓存，连不上时降级运行
	var rateLimits *rcache.RateLimitRepository
	rdb, err := rcache.NewClient(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, running without cache and rate limits", zap.Error(err))
	} else {
		defer func() { _ = rdb.Close() }()
		rateLimits = &rcache.RateLimitRepository{RDB: rdb}
	}

	sender := service.LogSender(log)
	if cfg.Kafka.Enabled {
		producer := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		defer func() { _ = producer.Close() }()
		sender = service.KafkaSender(producer)
	}

	var mailer service.Mailer = service.LogMailer{Log: log}
	if cfg.SMTP.Enabled {
		mailer = pkg.NewSMTPMailer(pkg.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	notifications := service.NewNotificationService(db, log)
	users := service.NewUserService(db, pkg.NewTokenSigner(cfg.Auth.JWTSecret), cfg.Auth, log)
	if err := users.EnsureSuperAdmin(ctx); err != nil {
		return fmt.Errorf("ensure super admin: %w", err)
	}

	// 后台任务：outbox 投递与计数校准
	relayer := service.NewOutboxRelayer(db, sender, cfg.Jobs.OutboxBatch, cfg.Jobs.OutboxInterval, log)
	go relayer.Run(ctx)
	scheduler := cron.New()
	if _, err := service.NewCounterReconciler(db, cfg.Jobs.ReconcileBatch, log).Schedule(ctx, scheduler, cfg.Jobs.ReconcileSpec); err != nil {
		return fmt.Errorf("schedule reconciler: %w", err)
	}
	scheduler.Start()

	engine := router.New(router.Deps{
		Config:        cfg,
		Log:           log,
		DB:            db,
		RateLimits:    rateLimits,
		Users:         users,
		Follows:       service.NewFollowService(db, notifications),
		Photos:        service.NewPhotoService(db, rdb, notifications, cfg.Server.UploadDir, log),
		Collections:   service.NewCollectionService(db, mailer, notifications, cfg.Server.PublicURL, log),
		Notifications: notifications,
		Admin:         service.NewAdminService(db, log),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	cancel()
	<-scheduler.Stop().Done()
	notifications.Wait()
	return nil
}
