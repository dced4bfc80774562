package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorflow/internal/app"
	"tutorflow/internal/domain/notify"
	"tutorflow/internal/domain/payment"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/store"
	"tutorflow/internal/infra/config"
	idb "tutorflow/internal/infra/database"
	"tutorflow/internal/infra/httpapi"
	"tutorflow/internal/infra/logger"
	"tutorflow/internal/infra/memstore"
	"tutorflow/internal/infra/scheduler"
	"tutorflow/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Tutorflow starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"storage":     cfg.StorageDriver,
		"environment": cfg.Environment,
		"admin_id":    cfg.AdminTelegramID,
	}).Info("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var (
		tx      store.Transactor
		members staff.Repository
		db      *sql.DB
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		mem := memstore.New()
		tx, members = mem, mem.Members()
		mainLogger.Warn("Using in-memory storage; data is lost on restart")
	default:
		db, err = idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to database")
		}
		defer db.Close()
		if err := idb.RunMigrations(ctx, db, logger.Component("migrations")); err != nil {
			mainLogger.WithError(err).Fatal("Could not apply database migrations")
		}
		pg := idb.NewStore(db)
		tx, members = pg, pg.Members()
		mainLogger.Info("Database connection established and schema is up to date")
	}

	// Notification delivery
	var (
		bot      *telebot.Bot
		notifier notify.Notifier
	)
	if cfg.TelegramToken != "" {
		bot, err = telegram.NewBot(cfg.TelegramToken, logger.Component("telebot"))
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		notifier = telegram.NewNotifier(telegram.NewTelebotAdapter(bot), members, logger.Component("telegram_notifier"))
	} else {
		notifier = logger.NewEventLogger(logger.Component("notifications"))
		mainLogger.Warn("TELEGRAM_TOKEN is not set; notifications are only logged")
	}

	// Services
	access := app.NewDirectoryAuthorizer(members)
	deps := app.Deps{
		Tx:       tx,
		Members:  members,
		Access:   access,
		Notifier: notifier,
		Logger:   logger.Component("app"),
	}
	payments := payment.Rule{DueAfter: cfg.PaymentDueAfter()}
	svcs := httpapi.Services{
		Leads:      app.NewLeadService(deps, payments),
		Interests:  app.NewInterestLedger(deps),
		Demos:      app.NewDemoService(deps),
		Classes:    app.NewClassService(deps),
		Attendance: app.NewAttendanceService(deps),
		Admin:      app.NewAdminService(members, access, cfg.AdminTelegramID, logger.Component("admin")),
	}

	admin, err := svcs.Admin.EnsureBootstrapAdmin(ctx)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not ensure bootstrap admin")
	}
	if admin != nil {
		mainLogger.WithField("member_id", admin.ID).Info("Bootstrap admin ready; use this ID as X-Actor-ID")
	}

	notificationService := app.NewNotificationServiceImpl(deps, cfg.ApprovalReminderAfter, payments)
	notifScheduler := scheduler.NewNotificationScheduler(
		notificationService,
		logger.Component("scheduler"),
		cfg.CronSpecApprovalCheck,
		cfg.CronSpecPaymentSweep,
	)
	if err := notifScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start scheduler")
	}

	if bot != nil {
		botLogger := logger.Component("telegram")
		telegram.RegisterBotCommands(ctx, bot, cfg.AdminTelegramID, svcs.Admin, botLogger)
		telegram.RegisterAdminHandlers(ctx, bot, svcs.Admin, botLogger)
		telegram.NewApprovalHandlers(ctx, svcs.Admin, svcs.Attendance, botLogger).Register(bot)
		mainLogger.Info("Telegram handlers registered")
		go bot.Start()
	}

	server := httpapi.NewServer(svcs, logger.Component("http"))
	serverErr := make(chan error, 1)
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP API listening")
		serverErr <- server.Listen(cfg.HTTPAddr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		mainLogger.WithField("signal", sig.String()).Info("Shutting down application...")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			mainLogger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}

	cancel()
	notifScheduler.Stop()
	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		mainLogger.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	if bot != nil {
		bot.Stop()
	}
	mainLogger.Info("Application shut down gracefully")
}
