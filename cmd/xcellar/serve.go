package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xcellar/xcellar/internal/api"
	"github.com/xcellar/xcellar/internal/async"
	"github.com/xcellar/xcellar/internal/bootstrap"
	"github.com/xcellar/xcellar/internal/config"
	"github.com/xcellar/xcellar/internal/job"
	"github.com/xcellar/xcellar/internal/migrations"
	"github.com/xcellar/xcellar/internal/n8n"
	"github.com/xcellar/xcellar/internal/paystack"
	"github.com/xcellar/xcellar/internal/repository/sqlite"
	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
	"github.com/xcellar/xcellar/internal/support/logging"
	"github.com/xcellar/xcellar/internal/twilio"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  "Start the HTTP API server with the background job scheduler.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	bootTime := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger := logging.New(logging.Options{
		Level:      cfg.Log.SlogLevel(),
		Format:     cfg.Log.Format,
		AddSource:  cfg.Log.AddSource,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	logger.Info("starting xcellar",
		"version", Version,
		"commit", Commit,
		"addr", cfg.HTTP.Addr,
	)

	db, err := bootstrap.OpenSQLite(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	infra, err := bootstrap.BuildInfrastructure(cfg, logger)
	if err != nil {
		return fmt.Errorf("build infrastructure: %w", err)
	}

	store := sqlite.NewStore(db)

	i18nManager, err := i18n.NewManager(i18n.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	paystackClient := paystack.NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey)
	twilioClient := twilio.NewClient("", cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.VerifyServiceSID)
	n8nClient := n8n.NewClient(cfg.N8N.HelpWebhookURL, cfg.N8N.WebhookToken)

	// Handlers enqueue notifications; the dispatch job delivers them.
	notificationQueue := async.NewNotificationQueue()
	queuedNotifier := async.NewQueueNotifier(notificationQueue)

	accountSvc := service.NewAccountService(store.Users(), store.Profiles(), store.LoginLogs(), infra.Hasher, infra.Token, infra.Audit)
	passwordSvc := service.NewPasswordResetService(store.Users(), store.PasswordResets(), infra.Hasher, queuedNotifier, infra.RateLimiter, cfg.Auth.ResetTokenExpiry)
	verificationSvc := service.NewPhoneVerificationService(store.PhoneVerifications(), store.Users(), twilioClient, cfg.Verification.OTPExpiry(), cfg.Verification.Cooldown(), cfg.Verification.MaxAttempts)
	marketplaceSvc := service.NewMarketplaceService(store.Categories(), store.Shops(), store.Products(), store.Carts(), store.Orders(), store.Tracking())
	orderSvc := service.NewOrderService(store.Orders(), store.Tracking(), store.Users(), store.Notifications(), queuedNotifier)
	courierSvc := service.NewCourierService(store.Vehicles(), store.DriverLicenses(), store.Profiles(), store.Orders(), store.Users())
	paymentSvc := service.NewPaymentService(store.Users(), store.Transactions(), store.Recipients(), store.DVAs(), store.Notifications(), store.Profiles(), paystackClient)
	webhookSvc := service.NewWebhookService(cfg.Paystack.SecretKey, store.WebhookEvents(), store.Transactions(), store.Users(), store.DVAs(), store.Notifications())
	helpSvc := service.NewHelpDeskService(store.HelpRequests(), n8nClient, logger)
	faqSvc := service.NewFAQService(store.FAQs())
	automationSvc := service.NewAutomationService(store.HelpRequests(), store.Orders(), store.Tracking())
	bankSvc := service.NewBankService(paystackClient, infra.Cache)
	opsSvc := service.NewOpsService(store.Users(), store.Orders())
	dashboardSvc := service.NewDashboardService(store.Profiles(), store.Orders(), store.Notifications(), store.Users())

	scheduler := job.NewScheduler(logger)
	if cfg.Jobs.Enabled {
		registrations := []struct {
			spec     string
			runnable job.Runnable
		}{
			{cfg.Jobs.OfferSweeperSpec, job.NewOfferSweeper(orderSvc, logger)},
			{cfg.Jobs.NotificationDispatchSpec, job.NewNotificationDispatch(notificationQueue, infra.Notifier, logger)},
			{cfg.Jobs.StaleCartCleanupSpec, job.NewStaleCartCleanup(store.Carts(), logger)},
			{cfg.Jobs.LoginLogCleanupSpec, job.NewLoginLogCleanup(store.LoginLogs(), logger)},
		}
		for _, reg := range registrations {
			if _, err := scheduler.Register(reg.spec, reg.runnable); err != nil {
				return fmt.Errorf("register job %s: %w", reg.runnable.Name(), err)
			}
		}
		scheduler.Start()
		logger.Info("job scheduler started", "jobs", len(registrations))
	} else {
		logger.Info("job scheduler disabled")
	}

	services := api.Services{
		Accounts:        accountSvc,
		Passwords:       passwordSvc,
		Verifications:   verificationSvc,
		Marketplace:     marketplaceSvc,
		Orders:          orderSvc,
		Couriers:        courierSvc,
		Payments:        paymentSvc,
		Webhooks:        webhookSvc,
		Help:            helpSvc,
		FAQ:             faqSvc,
		Automation:      automationSvc,
		Banks:           bankSvc,
		Ops:             opsSvc,
		Dashboard:       dashboardSvc,
		Tokens:          infra.Token,
		I18n:            i18nManager,
		DB:              db,
		RateLimiter:     infra.RateLimiter,
		ServerAPIToken:  cfg.Security.ServerAPIToken,
		AutomationToken: cfg.Security.AutomationToken,
	}

	router := api.NewRouter(logger, services, cfg.Metrics, cfg.Security)
	server := bootstrap.NewHTTPServer(cfg, router)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr, "startup_ms", time.Since(bootTime).Milliseconds())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	// Let in-flight jobs finish before the HTTP listener closes.
	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("stopped cleanly", "uptime", time.Since(bootTime).Round(time.Second).String())
	return nil
}
