package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xcellar/xcellar/internal/api/handler"
	"github.com/xcellar/xcellar/internal/api/middleware"
	"github.com/xcellar/xcellar/internal/auth/token"
	"github.com/xcellar/xcellar/internal/config"
	"github.com/xcellar/xcellar/internal/security"
	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services carries everything the router wires into handlers.
type Services struct {
	Accounts      service.AccountService
	Passwords     service.PasswordResetService
	Verifications service.PhoneVerificationService
	Marketplace   service.MarketplaceService
	Orders        service.OrderService
	Couriers      service.CourierService
	Payments      service.PaymentService
	Webhooks      service.WebhookService
	Help          service.HelpDeskService
	FAQ           service.FAQService
	Automation    service.AutomationService
	Banks         service.BankService
	Ops           service.OpsService
	Dashboard     service.DashboardService

	Tokens *token.Manager
	I18n   *i18n.Manager
	DB     Pinger

	// RateLimiter backs the global request throttle. Nil disables it.
	RateLimiter *security.RateLimiter

	// Shared guard tokens for machine callers.
	ServerAPIToken  string
	AutomationToken string
}

// NewRouter assembles the HTTP surface: health and metrics endpoints plus
// the versioned API.
func NewRouter(logger *slog.Logger, services Services, metricsCfg config.MetricsConfig, securityCfg config.SecurityConfig) http.Handler {
	if services.Accounts == nil {
		panic("router requires AccountService")
	}
	if services.Passwords == nil {
		panic("router requires PasswordResetService")
	}
	if services.Verifications == nil {
		panic("router requires PhoneVerificationService")
	}
	if services.Marketplace == nil {
		panic("router requires MarketplaceService")
	}
	if services.Orders == nil {
		panic("router requires OrderService")
	}
	if services.Couriers == nil {
		panic("router requires CourierService")
	}
	if services.Payments == nil {
		panic("router requires PaymentService")
	}
	if services.Webhooks == nil {
		panic("router requires WebhookService")
	}
	if services.Help == nil {
		panic("router requires HelpDeskService")
	}
	if services.FAQ == nil {
		panic("router requires FAQService")
	}
	if services.Automation == nil {
		panic("router requires AutomationService")
	}
	if services.Banks == nil {
		panic("router requires BankService")
	}
	if services.Ops == nil {
		panic("router requires OpsService")
	}
	if services.Dashboard == nil {
		panic("router requires DashboardService")
	}
	if services.Tokens == nil {
		panic("router requires token Manager")
	}
	if services.I18n == nil {
		panic("router requires I18n Manager")
	}

	r := chi.NewRouter()

	mCfg := middleware.DefaultMetricsConfig()
	if metricsCfg.Namespace != "" {
		mCfg.Namespace = metricsCfg.Namespace
	}
	if metricsCfg.Subsystem != "" {
		mCfg.Subsystem = metricsCfg.Subsystem
	}
	if len(metricsCfg.Buckets) > 0 {
		mCfg.Buckets = metricsCfg.Buckets
	}

	var metrics *middleware.Metrics
	if metricsCfg.Enabled {
		metrics = middleware.NewMetrics(mCfg)
	}

	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
	)

	if metricsCfg.Enabled {
		r.Use(metrics.Middleware(mCfg))
	}

	corsConfig := middleware.DefaultCORSConfig()
	if len(securityCfg.CORSAllowedOrigins) > 0 {
		corsConfig.AllowedOrigins = securityCfg.CORSAllowedOrigins
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.CORS(corsConfig),
		middleware.BodyLimit(middleware.BodyLimitConfig{
			MaxBytes: securityCfg.BodyLimitBytes,
		}),
	}

	// RATE_LIMIT_REQUESTS=0 switches the throttle off.
	if services.RateLimiter != nil && securityCfg.RateLimitRequests > 0 {
		middlewares = append(middlewares, middleware.RateLimit(services.RateLimiter, middleware.RateLimitConfig{
			Limit:     securityCfg.RateLimitRequests,
			Window:    securityCfg.RateLimitWindowDuration(),
			SkipPaths: []string{"/health", "/healthz", "/_internal/ready", "/metrics"},
		}))
	}

	middlewares = append(middlewares,
		middleware.StructuredLogger(middleware.LoggingConfig{
			Logger:        logger,
			SlowThreshold: 500 * time.Millisecond,
			SkipPaths:     []string{"/health", "/healthz", "/_internal/ready", "/metrics"},
		}),
		chiMiddleware.Recoverer,
		chiMiddleware.Compress(5),
		middleware.I18n(services.I18n),
	)

	r.Use(middlewares...)

	healthHandler := func(w http.ResponseWriter, req *http.Request) {
		status := "healthy"
		code := http.StatusOK
		if services.DB != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := services.DB.PingContext(ctx); err != nil {
				status = "unhealthy"
				code = http.StatusServiceUnavailable
			}
		}
		respondJSON(w, code, map[string]string{
			"status":  status,
			"service": "xcellar-api",
		})
	}
	r.Get("/health", healthHandler)
	r.Get("/healthz", healthHandler)

	r.Get("/_internal/ready", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if metricsCfg.Enabled {
		if metricsCfg.Token != "" {
			r.With(middleware.MetricsGuard(metricsCfg.Token)).Handle("/metrics", promhttp.Handler())
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}

	paymentHandler := handler.NewPaymentHandler(services.Payments, services.Webhooks, services.I18n)

	// The webhook also answers on the unversioned path the provider was
	// originally configured with.
	r.Post("/payments/webhook", paymentHandler.Webhook)

	r.Route("/api/v1", func(v1 chi.Router) {
		registerV1Routes(v1, services, paymentHandler)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Warn("unmapped route hit", "method", req.Method, "path", req.URL.Path)
		http.NotFound(w, req)
	})

	return r
}

func registerV1Routes(v1 chi.Router, services Services, paymentHandler *handler.PaymentHandler) {
	authHandler := handler.NewAuthHandler(services.Accounts, services.Passwords, services.Dashboard, services.I18n)
	verificationHandler := handler.NewVerificationHandler(services.Verifications, services.Accounts, services.I18n)
	marketplaceHandler := handler.NewMarketplaceHandler(services.Marketplace, services.I18n)
	orderHandler := handler.NewOrderHandler(services.Orders, services.I18n)
	courierHandler := handler.NewCourierHandler(services.Couriers, services.I18n)
	helpHandler := handler.NewHelpHandler(services.Help, services.FAQ, services.I18n)
	automationHandler := handler.NewAutomationHandler(services.Automation, services.I18n)
	bankHandler := handler.NewBankHandler(services.Banks, services.I18n)
	opsHandler := handler.NewOpsHandler(services.Ops, services.I18n)

	userGuard := middleware.UserGuard(services.Tokens)
	courierGuard := middleware.CourierGuard(services.Tokens)
	optionalGuard := middleware.OptionalUserGuard(services.Tokens)

	v1.Route("/auth", func(auth chi.Router) {
		auth.Post("/register/user", authHandler.RegisterUser)
		auth.Post("/register/courier", authHandler.RegisterCourier)
		auth.Post("/login", authHandler.Login)
		auth.Post("/refresh", authHandler.Refresh)
		auth.Post("/password/reset/request", authHandler.RequestPasswordReset)
		auth.Post("/password/reset/confirm", authHandler.ConfirmPasswordReset)

		auth.Group(func(protected chi.Router) {
			protected.Use(userGuard)
			protected.Get("/profile", authHandler.Profile)
			protected.Patch("/profile", authHandler.UpdateProfile)
		})
	})

	v1.With(userGuard).Get("/users/dashboard", authHandler.UserDashboard)

	v1.Route("/verification", func(verification chi.Router) {
		verification.Use(userGuard)
		verification.Post("/send-otp", verificationHandler.SendOTP)
		verification.Post("/verify-otp", verificationHandler.VerifyOTP)
	})

	v1.Route("/marketplace", func(marketplace chi.Router) {
		marketplace.Get("/categories", marketplaceHandler.Categories)
		marketplace.Get("/stores", marketplaceHandler.Stores)
		marketplace.Get("/stores/{id:[0-9]+}", marketplaceHandler.Store)
		marketplace.Get("/products", marketplaceHandler.Products)
		marketplace.Get("/products/{id:[0-9]+}", marketplaceHandler.Product)

		marketplace.Group(func(protected chi.Router) {
			protected.Use(userGuard)
			protected.Get("/cart", marketplaceHandler.Cart)
			protected.Post("/cart/add", marketplaceHandler.AddToCart)
			protected.Delete("/cart/remove/{itemID:[0-9]+}", marketplaceHandler.RemoveFromCart)
			protected.Post("/cart/checkout", marketplaceHandler.Checkout)
		})
	})

	v1.Route("/orders", func(orders chi.Router) {
		orders.Use(userGuard)
		orders.Post("/", orderHandler.Create)
		orders.Get("/", orderHandler.List)
		orders.With(courierGuard).Get("/available", orderHandler.Available)
		orders.Get("/{id:[0-9]+}", orderHandler.Get)
		orders.Get("/{id:[0-9]+}/track", orderHandler.Track)
		orders.Post("/{id:[0-9]+}/confirm", orderHandler.Confirm)
		orders.Post("/{id:[0-9]+}/cancel", orderHandler.Cancel)
		orders.With(courierGuard).Post("/{id:[0-9]+}/accept", orderHandler.Accept)
		orders.With(courierGuard).Post("/{id:[0-9]+}/reject", orderHandler.Reject)
		orders.With(courierGuard).Patch("/{id:[0-9]+}/update-status", orderHandler.UpdateStatus)
	})

	v1.Route("/couriers", func(couriers chi.Router) {
		couriers.Use(courierGuard)
		couriers.Get("/vehicles", courierHandler.Vehicles)
		couriers.Post("/vehicles", courierHandler.AddVehicle)
		couriers.Get("/vehicles/{id:[0-9]+}", courierHandler.Vehicle)
		couriers.Patch("/vehicles/{id:[0-9]+}", courierHandler.UpdateVehicle)
		couriers.Delete("/vehicles/{id:[0-9]+}", courierHandler.RemoveVehicle)
		couriers.Post("/vehicles/{id:[0-9]+}/activate", courierHandler.ActivateVehicle)
		couriers.Get("/license", courierHandler.License)
		couriers.Post("/license", courierHandler.SaveLicense)
		couriers.Get("/dashboard", courierHandler.Dashboard)
	})

	v1.Route("/payments", func(payments chi.Router) {
		payments.Post("/webhook", paymentHandler.Webhook)

		payments.Group(func(protected chi.Router) {
			protected.Use(userGuard)
			protected.Get("/balance", paymentHandler.Balance)
			protected.Post("/initialize", paymentHandler.Initialize)
			protected.Post("/verify", paymentHandler.Verify)
			protected.Post("/dva/create", paymentHandler.CreateDVA)
			protected.Get("/dva", paymentHandler.DVA)
			protected.Post("/transfer/recipient/create", paymentHandler.CreateRecipient)
			protected.Get("/transfer/recipients", paymentHandler.Recipients)
			protected.Post("/transfer", paymentHandler.Transfer)
			protected.Post("/transfer/finalize", paymentHandler.FinalizeTransfer)
			protected.Get("/transactions", paymentHandler.Transactions)
			protected.Get("/transactions/{id:[0-9]+}", paymentHandler.Transaction)
			protected.Get("/notifications", paymentHandler.Notifications)
			protected.Get("/notifications/{id:[0-9]+}", paymentHandler.Notification)
			protected.Post("/notifications/{id:[0-9]+}/read", paymentHandler.MarkNotificationRead)
			protected.Post("/notifications/read-all", paymentHandler.MarkAllNotificationsRead)
		})
	})

	v1.Route("/help", func(help chi.Router) {
		help.With(optionalGuard).Post("/request", helpHandler.Submit)
		help.With(userGuard).Get("/my-requests", helpHandler.MyRequests)
	})

	v1.Get("/faq", helpHandler.FAQs)
	v1.Get("/faq/{id:[0-9]+}", helpHandler.FAQ)

	v1.With(middleware.AutomationGuard(services.AutomationToken)).
		Post("/automation/webhook", automationHandler.Webhook)

	v1.Route("/core", func(core chi.Router) {
		core.Use(userGuard)
		core.Get("/banks", bankHandler.Banks)
		core.Post("/verify-account", bankHandler.VerifyAccount)
	})

	v1.Route("/ops", func(ops chi.Router) {
		ops.Use(middleware.ServerTokenGuard(services.ServerAPIToken))
		ops.Get("/system", opsHandler.System)
		ops.Get("/stats", opsHandler.Stats)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
