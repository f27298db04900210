package cmd

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-payment-hub/app/controller"
	"github.com/vibast-solutions/ms-go-payment-hub/app/directory"
	"github.com/vibast-solutions/ms-go-payment-hub/app/dispatch"
	"github.com/vibast-solutions/ms-go-payment-hub/app/provider"
	"github.com/vibast-solutions/ms-go-payment-hub/app/repository"
	"github.com/vibast-solutions/ms-go-payment-hub/app/service"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
	"github.com/vibast-solutions/ms-go-payment-hub/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for payments, partner management, and provider webhooks.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, services, cleanup := mustCreateServices()
	defer cleanup()

	paymentController := controller.NewPaymentController(services.payments)
	partnerController := controller.NewPartnerController(services.partners)
	webhookController := controller.NewWebhookController(services.payments)

	e := setupHTTPServer(cfg, paymentController, partnerController, webhookController)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	cfg *config.Config,
	paymentController *controller.PaymentController,
	partnerController *controller.PartnerController,
	webhookController *controller.WebhookController,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.RequestID())

	e.GET("/health", paymentController.Health)

	requireKey := requireAPIKey(cfg.App.APIKey)

	payments := e.Group("/payments", requireKey)
	payments.POST("", paymentController.CreatePayment)
	payments.GET("/:id", paymentController.GetPayment)
	payments.POST("/:id/verify", paymentController.VerifyPayment)
	payments.POST("/:id/cancel", paymentController.CancelPayment)
	payments.POST("/:id/refund", paymentController.RefundPayment)
	payments.GET("/reservation/:reservation_id", paymentController.ListByReservation)

	partners := e.Group("/partners", requireKey)
	partners.POST("", partnerController.CreatePartner)
	partners.GET("", partnerController.ListPartners)
	partners.GET("/by-event", partnerController.ListPartnersByEvent)
	partners.GET("/:id", partnerController.GetPartner)
	partners.POST("/:id/rotate-secret", partnerController.RotateSecret)
	partners.POST("/:id/activate", partnerController.ActivatePartner)
	partners.POST("/:id/deactivate", partnerController.DeactivatePartner)
	partners.POST("/:id/test-webhook", partnerController.TestWebhook)

	// Providers authenticate with signatures, not API keys.
	webhooks := e.Group("/webhooks")
	webhooks.POST("/providers/:provider", webhookController.HandleProviderWebhook)
	webhooks.POST("/test/generate-signature", webhookController.GenerateSignature)

	return e
}

func requireAPIKey(apiKey string) echo.MiddlewareFunc {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		logrus.Warn("APP_API_KEY is not set, API key enforcement is disabled")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if apiKey == "" {
				return next(ctx)
			}
			provided := strings.TrimSpace(ctx.Request().Header.Get("X-API-Key"))
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "invalid api key"})
			}
			return next(ctx)
		}
	}
}

type services struct {
	payments *service.PaymentService
	partners *service.PartnerService
}

func mustCreateServices() (*config.Config, *services, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	paymentRepo := repository.NewPaymentRepository(db)
	eventRepo := repository.NewPaymentEventRepository(db)
	partnerRepo := repository.NewPartnerRepository(db)

	providers := []provider.Provider{
		provider.NewStripeProvider(provider.StripeConfig{
			SecretKey:          cfg.Stripe.SecretKey,
			WebhookSecret:      cfg.Stripe.WebhookSecret,
			SignatureTolerance: cfg.Stripe.SignatureTolerance,
			HTTPTimeout:        cfg.Stripe.HTTPTimeout,
			SuccessURL:         cfg.Stripe.SuccessURL,
			CancelURL:          cfg.Stripe.CancelURL,
		}),
	}
	if cfg.Mock.Enabled {
		providers = append(providers, provider.NewMockProvider(provider.MockConfig{
			WebhookSecret:      cfg.Mock.WebhookSecret,
			SignatureTolerance: cfg.Webhooks.SignatureTolerance,
			CheckoutBaseURL:    cfg.Mock.CheckoutBaseURL,
		}))
	}
	providerRegistry := provider.NewRegistry(providers...)

	partnerDirectory := directory.NewLocal(partnerRepo, cfg.Webhooks.SuspendThreshold)
	dispatcher := dispatch.NewDispatcher(partnerDirectory, dispatch.Config{Timeout: cfg.Webhooks.DispatchTimeout})
	notifier := dispatch.NewWorkflowNotifier(cfg.Webhooks.WorkflowURL, cfg.Webhooks.WorkflowTimeout)

	paymentService := service.NewPaymentService(
		paymentRepo,
		eventRepo,
		providerRegistry,
		dispatcher,
		notifier,
		cfg.Payments,
	)
	partnerService := service.NewPartnerService(partnerRepo, dispatcher)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, &services{payments: paymentService, partners: partnerService}, cleanup
}
