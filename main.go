package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/client"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/di"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/gateway"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/metrics"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/service"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/session"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/config"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/logger"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/middleware"
	pkgredis "github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/redis"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/telemetry"
)

const serviceName = "checkout-bff"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(&logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
		FilePath:    cfg.Log.FilePath,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting checkout BFF...")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize telemetry
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
		MetricInterval: cfg.OTel.MetricInterval,
	}); err != nil {
		appLog.Warn(fmt.Sprintf("Telemetry init failed: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()
	if err := metrics.Init(); err != nil {
		appLog.Warn(fmt.Sprintf("Metrics init failed: %v", err))
	}

	// Initialize Redis connection
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisCfg := &pkgredis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			MaxRetries:    3,
			RetryInterval: 100 * time.Millisecond,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
			PoolTimeout:   4 * time.Second,
		}
		redisClient, err = pkgredis.NewClient(ctx, redisCfg)
		if err != nil {
			appLog.Warn(fmt.Sprintf("Redis connection failed: %v", err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			appLog.Info(fmt.Sprintf("Redis connected (pool: %d, minIdle: %d)", redisCfg.PoolSize, redisCfg.MinIdleConns))
		}
	}

	// Initialize session backend, falling back to memory
	backend := newSessionBackend(cfg, redisClient, appLog)
	defer backend.Close()

	// Remote booking API
	api := client.New(client.Config{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.API.Timeout,
		ReadRetries:  cfg.API.ReadRetries,
		RetryBackoff: cfg.API.RetryBackoff,
	})

	// Initialize card gateway based on feature flag
	cardGateway, err := gateway.NewCardGateway(cfg.Payment.Gateway, &gateway.GatewayConfig{
		PublishableKey: cfg.Payment.StripePublishableKey,
		Environment:    cfg.Payment.StripeEnvironment,
		SuccessRate:    cfg.Payment.MockSuccessRate,
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("Failed to create %s gateway: %v, falling back to mock", cfg.Payment.Gateway, err))
		cardGateway = gateway.NewMockGateway(gateway.DefaultMockGatewayConfig())
	}
	appLog.Info(fmt.Sprintf("Using %s card gateway", cardGateway.Name()))

	// Checkout events
	var events service.EventPublisher = service.NewNoOpEventPublisher()
	if cfg.Kafka.Enabled {
		publisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.CheckoutTopic,
			ServiceName: serviceName,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka producer failed: %v, checkout events disabled", err))
		} else {
			events = publisher
			appLog.Info(fmt.Sprintf("Publishing checkout events to %s", cfg.Kafka.CheckoutTopic))
		}
	}
	defer events.Close()

	// Per-session composer and orchestrator state
	sessions := service.NewSessionRegistry(api, cfg.Session.IdleTTL)
	sessions.Start(ctx, cfg.Session.SweepInterval)
	defer sessions.Stop()

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		Redis:          redisClient,
		API:            api,
		CardGateway:    cardGateway,
		EventPublisher: events,
		SessionBackend: backend,
		Sessions:       sessions,
		TokenStore:     session.NewTokenStore(backend, cfg.Session.AuthTTL),
		PendingDrafts:  session.NewPendingDraftStore(backend, cfg.Session.DraftTTL),
		Checkout:       &service.CheckoutServiceConfig{SupportEmail: cfg.Payment.SupportEmail},
		Wizard: &service.WizardServiceConfig{
			LoginPath:  cfg.Session.LoginPath,
			ResumePath: cfg.Session.ResumePath,
		},
	})

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Apply middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(telemetry.TracingMiddleware(serviceName))
	router.Use(middleware.CORS(cfg.CORS.AllowOrigins))
	router.Use(middleware.Session(middleware.SessionConfig{
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.CookieSecure,
		MaxAge:     cfg.Session.IdleTTL,
	}))
	router.Use(middleware.Logger(appLog))
	router.Use(requestMetrics())

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// Replays a repeated X-Idempotency-Key on checkout writes when Redis is available
	var idempotent gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if redisClient != nil {
		idempotent = middleware.Idempotency(middleware.IdempotencyConfig{
			Redis:        redisClient.Client(),
			MaxBodyBytes: domain.MaxReceiptBytes + 1<<20,
		})
	}

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"version": cfg.App.Version,
				"service": serviceName,
			})
		})

		wizard := v1.Group("/wizard")
		{
			wizard.GET("", container.WizardHandler.Get)
			wizard.GET("/tours/:tour", container.WizardHandler.Load)
			wizard.PUT("/date", container.WizardHandler.SelectDate)
			wizard.PUT("/flight", container.WizardHandler.SetFlightOption)
			wizard.PUT("/headcount", container.WizardHandler.SetHeadcount)
			wizard.POST("/addons/:id/toggle", container.WizardHandler.ToggleAddOn)
			wizard.PUT("/travelers", container.WizardHandler.UpdateTravelers)
			wizard.PUT("/options", container.WizardHandler.SetOptions)
			wizard.POST("/validate", container.WizardHandler.Validate)
			wizard.POST("/advance", container.WizardHandler.Advance)
			wizard.POST("/back", container.WizardHandler.Back)
			wizard.POST("/submit", idempotent, container.WizardHandler.Submit)
		}

		checkout := v1.Group("/checkout")
		{
			checkout.GET("", container.CheckoutHandler.Get)
			checkout.POST("/start", container.CheckoutHandler.Start)
			checkout.POST("/retry", idempotent, container.CheckoutHandler.RetryBooking)
			checkout.PUT("/method", container.CheckoutHandler.SelectMethod)
			checkout.POST("/card/confirm", idempotent, container.CheckoutHandler.ConfirmCard)
			checkout.POST("/bank/receipt", idempotent, container.CheckoutHandler.SubmitReceipt)
		}

		auth := v1.Group("/auth")
		if cfg.RateLimit.Enabled {
			limit, err := middleware.RateLimit(middleware.RateLimitConfig{
				Rate:    cfg.RateLimit.Auth,
				RouteID: "auth",
				Redis:   redisUniversal(redisClient),
			})
			if err != nil {
				appLog.Fatal(fmt.Sprintf("Invalid auth rate limit: %v", err))
			}
			auth.Use(limit)
		}
		{
			auth.POST("/login", container.AuthHandler.Login)
			auth.POST("/signup", container.AuthHandler.Signup)
			auth.POST("/resume", container.AuthHandler.Resume)
			auth.POST("/logout", container.AuthHandler.Logout)
			auth.GET("/me", container.AuthHandler.Me)
		}

		bookings := v1.Group("/bookings")
		{
			bookings.GET("", container.BookingHandler.ListMine)
			bookings.POST("/:id/cancel", container.BookingHandler.Cancel)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Checkout BFF listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(fmt.Sprintf("Server forced to shutdown: %v", err))
	}
	stop()

	appLog.Info("Server exited gracefully")
}

// newSessionBackend opens the configured token and pending-draft store
func newSessionBackend(cfg *config.Config, redisClient *pkgredis.Client, appLog *logger.Logger) session.Backend {
	switch cfg.Session.Store {
	case session.StoreRedis:
		if redisClient == nil {
			appLog.Warn("Session store redis requested without Redis, using memory")
			return session.NewMemoryBackend()
		}
		appLog.Info("Using Redis session store")
		return session.NewRedisBackend(redisClient)

	case session.StoreBadger:
		db, err := session.OpenBadger(cfg.Session.BadgerPath)
		if err != nil {
			appLog.Warn(fmt.Sprintf("Badger open failed: %v, using memory session store", err))
			return session.NewMemoryBackend()
		}
		appLog.Info(fmt.Sprintf("Using badger session store at %s", cfg.Session.BadgerPath))
		return session.NewBadgerBackend(db)

	default:
		appLog.Warn("Using in-memory session store (logins do not survive restarts)")
		return session.NewMemoryBackend()
	}
}

// requestMetrics records request latency per route template
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequestDuration(c.Request.Context(), route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// redisUniversal keeps a missing client a true nil so the limiter falls back to memory
func redisUniversal(redisClient *pkgredis.Client) goredis.UniversalClient {
	if redisClient == nil {
		return nil
	}
	return redisClient.Client()
}
