package di

import (
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/gateway"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/handler"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/service"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/session"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/redis"
)

// Container holds all dependencies for the checkout BFF
type Container struct {
	// Infrastructure
	Redis *redis.Client

	// Remote API and gateways
	API         service.RemoteAPI
	CardGateway gateway.CardGateway
	Events      service.EventPublisher

	// Session state
	Sessions      *service.SessionRegistry
	Tokens        *session.TokenStore
	PendingDrafts *session.PendingDraftStore
	Authenticator *service.Authenticator

	// Services
	CheckoutService service.CheckoutService
	WizardService   service.WizardService
	AuthService     service.AuthService
	BookingService  service.BookingService

	// Handlers
	HealthHandler   *handler.HealthHandler
	WizardHandler   *handler.WizardHandler
	CheckoutHandler *handler.CheckoutHandler
	AuthHandler     *handler.AuthHandler
	BookingHandler  *handler.BookingHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	Redis          *redis.Client
	API            service.RemoteAPI
	CardGateway    gateway.CardGateway
	EventPublisher service.EventPublisher
	SessionBackend session.Backend
	Sessions       *service.SessionRegistry
	TokenStore     *session.TokenStore
	PendingDrafts  *session.PendingDraftStore
	Checkout       *service.CheckoutServiceConfig
	Wizard         *service.WizardServiceConfig
	// HealthChecks are extra readiness probes keyed by component name
	HealthChecks map[string]handler.HealthChecker
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		Redis:         cfg.Redis,
		API:           cfg.API,
		CardGateway:   cfg.CardGateway,
		Events:        cfg.EventPublisher,
		Sessions:      cfg.Sessions,
		Tokens:        cfg.TokenStore,
		PendingDrafts: cfg.PendingDrafts,
	}

	if c.Events == nil {
		c.Events = service.NewNoOpEventPublisher()
	}
	if c.CardGateway == nil {
		c.CardGateway = gateway.NewMockGateway(gateway.DefaultMockGatewayConfig())
	}

	backend := cfg.SessionBackend
	if backend == nil {
		backend = session.NewMemoryBackend()
	}
	if c.Tokens == nil {
		c.Tokens = session.NewTokenStore(backend, 0)
	}
	if c.PendingDrafts == nil {
		c.PendingDrafts = session.NewPendingDraftStore(backend, 0)
	}
	if c.Sessions == nil {
		c.Sessions = service.NewSessionRegistry(c.API, 0)
	}

	c.Authenticator = service.NewAuthenticator(c.Tokens)

	// Initialize services
	c.CheckoutService = service.NewCheckoutService(c.Sessions, c.Authenticator, c.API, c.CardGateway, c.Events, cfg.Checkout)
	c.WizardService = service.NewWizardService(c.Sessions, c.Authenticator, c.PendingDrafts, c.CheckoutService, cfg.Wizard)
	c.AuthService = service.NewAuthService(c.Sessions, c.Authenticator, c.PendingDrafts, c.API, c.CheckoutService)
	c.BookingService = service.NewBookingService(c.Sessions, c.Authenticator, c.API)

	// Initialize handlers
	checks := make(map[string]handler.HealthChecker, len(cfg.HealthChecks)+1)
	if c.Redis != nil {
		checks["redis"] = c.Redis
	}
	for name, check := range cfg.HealthChecks {
		checks[name] = check
	}
	c.HealthHandler = handler.NewHealthHandler(checks)
	c.WizardHandler = handler.NewWizardHandler(c.WizardService)
	c.CheckoutHandler = handler.NewCheckoutHandler(c.CheckoutService)
	c.AuthHandler = handler.NewAuthHandler(c.AuthService)
	c.BookingHandler = handler.NewBookingHandler(c.BookingService)

	return c
}
