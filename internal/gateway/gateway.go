package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// CardGateway reports the provider-side status of a hosted card payment
type CardGateway interface {
	// VerifyPayment returns the provider status of the payment intent.
	// clientSecret scopes the lookup to the browser that owns the intent.
	VerifyPayment(ctx context.Context, paymentIntentID, clientSecret string) (domain.ProviderStatus, error)

	// Name returns the gateway name
	Name() string
}

// GatewayType represents the type of card gateway
type GatewayType string

const (
	GatewayTypeMock   GatewayType = "mock"
	GatewayTypeStripe GatewayType = "stripe"
)

// GatewayConfig holds common gateway configuration
type GatewayConfig struct {
	PublishableKey string
	Environment    string // "test" or "live"
	SuccessRate    float64
}

// NewCardGateway creates a card gateway based on the type
func NewCardGateway(gatewayType string, config *GatewayConfig) (CardGateway, error) {
	switch GatewayType(strings.ToLower(gatewayType)) {
	case GatewayTypeMock, "":
		mockCfg := DefaultMockGatewayConfig()
		if config != nil && config.SuccessRate > 0 {
			mockCfg.SuccessRate = config.SuccessRate
		}
		return NewMockGateway(mockCfg), nil

	case GatewayTypeStripe:
		if config == nil || config.PublishableKey == "" {
			return nil, fmt.Errorf("stripe publishable key is required")
		}
		return NewStripeGateway(&StripeGatewayConfig{
			PublishableKey: config.PublishableKey,
			Environment:    config.Environment,
		})

	default:
		return nil, fmt.Errorf("unsupported gateway type: %s", gatewayType)
	}
}
