package gateway

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// StripeGateway verifies PaymentIntents confirmed by Stripe Elements in the browser
type StripeGateway struct {
	config    *StripeGatewayConfig
	getIntent func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGatewayConfig holds configuration for Stripe gateway
type StripeGatewayConfig struct {
	// PublishableKey plus the intent's client secret is enough to read its status
	PublishableKey string
	Environment    string // "test" or "live"
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(config *StripeGatewayConfig) (*StripeGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.PublishableKey == "" {
		return nil, fmt.Errorf("stripe publishable key is required")
	}

	// Set Stripe API key globally
	stripe.Key = config.PublishableKey

	return &StripeGateway{
		config:    config,
		getIntent: paymentintent.Get,
	}, nil
}

// VerifyPayment retrieves the PaymentIntent and maps its status
func (g *StripeGateway) VerifyPayment(ctx context.Context, paymentIntentID, clientSecret string) (domain.ProviderStatus, error) {
	if paymentIntentID == "" {
		return "", fmt.Errorf("payment intent ID is required")
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	if clientSecret != "" {
		params.ClientSecret = stripe.String(clientSecret)
	}

	pi, err := g.getIntent(paymentIntentID, params)
	if err != nil {
		return "", fmt.Errorf("failed to get payment intent: %w", err)
	}

	return mapStripeStatus(pi.Status), nil
}

func mapStripeStatus(status stripe.PaymentIntentStatus) domain.ProviderStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return domain.ProviderSucceeded
	case stripe.PaymentIntentStatusProcessing:
		return domain.ProviderProcessing
	case stripe.PaymentIntentStatusRequiresCapture:
		return domain.ProviderRequiresCapture
	case stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusRequiresConfirmation:
		return domain.ProviderRequiresAction
	case stripe.PaymentIntentStatusCanceled:
		return domain.ProviderCanceled
	default:
		// requires_payment_method after a confirm means the card was declined
		return domain.ProviderFailed
	}
}

// Name returns the gateway name
func (g *StripeGateway) Name() string {
	return "stripe"
}
