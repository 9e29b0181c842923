package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// MockGateway implements CardGateway for local development and tests
type MockGateway struct {
	config   *MockGatewayConfig
	statuses sync.Map // paymentIntentID -> domain.ProviderStatus
	mu       sync.Mutex
	rng      *rand.Rand
}

// MockGatewayConfig holds configuration for the mock gateway
type MockGatewayConfig struct {
	// SuccessRate is the probability an unknown intent verifies as succeeded (0.0 to 1.0)
	SuccessRate float64

	// DelayMs is the simulated provider latency in milliseconds
	DelayMs int
}

// DefaultMockGatewayConfig returns default configuration
func DefaultMockGatewayConfig() *MockGatewayConfig {
	return &MockGatewayConfig{
		SuccessRate: 1.0,
		DelayMs:     50,
	}
}

// NewMockGateway creates a new mock gateway
func NewMockGateway(config *MockGatewayConfig) *MockGateway {
	if config == nil {
		config = DefaultMockGatewayConfig()
	}

	if config.SuccessRate < 0 {
		config.SuccessRate = 0
	}
	if config.SuccessRate > 1 {
		config.SuccessRate = 1
	}

	return &MockGateway{
		config: config,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetStatus pins the status returned for an intent
func (g *MockGateway) SetStatus(paymentIntentID string, status domain.ProviderStatus) {
	g.statuses.Store(paymentIntentID, status)
}

// VerifyPayment returns the pinned status, or draws one from SuccessRate
func (g *MockGateway) VerifyPayment(ctx context.Context, paymentIntentID, clientSecret string) (domain.ProviderStatus, error) {
	if paymentIntentID == "" {
		return "", fmt.Errorf("payment intent ID is required")
	}

	if g.config.DelayMs > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(g.config.DelayMs) * time.Millisecond):
		}
	}

	if v, ok := g.statuses.Load(paymentIntentID); ok {
		return v.(domain.ProviderStatus), nil
	}

	g.mu.Lock()
	roll := g.rng.Float64()
	g.mu.Unlock()

	status := domain.ProviderFailed
	if roll < g.config.SuccessRate {
		status = domain.ProviderSucceeded
	}
	g.statuses.Store(paymentIntentID, status)
	return status, nil
}

// Name returns the gateway name
func (g *MockGateway) Name() string {
	return "mock"
}
