package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/handler"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/service"
)

func TestNewContainer_Defaults(t *testing.T) {
	c := NewContainer(&ContainerConfig{})

	require.NotNil(t, c)
	assert.NotNil(t, c.CardGateway)
	assert.IsType(t, &service.NoOpEventPublisher{}, c.Events)
	assert.NotNil(t, c.Tokens)
	assert.NotNil(t, c.PendingDrafts)
	assert.NotNil(t, c.Sessions)
	assert.NotNil(t, c.Authenticator)

	assert.NotNil(t, c.CheckoutService)
	assert.NotNil(t, c.WizardService)
	assert.NotNil(t, c.AuthService)
	assert.NotNil(t, c.BookingService)

	assert.NotNil(t, c.HealthHandler)
	assert.NotNil(t, c.WizardHandler)
	assert.NotNil(t, c.CheckoutHandler)
	assert.NotNil(t, c.AuthHandler)
	assert.NotNil(t, c.BookingHandler)
}

func TestNewContainer_KeepsProvidedPieces(t *testing.T) {
	sessions := service.NewSessionRegistry(nil, 0)
	c := NewContainer(&ContainerConfig{
		Sessions:     sessions,
		HealthChecks: map[string]handler.HealthChecker{"kafka": nil},
	})

	assert.Same(t, sessions, c.Sessions)
	assert.Nil(t, c.Redis)
}
