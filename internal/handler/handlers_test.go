package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/config"
	"github.com/tobert/halfremembered-launcher/internal/handler/http"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/service"
	"github.com/tobert/halfremembered-launcher/models"
)

func TestNewHandlers(t *testing.T) {
	services, err := service.NewServices("hub", models.NewAppBuildInfo("1.0.0", "", ""),
		registry.New(logger.Nop()), nil, clock.Real(), logger.Nop())
	require.NoError(t, err)

	tests := []struct {
		name     string
		services *service.Services
		address  string
		wantHTTP bool
		wantErr  error
	}{
		{name: "status API enabled", services: services, address: "127.0.0.1:8023", wantHTTP: true},
		{name: "status API disabled", services: services, address: "", wantErr: ErrNoHandlersAreCreated},
		{name: "services missing", services: &service.Services{}, address: "127.0.0.1:8023", wantErr: http.ErrMissingService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandlers(tt.services, config.ServerConfig{HTTPAddress: tt.address}, logger.Nop())

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHTTP, h.HTTP != nil)
		})
	}
}
