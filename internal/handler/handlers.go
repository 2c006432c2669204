package handler

import (
	"fmt"

	"github.com/tobert/halfremembered-launcher/internal/config"
	"github.com/tobert/halfremembered-launcher/internal/handler/http"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/service"
)

type Handlers struct {
	HTTP *http.Handler
}

func NewHandlers(services *service.Services, cfg config.ServerConfig, logger *logger.Logger) (*Handlers, error) {
	logger.Info().Msg("creating new handlers...")

	handlers := &Handlers{}

	if cfg.HTTPAddress != "" {
		h, err := http.NewHandler(services, logger)
		if err != nil {
			return nil, fmt.Errorf("creating status API handler: %w", err)
		}
		handlers.HTTP = h
	}

	if handlers.HTTP == nil {
		return nil, ErrNoHandlersAreCreated
	}

	return handlers, nil
}
