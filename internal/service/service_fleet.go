package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/models"
)

type fleetService struct {
	hostname  string
	version   string
	startedAt time.Time

	registry *registry.Registry
	clock    clock.Clock
	logger   *logger.Logger
}

func NewFleetService(hostname, version string, reg *registry.Registry, clk clock.Clock, logger *logger.Logger) (FleetService, error) {
	if hostname == "" {
		return nil, ErrHostnameIsNotSpecified
	}
	if version == "" {
		return nil, ErrVersionIsNotSpecified
	}

	return &fleetService{
		hostname:  hostname,
		version:   version,
		startedAt: clk.Now(),
		registry:  reg,
		clock:     clk,
		logger:    logger,
	}, nil
}

func (s *fleetService) Status(ctx context.Context) models.ServerStatus {
	return models.ServerStatus{
		Hostname: s.hostname,
		Version:  s.version,
		Uptime:   s.clock.Now().Sub(s.startedAt),
		Clients:  s.Clients(ctx),
	}
}

func (s *fleetService) Clients(ctx context.Context) []models.ClientInfo {
	sessions := s.registry.All()
	clients := make([]models.ClientInfo, 0, len(sessions))
	for _, sess := range sessions {
		clients = append(clients, sess.Info())
	}
	return clients
}

func (s *fleetService) Client(ctx context.Context, sessionID string) (models.ClientInfo, error) {
	sess, ok := s.registry.Get(sessionID)
	if !ok {
		return models.ClientInfo{}, fmt.Errorf("%w: %s", registry.ErrSessionNotFound, sessionID)
	}
	return sess.Info(), nil
}
