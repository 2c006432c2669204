package app

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/config"
	"github.com/tobert/halfremembered-launcher/internal/crypto"
	"github.com/tobert/halfremembered-launcher/internal/dispatcher"
	"github.com/tobert/halfremembered-launcher/internal/handler"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/orchestrator"
	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/server"
	"github.com/tobert/halfremembered-launcher/internal/service"
	"github.com/tobert/halfremembered-launcher/internal/store"
	"github.com/tobert/halfremembered-launcher/internal/transport"
	"github.com/tobert/halfremembered-launcher/internal/validators"
	"github.com/tobert/halfremembered-launcher/internal/workers"
	"github.com/tobert/halfremembered-launcher/models"
)

// Server is a fully wired launcher server.
type Server struct {
	server     *server.Server
	dispatcher *dispatcher.Dispatcher
	db         *store.DB
	logger     *logger.Logger
}

// NewServer opens the store, loads the SSH keys, starts listening and
// builds every component the acceptor needs. Nothing is served until Run.
func NewServer(ctx context.Context, cfg *config.ServerConfig, info models.AppBuildInfo, log *logger.Logger) (*Server, error) {
	clk := clock.Real()

	db, err := store.Open(ctx, cfg.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	repos := store.NewRepositories(db, log)

	ln, err := listen(cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	reg := registry.New(log)
	bg := workers.New(workers.NewReaper(reg, cfg.HeartbeatInterval, clk, log))

	svcs, err := service.NewServices(cfg.Hostname, info, reg, repos, clk, log)
	if err != nil {
		ln.Close()
		db.Close()
		return nil, fmt.Errorf("creating services: %w", err)
	}

	handlers, err := handler.NewHandlers(svcs, *cfg, log)
	switch {
	case errors.Is(err, handler.ErrNoHandlersAreCreated):
		log.Info().Msg("status API disabled")
	case err != nil:
		ln.Close()
		db.Close()
		return nil, fmt.Errorf("creating handlers: %w", err)
	default:
		bg.Add(server.NewHTTPServer(cfg.HTTPAddress, handlers.HTTP.Init(), cfg.RequestTimeout, log))
	}

	srv := server.New(server.Config{
		Version:           cfg.Version,
		HeartbeatInterval: cfg.HeartbeatInterval,
		MaxFrameSize:      cfg.MaxFrameSize,
		DrainTimeout:      cfg.DrainTimeout,
	}, ln, reg, bg, clk, log)

	fleet := orchestrator.New(reg, repos.SyncHistory, orchestrator.Options{
		OpTimeout:   cfg.OpTimeout,
		BlockSize:   cfg.BlockSize,
		Compression: cfg.Compression,
	}, clk, log)

	d := dispatcher.New(dispatcher.Config{
		Hostname:     cfg.Hostname,
		Version:      cfg.Version,
		DrainTimeout: cfg.DrainTimeout,
	}, reg, fleet, repos.Watches, validators.NewCommandValidator(), srv.Stop, clk, log)

	return &Server{server: srv, dispatcher: d, db: db, logger: log}, nil
}

func listen(cfg *config.ServerConfig, log *logger.Logger) (transport.Listener, error) {
	keys := crypto.NewKeyChain(log)

	hostKey, err := keys.HostSigner(cfg.HostKeyPath)
	if err != nil {
		return nil, fmt.Errorf("loading host key: %w", err)
	}
	authorized, err := keys.AuthorizedKeys(cfg.AuthorizedKeysPath)
	if err != nil {
		return nil, fmt.Errorf("loading authorized keys: %w", err)
	}

	ln, err := transport.Listen(cfg.ListenAddress, transport.ServerOptions{
		HostSigner: hostKey,
		Authorize:  authorized.Check,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", cfg.ListenAddress, err)
	}
	return ln, nil
}

// Addr is the SSH listener's bound address.
func (s *Server) Addr() net.Addr {
	return s.server.Addr()
}

// Run serves until a signal, a shutdown command or ctx ends, then closes
// the store.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		if err := s.db.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("closing store")
		}
	}()
	return s.server.Serve(ctx, s.dispatcher)
}
