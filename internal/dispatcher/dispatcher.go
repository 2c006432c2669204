// Package dispatcher answers administrative commands received on one-shot
// control connections.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/orchestrator"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/session"
	"github.com/tobert/halfremembered-launcher/internal/validators"
	"github.com/tobert/halfremembered-launcher/internal/watch"
	"github.com/tobert/halfremembered-launcher/models"
)

// DefaultDrainTimeout bounds how long a client shutdown waits for the
// selected sessions to finish their in-flight channels.
const DefaultDrainTimeout = 30 * time.Second

// Config identifies the server in Status responses.
type Config struct {
	Hostname     string
	Version      string
	DrainTimeout time.Duration
}

type Dispatcher struct {
	cfg       Config
	registry  *registry.Registry
	fleet     Fleet
	watches   WatchStore
	validator validators.Validator
	clock     clock.Clock
	logger    *logger.Logger
	startedAt time.Time

	// stopServer is called for ShutdownCommand{Scope: "server"}.
	stopServer func(reason string)
}

// New builds a Dispatcher. watches may be nil when no store is configured;
// watch commands then fail. stopServer may be nil, in which case a server
// shutdown is refused.
func New(cfg Config, reg *registry.Registry, fleet Fleet, watches WatchStore, validator validators.Validator, stopServer func(string), clk clock.Clock, log *logger.Logger) *Dispatcher {
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = logger.Nop()
	}
	if validator == nil {
		validator = validators.NewCommandValidator()
	}

	return &Dispatcher{
		cfg:        cfg,
		registry:   reg,
		fleet:      fleet,
		watches:    watches,
		validator:  validator,
		clock:      clk,
		logger:     log,
		startedAt:  clk.Now(),
		stopServer: stopServer,
	}
}

// Handle runs cmd and returns its response. Failures, including panics in
// a handler, come back as protocol.Error.
func (d *Dispatcher) Handle(ctx context.Context, cmd protocol.Command) (resp protocol.Message) {
	if cmd == nil {
		return protocol.Error{Reason: ErrUnsupportedCommand.Error()}
	}
	log := logger.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("func", "Dispatcher.Handle").Str("command", cmd.Tag().String()).
				Interface("panic", r).Bytes("stack", debug.Stack()).Msg("command handler panicked")
			resp = protocol.Error{Reason: fmt.Sprintf("%s: %v", ErrPanic, r)}
		}
	}()

	if err := d.validator.Validate(ctx, cmd); err != nil {
		return protocol.Error{Reason: fmt.Sprintf("invalid %s: %v", cmd.Tag(), err)}
	}

	resp, err := d.handle(ctx, cmd)
	if err != nil {
		log.Err(err).Str("func", "Dispatcher.Handle").Str("command", cmd.Tag().String()).Msg("command failed")
		return protocol.Error{Reason: err.Error()}
	}

	log.Debug().Str("command", cmd.Tag().String()).Str("response", resp.Tag().String()).Msg("command handled")
	return resp
}

func (d *Dispatcher) handle(ctx context.Context, cmd protocol.Command) (protocol.Message, error) {
	switch c := cmd.(type) {
	case protocol.StatusCommand:
		return protocol.StatusResponse{Status: d.Status()}, nil

	case protocol.ListClientsCommand:
		return protocol.ClientListResponse{Clients: d.Clients()}, nil

	case protocol.PingCommand:
		results, err := d.fleet.Ping(ctx, registry.ParseSelector(c.Target))
		if err != nil {
			return nil, err
		}
		return protocol.PingResponse{Results: results}, nil

	case protocol.ShutdownCommand:
		return d.shutdown(ctx, c)

	case protocol.SyncFileCommand:
		report, err := d.fleet.Sync(ctx, orchestrator.SyncRequest{
			Source:      c.Path,
			Inline:      c.Inline,
			Data:        c.Data,
			Destination: c.Destination,
			Selector:    registry.ParseSelector(c.Targets),
		})
		if err != nil {
			return nil, err
		}
		return protocol.SyncReportResponse{Report: report}, nil

	case protocol.ExecuteCommand:
		report, err := d.fleet.Exec(ctx, orchestrator.ExecRequest{
			Selector:   registry.ParseSelector(c.Target),
			Command:    c.Command,
			Args:       c.Args,
			WorkingDir: c.WorkingDir,
			Env:        c.Env,
		})
		if err != nil {
			return nil, err
		}
		return protocol.ExecReportResponse{Report: report}, nil

	case protocol.WatchDirectoryCommand:
		return d.watch(ctx, c)

	case protocol.UnwatchDirectoryCommand:
		if d.watches == nil {
			return nil, ErrNoWatchStore
		}
		if err := d.watches.RemoveWatch(ctx, filepath.Clean(c.Path)); err != nil {
			return nil, err
		}
		return protocol.SuccessResponse{Message: "stopped watching " + c.Path}, nil

	case protocol.ListWatchesCommand:
		if d.watches == nil {
			return nil, ErrNoWatchStore
		}
		list, err := d.watches.ListWatches(ctx)
		if err != nil {
			return nil, err
		}
		return protocol.WatchListResponse{Watches: list}, nil

	case protocol.NotifyChangeCommand:
		return d.notify(ctx, c)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd.Tag())
	}
}

// Status reports the server identity, uptime and current clients.
func (d *Dispatcher) Status() models.ServerStatus {
	return models.ServerStatus{
		Hostname: d.cfg.Hostname,
		Version:  d.cfg.Version,
		Uptime:   d.clock.Now().Sub(d.startedAt),
		Clients:  d.Clients(),
	}
}

// Clients lists the registered daemon sessions.
func (d *Dispatcher) Clients() []models.ClientInfo {
	sessions := d.registry.All()
	out := make([]models.ClientInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info())
	}
	return out
}

func (d *Dispatcher) shutdown(ctx context.Context, c protocol.ShutdownCommand) (protocol.Message, error) {
	if c.Scope == "server" {
		if d.stopServer == nil {
			return nil, fmt.Errorf("%w: server shutdown is not available", ErrUnsupportedCommand)
		}
		d.logger.Info().Msg("shutdown requested by administrator")
		d.stopServer("requested by administrator")
		return protocol.SuccessResponse{Message: "server shutting down"}, nil
	}

	sel := registry.All()
	if c.Scope != "" && c.Scope != "clients" {
		sel = registry.ParseSelector(c.Scope)
	}

	targets, missing, err := d.registry.Select(sel)
	if err != nil {
		return nil, err
	}

	drainCtx, cancel := context.WithTimeout(ctx, d.cfg.DrainTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, s := range targets {
		wg.Add(1)
		go func(s *session.Session) {
			defer wg.Done()
			if err := s.Drain(drainCtx, "requested by administrator"); err != nil {
				s.Logger().Warn().Err(err).Msg("drain did not finish")
			}
		}(s)
	}
	wg.Wait()

	msg := fmt.Sprintf("sent shutdown to %d client(s)", len(targets))
	if len(missing) > 0 {
		msg += fmt.Sprintf("; no session for %v", missing)
	}
	return protocol.SuccessResponse{Message: msg}, nil
}

func (d *Dispatcher) watch(ctx context.Context, c protocol.WatchDirectoryCommand) (protocol.Message, error) {
	if d.watches == nil {
		return nil, ErrNoWatchStore
	}

	w, err := d.watches.AddWatch(ctx, models.Watch{
		Path:        filepath.Clean(c.Path),
		Recursive:   c.Recursive,
		Include:     c.Include,
		Exclude:     c.Exclude,
		Destination: c.Destination,
	})
	if err != nil {
		return nil, err
	}

	return protocol.SuccessResponse{Message: fmt.Sprintf("watching %s (id %d)", w.Path, w.ID)}, nil
}

// notify syncs each changed path under the stored watch with the deepest
// root containing it. That watch alone decides; a path its filters reject is
// reported unmatched rather than offered to a shallower watch.
func (d *Dispatcher) notify(ctx context.Context, c protocol.NotifyChangeCommand) (protocol.Message, error) {
	if d.watches == nil {
		return nil, ErrNoWatchStore
	}

	list, err := d.watches.ListWatches(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(list, func(a, b models.Watch) int {
		return strings.Count(filepath.Clean(b.Path), string(filepath.Separator)) -
			strings.Count(filepath.Clean(a.Path), string(filepath.Separator))
	})

	resp := protocol.ChangeReportResponse{}
	for _, p := range c.Paths {
		ev, ok, err := resolveChange(list, filepath.Clean(p))
		if err != nil {
			return nil, err
		}
		if !ok {
			resp.Unmatched = append(resp.Unmatched, p)
			continue
		}

		report, err := d.fleet.HandleWatchEvent(ctx, ev)
		if err != nil {
			return nil, fmt.Errorf("syncing %s: %w", p, err)
		}
		resp.Reports = append(resp.Reports, report)
	}

	logger.FromContext(ctx).Info().Int("synced", len(resp.Reports)).Int("unmatched", len(resp.Unmatched)).
		Msg("change notification handled")
	return resp, nil
}

// resolveChange returns the event for path under the first watch in watches
// whose root contains it.
func resolveChange(watches []models.Watch, path string) (watch.Event, bool, error) {
	for _, w := range watches {
		ev, ok, err := watch.Resolve(w, path)
		if errors.Is(err, watch.ErrOutsideRoot) {
			continue
		}
		if err != nil {
			return watch.Event{}, false, fmt.Errorf("watch %s: %w", w.Path, err)
		}
		return ev, ok, nil
	}
	return watch.Event{}, false, nil
}
