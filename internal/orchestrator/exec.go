package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/session"
	"github.com/tobert/halfremembered-launcher/internal/utils"
	"github.com/tobert/halfremembered-launcher/models"
)

// ExecRequest is a command to run on every selected session.
type ExecRequest struct {
	Selector   registry.Selector
	Command    string
	Args       []string
	WorkingDir string
	Env        map[string]string
}

// Exec runs the command on every selected session over Exec channels.
func (o *Orchestrator) Exec(ctx context.Context, req ExecRequest) (models.ExecReport, error) {
	if strings.TrimSpace(req.Command) == "" {
		return models.ExecReport{}, ErrEmptyCommand
	}

	targets, missing, err := o.targets.Select(req.Selector)
	if err != nil {
		return models.ExecReport{}, err
	}

	requestID := utils.NewID()
	ctx = utils.WithRequestID(ctx, requestID)
	o.logger.Info().Str("request_id", requestID).Str("command", req.Command).Int("targets", len(targets)).Msg("exec started")

	report := models.ExecReport{RequestID: requestID, Command: req.Command, Args: req.Args}
	report.Outcomes = fanOut(ctx, o, targets, func(ctx context.Context, s *session.Session) models.ExecOutcome {
		return o.execOn(ctx, s, requestID, req)
	})
	for _, name := range missing {
		report.Outcomes = append(report.Outcomes, models.ExecOutcome{
			Hostname: name,
			ExitCode: -1,
			Error:    fmt.Sprintf("%s: %s", ErrNoSuchSession, name),
		})
	}

	return report, nil
}

func (o *Orchestrator) execOn(ctx context.Context, s *session.Session, requestID string, req ExecRequest) models.ExecOutcome {
	outcome := models.ExecOutcome{SessionID: s.ID(), Hostname: s.Hostname(), ExitCode: -1}

	done, err := runRemote(ctx, s, protocol.Execute{
		RequestID:  requestID,
		Command:    req.Command,
		Args:       req.Args,
		WorkingDir: req.WorkingDir,
		Env:        req.Env,
	})
	if err != nil {
		outcome.Error = failure(ctx, s, err)
		logger.FromContext(s.Context()).Warn().Str("request_id", requestID).Str("reason", outcome.Error).Msg("exec on target failed")
		return outcome
	}

	outcome.ExitCode = done.ExitCode
	outcome.Stdout = done.Stdout
	outcome.Stderr = done.Stderr
	return outcome
}

func runRemote(ctx context.Context, s *session.Session, req protocol.Execute) (protocol.ExecComplete, error) {
	c, err := s.OpenChannel(ctx, protocol.ChannelExec)
	if err != nil {
		return protocol.ExecComplete{}, err
	}
	defer c.Close()

	if err := c.Send(req); err != nil {
		return protocol.ExecComplete{}, fmt.Errorf("sending execute: %w", err)
	}

	done, err := protocol.Expect[protocol.ExecComplete](c)
	if err != nil {
		return protocol.ExecComplete{}, fmt.Errorf("awaiting exec result: %w", err)
	}
	return done, nil
}
