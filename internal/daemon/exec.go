package daemon

import (
	"context"
	"fmt"

	"github.com/tobert/halfremembered-launcher/internal/executor"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/utils"
)

// Variables every executed command sees in addition to the requested
// environment.
const (
	EnvSessionID = "HRL_SESSION_ID"
	EnvRequestID = "HRL_REQUEST_ID"
)

// execute serves one Execute request on an Exec channel.
func (d *Daemon) execute(ctx context.Context, c *protocol.Conn) error {
	req, err := protocol.Expect[protocol.Execute](c)
	if err != nil {
		return fmt.Errorf("awaiting execute: %w", err)
	}

	log := logger.FromContext(ctx).WithFields("request_id", req.RequestID, "command", req.Command)
	log.Info().Strs("args", req.Args).Msg("executing")

	if d.executor == nil {
		return c.Send(protocol.Error{RequestID: req.RequestID, Reason: "execution is disabled on this daemon"})
	}

	res, err := d.executor.Run(ctx, executor.Request{
		Command:    req.Command,
		Args:       req.Args,
		WorkingDir: req.WorkingDir,
		Env:        commandEnv(ctx, req),
	})
	if err != nil {
		log.Err(err).Str("func", "Daemon.execute").Msg("command failed")
		if sendErr := c.Send(protocol.Error{RequestID: req.RequestID, Reason: err.Error()}); sendErr != nil {
			return fmt.Errorf("reporting exec failure: %w", sendErr)
		}
		return nil
	}

	return c.Send(protocol.ExecComplete{
		RequestID: req.RequestID,
		ExitCode:  res.ExitCode,
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
	})
}

// commandEnv copies the requested environment and adds the launcher ids.
// Requested values win.
func commandEnv(ctx context.Context, req protocol.Execute) map[string]string {
	env := make(map[string]string, len(req.Env)+2)
	if id, ok := utils.GetSessionIDFromContext(ctx); ok {
		env[EnvSessionID] = id
	}
	env[EnvRequestID] = req.RequestID
	for k, v := range req.Env {
		env[k] = v
	}
	return env
}
