package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tobert/halfremembered-launcher/internal/client"
	"github.com/tobert/halfremembered-launcher/internal/config"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
)

// responseSlack is added to the per-target timeout to bound one whole admin
// round trip.
const responseSlack = 10 * time.Second

// ErrTargetsFailed is returned when the server answered but at least one
// target reported a failure.
var ErrTargetsFailed = errors.New("one or more targets failed")

type adminFunc func(ctx context.Context, c client.Commander) error

// runAdmin loads the admin config, opens a command client and runs fn under
// a deadline derived from the operation timeout.
func (c *cli) runAdmin(cmd *cobra.Command, fn adminFunc) error {
	cfg, err := config.GetAdminConfig(cmd.Flags())
	if err != nil {
		return err
	}
	cfg.Version = c.version(cfg.Version)

	log := logger.NewConsoleLogger("admin", c.stderr)
	if cfg.LogLevel == "debug" {
		logger.SetLevel(cfg.LogLevel)
		log.Logger = log.Level(zerolog.DebugLevel)
	}

	commander, closeAuth, err := c.dialAdmin(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeAuth(); err != nil {
			log.Warn().Err(err).Msg("closing ssh-agent connection")
		}
	}()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.OpTimeout+responseSlack)
	defer cancel()

	return fn(ctx, commander)
}

func (c *cli) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the connected client daemons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runAdmin(cmd, func(ctx context.Context, cl client.Commander) error {
				resp, err := client.Call[protocol.ClientListResponse](ctx, cl, protocol.ListClientsCommand{})
				if err != nil {
					return err
				}
				printClients(c.stdout, resp.Clients, time.Now())
				return nil
			})
		},
	}
}

func (c *cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the server identity, uptime and clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runAdmin(cmd, func(ctx context.Context, cl client.Commander) error {
				resp, err := client.Call[protocol.StatusResponse](ctx, cl, protocol.StatusCommand{})
				if err != nil {
					return err
				}
				printStatus(c.stdout, resp.Status, time.Now())
				return nil
			})
		},
	}
}

func (c *cli) pingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping <host>",
		Short: "Ping the daemons whose hostname matches a glob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAdmin(cmd, func(ctx context.Context, cl client.Commander) error {
				resp, err := client.Call[protocol.PingResponse](ctx, cl, protocol.PingCommand{Target: args[0]})
				if err != nil {
					return err
				}
				if failed := printPings(c.stdout, resp.Results); failed > 0 {
					return fmt.Errorf("%w: %d of %d", ErrTargetsFailed, failed, len(resp.Results))
				}
				return nil
			})
		},
	}
}

func (c *cli) execCommand() *cobra.Command {
	var (
		dir string
		env map[string]string
	)

	cmd := &cobra.Command{
		Use:   "exec <host> <command> [args...]",
		Short: "Run a command on the daemons whose hostname matches a glob",
		Long: `Run a command on every daemon whose hostname matches <host>. The command is
executed directly, not through a shell. Flags after <host> are passed to the
command.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			execCmd := protocol.ExecuteCommand{
				Target:     args[0],
				Command:    args[1],
				Args:       args[2:],
				WorkingDir: dir,
				Env:        env,
			}
			return c.runAdmin(cmd, func(ctx context.Context, cl client.Commander) error {
				resp, err := client.Call[protocol.ExecReportResponse](ctx, cl, execCmd)
				if err != nil {
					return err
				}
				if failed := printExecReport(c.stdout, resp.Report); failed > 0 {
					return fmt.Errorf("%w: %d of %d", ErrTargetsFailed, failed, len(resp.Report.Outcomes))
				}
				return nil
			})
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&dir, "dir", "", "working directory on the target")
	cmd.Flags().StringToStringVar(&env, "env", nil, "extra environment (KEY=VALUE, repeatable)")
	return cmd
}

func (c *cli) syncCommand() *cobra.Command {
	var (
		destination string
		targets     string
		onServer    bool
	)

	cmd := &cobra.Command{
		Use:   "sync <path>",
		Short: "Push a file to the connected daemons",
		Long: `Push a file to every daemon matching --targets (all daemons by default).
The file is read locally and sent to the server, unless --on-server is set,
in which case the server reads <path> itself.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			syncCmd, err := buildSyncCommand(args[0], destination, targets, onServer)
			if err != nil {
				return err
			}
			return c.runAdmin(cmd, func(ctx context.Context, cl client.Commander) error {
				resp, err := client.Call[protocol.SyncReportResponse](ctx, cl, syncCmd)
				if err != nil {
					return err
				}
				if failed := printSyncReport(c.stdout, resp.Report); failed > 0 {
					return fmt.Errorf("%w: %d of %d", ErrTargetsFailed, failed, len(resp.Report.Outcomes))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "destination path on the targets (default the file name)")
	cmd.Flags().StringVarP(&targets, "targets", "t", "", "hostname glob selecting the targets (default all)")
	cmd.Flags().BoolVar(&onServer, "on-server", false, "read <path> on the server instead of sending it")
	return cmd
}

func buildSyncCommand(path, destination, targets string, onServer bool) (protocol.SyncFileCommand, error) {
	syncCmd := protocol.SyncFileCommand{
		Path:        path,
		Destination: destination,
		Targets:     targets,
	}
	if onServer {
		return syncCmd, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return protocol.SyncFileCommand{}, fmt.Errorf("reading %s: %w", path, err)
	}
	syncCmd.Path = filepath.Base(path)
	syncCmd.Inline = true
	syncCmd.Data = data
	if syncCmd.Destination == "" {
		syncCmd.Destination = syncCmd.Path
	}
	return syncCmd, nil
}

func (c *cli) shutdownCommand() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "shutdown",
		Short: "Stop the server or send Shutdown to client daemons",
		Long: `Stop the server (--scope server), every client daemon (--scope clients) or
the daemons whose hostname matches a glob (--scope "<glob>").`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runAdmin(cmd, func(ctx context.Context, cl client.Commander) error {
				resp, err := client.Call[protocol.SuccessResponse](ctx, cl, protocol.ShutdownCommand{Scope: scope})
				if err != nil {
					return err
				}
				printSuccess(c.stdout, resp.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "server", `"server", "clients" or a hostname glob`)
	return cmd
}

func (c *cli) watchCommand() *cobra.Command {
	var w protocol.WatchDirectoryCommand

	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Store a directory watch configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w.Path = args[0]
			return c.runAdmin(cmd, func(ctx context.Context, cl client.Commander) error {
				resp, err := client.Call[protocol.SuccessResponse](ctx, cl, w)
				if err != nil {
					return err
				}
				printSuccess(c.stdout, resp.Message)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&w.Recursive, "recursive", "r", false, "watch subdirectories too")
	cmd.Flags().StringSliceVar(&w.Include, "include", nil, "glob of files to include (repeatable)")
	cmd.Flags().StringSliceVar(&w.Exclude, "exclude", nil, "glob of files to exclude (repeatable)")
	cmd.Flags().StringVarP(&w.Destination, "destination", "d", "", "destination directory on the targets")
	return cmd
}

func (c *cli) unwatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unwatch <path>",
		Short: "Remove a directory watch configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAdmin(cmd, func(ctx context.Context, cl client.Commander) error {
				resp, err := client.Call[protocol.SuccessResponse](ctx, cl, protocol.UnwatchDirectoryCommand{Path: args[0]})
				if err != nil {
					return err
				}
				printSuccess(c.stdout, resp.Message)
				return nil
			})
		},
	}
}

func (c *cli) watchesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watches",
		Short: "List the stored directory watches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runAdmin(cmd, func(ctx context.Context, cl client.Commander) error {
				resp, err := client.Call[protocol.WatchListResponse](ctx, cl, protocol.ListWatchesCommand{})
				if err != nil {
					return err
				}
				printWatches(c.stdout, resp.Watches)
				return nil
			})
		},
	}
}

func (c *cli) notifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notify <path> [path...]",
		Short: "Sync changed files through the stored watches",
		Long: `Report files that changed on the server host. Each path is matched against
the stored watches and synced to every daemon under the deepest watch that
contains it. Relative paths are made absolute against the current directory,
so an external watcher running next to the server can call this directly.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notify := protocol.NotifyChangeCommand{Paths: make([]string, 0, len(args))}
			for _, p := range args {
				abs, err := filepath.Abs(p)
				if err != nil {
					return fmt.Errorf("resolving %s: %w", p, err)
				}
				notify.Paths = append(notify.Paths, abs)
			}

			return c.runAdmin(cmd, func(ctx context.Context, cl client.Commander) error {
				resp, err := client.Call[protocol.ChangeReportResponse](ctx, cl, notify)
				if err != nil {
					return err
				}
				if failed := printChangeReport(c.stdout, resp); failed > 0 {
					return fmt.Errorf("%w: %d sync(s) incomplete", ErrTargetsFailed, failed)
				}
				return nil
			})
		},
	}
}
