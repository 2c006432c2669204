package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Flag names shared by every launcher command.
const (
	flagConfig         = "config"
	flagLogLevel       = "log-level"
	flagHostname       = "hostname"
	flagWorkingDir     = "working-dir"
	flagListen         = "listen"
	flagServer         = "server"
	flagHostKey        = "host-key"
	flagAuthorizedKeys = "authorized-keys"
	flagIdentity       = "identity"
	flagAgentSocket    = "agent-socket"
	flagKnownHosts     = "known-hosts"
	flagUser           = "user"
	flagMaxFrameSize   = "max-frame-size"
	flagHeartbeat      = "heartbeat-interval"
	flagOpTimeout      = "op-timeout"
	flagBlockSize      = "block-size"
	flagCompression    = "compression"
	flagDSN            = "db"
	flagHTTPAddress    = "http-address"
	flagStatusURL      = "status-url"
)

// BindFlags registers the launcher's configuration flags on fs. Values are
// read back by [GetStructuredConfig], which only honours flags that were set.
func BindFlags(fs *pflag.FlagSet) {
	fs.StringP(flagConfig, "c", "", "JSON or YAML config file")
	fs.String(flagLogLevel, "", "log level (debug, info, warn, error)")
	fs.String(flagHostname, "", "hostname reported to the server")
	fs.String(flagWorkingDir, "", "directory for relative sync destinations and commands")
	fs.Var(new(NetAddress), flagListen, "SSH listen address host:port")
	fs.Var(new(NetAddress), flagServer, "server address host:port")
	fs.String(flagHostKey, "", "server host key path")
	fs.String(flagAuthorizedKeys, "", "authorized_keys path")
	fs.StringP(flagIdentity, "i", "", "private key file")
	fs.String(flagAgentSocket, "", "ssh-agent socket (default $SSH_AUTH_SOCK)")
	fs.String(flagKnownHosts, "", "known_hosts path for host key checking")
	fs.String(flagUser, "", "SSH user name")
	fs.Int(flagMaxFrameSize, 0, "maximum frame size in bytes")
	fs.Duration(flagHeartbeat, 0, "heartbeat interval (e.g. 30s)")
	fs.Duration(flagOpTimeout, 0, "per-target operation timeout (e.g. 60s)")
	fs.Int(flagBlockSize, 0, "delta block size override in bytes")
	fs.String(flagCompression, "", "delta compression (none, lz4, zstd)")
	fs.String(flagDSN, "", "database DSN (sqlite path or postgres:// URL)")
	fs.String(flagHTTPAddress, "", `status API address host:port, or "off"`)
	fs.String(flagStatusURL, "", "status API base URL")
}

// flagSetters copies one changed flag value into the config.
var flagSetters = map[string]func(value string, cfg *StructuredConfig) error{
	flagLogLevel:       setString(func(c *StructuredConfig) *string { return &c.App.LogLevel }),
	flagHostname:       setString(func(c *StructuredConfig) *string { return &c.App.Hostname }),
	flagWorkingDir:     setString(func(c *StructuredConfig) *string { return &c.App.WorkingDir }),
	flagListen:         setString(func(c *StructuredConfig) *string { return &c.Transport.ListenAddress }),
	flagServer:         setString(func(c *StructuredConfig) *string { return &c.Transport.ServerAddress }),
	flagHostKey:        setString(func(c *StructuredConfig) *string { return &c.Transport.HostKeyPath }),
	flagAuthorizedKeys: setString(func(c *StructuredConfig) *string { return &c.Transport.AuthorizedKeysPath }),
	flagIdentity:       setString(func(c *StructuredConfig) *string { return &c.Transport.IdentityPath }),
	flagAgentSocket:    setString(func(c *StructuredConfig) *string { return &c.Transport.AgentSocket }),
	flagKnownHosts:     setString(func(c *StructuredConfig) *string { return &c.Transport.KnownHostsPath }),
	flagUser:           setString(func(c *StructuredConfig) *string { return &c.Transport.User }),
	flagCompression:    setString(func(c *StructuredConfig) *string { return &c.Sync.Compression }),
	flagDSN:            setString(func(c *StructuredConfig) *string { return &c.Storage.DB.DSN }),
	flagHTTPAddress:    setString(func(c *StructuredConfig) *string { return &c.Server.HTTPAddress }),
	flagStatusURL:      setString(func(c *StructuredConfig) *string { return &c.Adapter.StatusURL }),
	flagMaxFrameSize:   setInt(func(c *StructuredConfig) *int { return &c.Transport.MaxFrameSize }),
	flagBlockSize:      setInt(func(c *StructuredConfig) *int { return &c.Sync.BlockSize }),
	flagHeartbeat:      setDuration(func(c *StructuredConfig) *time.Duration { return &c.Session.HeartbeatInterval }),
	flagOpTimeout:      setDuration(func(c *StructuredConfig) *time.Duration { return &c.Sync.OpTimeout }),
}

func setString(field func(*StructuredConfig) *string) func(string, *StructuredConfig) error {
	return func(value string, c *StructuredConfig) error {
		*field(c) = value
		return nil
	}
}

func setInt(field func(*StructuredConfig) *int) func(string, *StructuredConfig) error {
	return func(value string, c *StructuredConfig) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func setDuration(field func(*StructuredConfig) *time.Duration) func(string, *StructuredConfig) error {
	return func(value string, c *StructuredConfig) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

// parseFlags builds a config from the flags set on fs. Flags left at their
// defaults contribute nothing.
func parseFlags(fs *pflag.FlagSet) (*StructuredConfig, error) {
	cfg := &StructuredConfig{}
	var errs []error

	fs.Visit(func(f *pflag.Flag) {
		set, ok := flagSetters[f.Name]
		if !ok {
			return
		}
		if err := set(f.Value.String(), cfg); err != nil {
			errs = append(errs, fmt.Errorf("flag --%s: %w", f.Name, err))
		}
	})

	if len(errs) > 0 {
		return nil, fmt.Errorf("error parsing flags: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// NetAddress holds structured network address data for host and port.
// It implements the pflag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// String returns a canonical host:port string for a NetAddress, or "" when
// unset.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Set parses the input string of form host:port and populates the NetAddress.
// The host may be empty, an IP address or a host name.
func (a *NetAddress) Set(s string) error {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return errors.New("need address in a form `host:port`")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return err
	}

	if port < 1 || port > 65535 {
		return errors.New("port number must be between 1 and 65535")
	}

	a.Host = host
	a.Port = port
	return nil
}

// Type implements pflag.Value.
func (a *NetAddress) Type() string {
	return "host:port"
}
