package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of the configuration. JSON and YAML share
// the same keys.
type fileConfig struct {
	App struct {
		Hostname   string `json:"hostname" yaml:"hostname"`
		Version    string `json:"version" yaml:"version"`
		LogLevel   string `json:"log_level" yaml:"log_level"`
		WorkingDir string `json:"working_dir" yaml:"working_dir"`
	} `json:"app" yaml:"app"`

	Transport struct {
		ListenAddress      string `json:"listen_address" yaml:"listen_address"`
		ServerAddress      string `json:"server_address" yaml:"server_address"`
		HostKeyPath        string `json:"host_key" yaml:"host_key"`
		AuthorizedKeysPath string `json:"authorized_keys" yaml:"authorized_keys"`
		IdentityPath       string `json:"identity" yaml:"identity"`
		AgentSocket        string `json:"agent_socket" yaml:"agent_socket"`
		KnownHostsPath     string `json:"known_hosts" yaml:"known_hosts"`
		User               string `json:"user" yaml:"user"`
		MaxFrameSize       int    `json:"max_frame_size" yaml:"max_frame_size"`
	} `json:"transport" yaml:"transport"`

	Session struct {
		HeartbeatInterval Duration `json:"heartbeat_interval" yaml:"heartbeat_interval"`
		WelcomeTimeout    Duration `json:"welcome_timeout" yaml:"welcome_timeout"`
		ReconnectInterval Duration `json:"reconnect_interval" yaml:"reconnect_interval"`
		ReconnectCeiling  Duration `json:"reconnect_ceiling" yaml:"reconnect_ceiling"`
		DrainTimeout      Duration `json:"drain_timeout" yaml:"drain_timeout"`
	} `json:"session" yaml:"session"`

	Sync struct {
		OpTimeout   Duration `json:"op_timeout" yaml:"op_timeout"`
		BlockSize   int      `json:"block_size" yaml:"block_size"`
		Compression string   `json:"compression" yaml:"compression"`
	} `json:"sync" yaml:"sync"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn" yaml:"dsn"`
		} `json:"db" yaml:"db"`
	} `json:"storage" yaml:"storage"`

	Server struct {
		HTTPAddress    string   `json:"http_address" yaml:"http_address"`
		RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
	} `json:"server" yaml:"server"`

	Adapter struct {
		StatusURL      string   `json:"status_url" yaml:"status_url"`
		RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
		PollInterval   Duration `json:"poll_interval" yaml:"poll_interval"`
	} `json:"adapter" yaml:"adapter"`
}

// parseFile reads a config file, choosing YAML for .yaml and .yml and JSON
// otherwise.
func parseFile(path string) (*StructuredConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading a config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("error decoding yaml configs: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("error decoding json configs: %w", err)
		}
	}

	return fc.structured(), nil
}

func (fc *fileConfig) structured() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			Hostname:   fc.App.Hostname,
			Version:    fc.App.Version,
			LogLevel:   fc.App.LogLevel,
			WorkingDir: fc.App.WorkingDir,
		},
		Transport: Transport{
			ListenAddress:      fc.Transport.ListenAddress,
			ServerAddress:      fc.Transport.ServerAddress,
			HostKeyPath:        fc.Transport.HostKeyPath,
			AuthorizedKeysPath: fc.Transport.AuthorizedKeysPath,
			IdentityPath:       fc.Transport.IdentityPath,
			AgentSocket:        fc.Transport.AgentSocket,
			KnownHostsPath:     fc.Transport.KnownHostsPath,
			User:               fc.Transport.User,
			MaxFrameSize:       fc.Transport.MaxFrameSize,
		},
		Session: Session{
			HeartbeatInterval: time.Duration(fc.Session.HeartbeatInterval),
			WelcomeTimeout:    time.Duration(fc.Session.WelcomeTimeout),
			ReconnectInterval: time.Duration(fc.Session.ReconnectInterval),
			ReconnectCeiling:  time.Duration(fc.Session.ReconnectCeiling),
			DrainTimeout:      time.Duration(fc.Session.DrainTimeout),
		},
		Sync: Sync{
			OpTimeout:   time.Duration(fc.Sync.OpTimeout),
			BlockSize:   fc.Sync.BlockSize,
			Compression: fc.Sync.Compression,
		},
		Storage: Storage{
			DB: DB{DSN: fc.Storage.DB.DSN},
		},
		Server: Server{
			HTTPAddress:    fc.Server.HTTPAddress,
			RequestTimeout: time.Duration(fc.Server.RequestTimeout),
		},
		Adapter: Adapter{
			StatusURL:      fc.Adapter.StatusURL,
			RequestTimeout: time.Duration(fc.Adapter.RequestTimeout),
			PollInterval:   time.Duration(fc.Adapter.PollInterval),
		},
	}
}

// Duration is a wrapper around time.Duration that decodes from strings like
// "1h" and "30s" or from a number of nanoseconds, in JSON and YAML.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		return d.parse(value)
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid duration at line %d", node.Line)
	}
	if n, err := strconv.ParseInt(node.Value, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	tmp, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(tmp)
	return nil
}
