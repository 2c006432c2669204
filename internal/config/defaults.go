package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	appDirName = "halfremembered-launcher"

	// HTTPDisabled turns the status API off.
	HTTPDisabled = "off"
)

// defaults returns the baseline configuration every other layer overrides.
func defaults() *StructuredConfig {
	hostname, _ := os.Hostname()

	return &StructuredConfig{
		App: App{
			Hostname:   hostname,
			Version:    "dev",
			LogLevel:   "info",
			WorkingDir: ".",
		},
		Transport: Transport{
			ListenAddress:      "0.0.0.0:8022",
			ServerAddress:      "127.0.0.1:8022",
			HostKeyPath:        filepath.Join(configDir(), "host_ed25519"),
			AuthorizedKeysPath: filepath.Join("~", ".ssh", "authorized_keys"),
			User:               currentUser(),
			MaxFrameSize:       10 << 20,
		},
		Session: Session{
			HeartbeatInterval: 30 * time.Second,
			WelcomeTimeout:    10 * time.Second,
			ReconnectInterval: 5 * time.Second,
			ReconnectCeiling:  60 * time.Second,
			DrainTimeout:      30 * time.Second,
		},
		Sync: Sync{
			OpTimeout:   60 * time.Second,
			Compression: "zstd",
		},
		Storage: Storage{
			DB: DB{DSN: filepath.Join(configDir(), "launcher.db")},
		},
		Server: Server{
			HTTPAddress:    "127.0.0.1:8023",
			RequestTimeout: 10 * time.Second,
		},
		Adapter: Adapter{
			StatusURL:      "http://127.0.0.1:8023",
			RequestTimeout: 5 * time.Second,
			PollInterval:   2 * time.Second,
		},
	}
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return appDirName
	}
	return filepath.Join(dir, appDirName)
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "launcher"
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !hasHomePrefix(path) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

func hasHomePrefix(path string) bool {
	return len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator)
}
