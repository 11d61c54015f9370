// Package config provides configuration parsing for resmon.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"gitlab.com/tinyland/lab/resmon/notify"
)

// Config represents the resmon configuration.
type Config struct {
	// Monitor holds sampling loop settings.
	Monitor MonitorConfig `yaml:"monitor"`

	// Storage holds persistence locations.
	Storage StorageConfig `yaml:"storage"`

	// Alerts holds alert delivery settings.
	Alerts AlertsConfig `yaml:"alerts"`
}

// MonitorConfig holds sampling loop settings.
type MonitorConfig struct {
	// Interval is a duration string (e.g. "2s", "500ms") between samples.
	Interval string `yaml:"interval"`
	// DiskPath is the mount point measured for disk utilization.
	DiskPath string `yaml:"disk_path"`
}

// StorageConfig holds persistence locations.
type StorageConfig struct {
	// DataDir is the base directory for durable state.
	DataDir string `yaml:"data_dir"`
	// AlarmsFile is the path of the alarm set record. Defaults to
	// {DataDir}/alarms.json when empty.
	AlarmsFile string `yaml:"alarms_file"`
	// LogDir is the directory for the per-day event log files.
	// Defaults to {DataDir}/logs when empty.
	LogDir string `yaml:"log_dir"`
}

// AlertsConfig holds alert delivery settings. SMTP credentials are
// never stored in the config file; the *_env fields name the
// environment variables (a .env file is honored) that carry them.
type AlertsConfig struct {
	// EmailEnabled toggles alert mail on alarm triggers.
	EmailEnabled bool `yaml:"email_enabled"`
	// HostEnv names the env var holding the SMTP host.
	HostEnv string `yaml:"host_env"`
	// PortEnv names the env var holding the SMTP port.
	PortEnv string `yaml:"port_env"`
	// UserEnv names the env var holding the SMTP username.
	UserEnv string `yaml:"user_env"`
	// PasswordEnv names the env var holding the SMTP password.
	PasswordEnv string `yaml:"password_env"`
	// RecipientEnv names the env var holding the alert recipient.
	RecipientEnv string `yaml:"recipient_env"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".local", "share", "resmon")

	return &Config{
		Monitor: MonitorConfig{
			Interval: "2s",
			DiskPath: "/",
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Alerts: AlertsConfig{
			EmailEnabled: false,
			HostEnv:      "ALERT_SMTP_HOST",
			PortEnv:      "ALERT_SMTP_PORT",
			UserEnv:      "ALERT_SMTP_USER",
			PasswordEnv:  "ALERT_SMTP_PASSWORD",
			RecipientEnv: "ALERT_RECIPIENT",
		},
	}
}

// LoadConfig loads configuration from a YAML file, merging with
// defaults. A missing file is not an error. A .env file in the working
// directory, if present, is loaded into the environment for the
// *_env lookups.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	config := DefaultConfig()

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for required fields and logical
// consistency.
func (c *Config) Validate() error {
	d, err := time.ParseDuration(c.Monitor.Interval)
	if err != nil {
		return fmt.Errorf("monitor.interval: %w", err)
	}
	if d < 100*time.Millisecond {
		return fmt.Errorf("monitor.interval %s too short (minimum 100ms)", c.Monitor.Interval)
	}
	if c.Monitor.DiskPath == "" {
		return fmt.Errorf("monitor.disk_path must not be empty")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}
	return nil
}

// Interval returns the parsed sampling interval.
func (c *Config) Interval() time.Duration {
	d, err := time.ParseDuration(c.Monitor.Interval)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// AlarmsFile returns the resolved alarm record path.
func (c *Config) AlarmsFile() string {
	if c.Storage.AlarmsFile != "" {
		return c.Storage.AlarmsFile
	}
	return filepath.Join(c.Storage.DataDir, "alarms.json")
}

// LogDir returns the resolved event log directory.
func (c *Config) LogDir() string {
	if c.Storage.LogDir != "" {
		return c.Storage.LogDir
	}
	return filepath.Join(c.Storage.DataDir, "logs")
}

// SMTPSettings resolves the alert mail settings from the environment.
// Returns disabled settings when alert mail is off or the required
// variables are unset.
func (c *Config) SMTPSettings() notify.Settings {
	if !c.Alerts.EmailEnabled {
		return notify.Settings{}
	}

	port := 0
	if v := os.Getenv(c.Alerts.PortEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			port = n
		}
	}
	return notify.Settings{
		Host:      os.Getenv(c.Alerts.HostEnv),
		Port:      port,
		Username:  os.Getenv(c.Alerts.UserEnv),
		Password:  os.Getenv(c.Alerts.PasswordEnv),
		Recipient: os.Getenv(c.Alerts.RecipientEnv),
	}
}
