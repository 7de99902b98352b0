package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/dsyorkd/pi-switchd/internal/logger"
	"github.com/dsyorkd/pi-switchd/internal/schedule"
)

// Config holds the entire application configuration
type Config struct {
	// Logging configuration
	Log logger.Config `yaml:"log"`

	// GPIO backend configuration
	GPIO GPIOConfig `yaml:"gpio"`

	// Switch devices to construct at startup
	Devices []DeviceConfig `yaml:"devices"`

	// Schedule devices to construct at startup
	Schedules []ScheduleConfig `yaml:"schedules"`
}

// GPIOConfig contains GPIO backend settings
type GPIOConfig struct {
	MockMode     bool   `yaml:"mock_mode"`
	PollInterval string `yaml:"poll_interval"`
}

// DeviceConfig describes one GPIO switch. Pin numbers use BCM
// numbering; exactly one of output_pin and output_commands must be set.
type DeviceConfig struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`

	OutputPin      *int     `yaml:"output_pin"`
	OutputCommands []string `yaml:"output_commands"`

	// Type "toggle" marks a pulse-actuated relay
	Type string `yaml:"type"`

	InputPin           *int   `yaml:"input_pin"`
	InputPullDirection string `yaml:"input_pull_direction"`
	NotificationPin    *int   `yaml:"notification_pin"`

	LongPressIntervalMs int    `yaml:"long_press_interval_ms"`
	LongPressAction     string `yaml:"long_press_action"`

	PairedDeviceName string `yaml:"paired_device_name"`
}

// ScheduleConfig describes one schedule device
type ScheduleConfig struct {
	Name             string  `yaml:"name"`
	Port             int     `yaml:"port"`
	PairedDeviceName string  `yaml:"paired_device_name"`
	Timezone         string  `yaml:"timezone"`
	Latitude         float64 `yaml:"latitude"`
	Longitude        float64 `yaml:"longitude"`

	// InitialState is the schedule's enable flag at startup; enabled
	// when omitted
	InitialState *bool `yaml:"initial_state"`

	ScheduleEvents []schedule.EventConfig `yaml:"schedule_events"`
}

// Load loads configuration from a YAML file with defaults
func Load(configPath string) (*Config, error) {
	config := getDefaults()

	var configFile string
	if configPath != "" {
		configFile = configPath
	} else {
		searchPaths := []string{
			"./pi-switchd.yaml",
			"./config/pi-switchd.yaml",
			"/etc/pi-switchd/pi-switchd.yaml",
			filepath.Join(os.Getenv("HOME"), ".pi-switchd", "pi-switchd.yaml"),
		}

		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	applyEnvOverrides(&config)

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// validate checks settings the components cannot check themselves;
// device and schedule invariants are enforced by their constructors.
func (c *Config) validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level '%s': %w", c.Log.Level, err)
	}

	if _, err := c.GPIO.PollIntervalDuration(); err != nil {
		return err
	}

	return nil
}

// PollIntervalDuration parses the configured poll interval
func (c *GPIOConfig) PollIntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid poll interval '%s': %w", c.PollInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("poll interval must be positive, got '%s'", c.PollInterval)
	}
	return d, nil
}

// getDefaults returns a Config struct with default values
func getDefaults() Config {
	return Config{
		Log: logger.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		GPIO: GPIOConfig{
			MockMode:     false,
			PollInterval: "20ms",
		},
	}
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PI_SWITCHD_LOG_LEVEL"); env != "" {
		config.Log.Level = env
	}
	if env := os.Getenv("PI_SWITCHD_LOG_FORMAT"); env != "" {
		config.Log.Format = env
	}
	if env := os.Getenv("PI_SWITCHD_MOCK_GPIO"); env == "true" {
		config.GPIO.MockMode = true
	}
	if env := os.Getenv("PI_SWITCHD_POLL_INTERVAL"); env != "" {
		config.GPIO.PollInterval = env
	}
}
