package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Tracker  TrackerConfig  `yaml:"tracker"`
	Display  DisplayConfig  `yaml:"display"`
	Camera   CameraConfig   `yaml:"camera"`
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Recorder RecorderConfig `yaml:"recorder"`
	Sim      SimConfig      `yaml:"sim"`
}

// TrackerConfig describes the tracking controller and which entities drive head and wand.
type TrackerConfig struct {
	ServerHost       string   `yaml:"server_host"`   // empty: listen only
	ServerPort       int      `yaml:"server_port"`   // 0 with a multicast host: join the group
	DataPort         int      `yaml:"data_port"`     // 0: OS assigned
	RemoteSystem     string   `yaml:"remote_system"` // unknown, dtrack, dtrack2
	DataBufferSize   int      `yaml:"data_buffer_size"`
	DataTimeout      Duration `yaml:"data_timeout"`
	ControlTimeout   Duration `yaml:"control_timeout"`
	Channel          uint     `yaml:"channel"` // DTrack2 output channel 1..5, 0 leaves routing alone
	HeadBody         int      `yaml:"head_body"`
	WandFlyStick     int      `yaml:"wand_flystick"`
	WandSmoothing    int      `yaml:"wand_smoothing"` // rolling average length, 0 disables
	StartMeasurement bool     `yaml:"start_measurement"`
	MessagePoll      Duration `yaml:"message_poll"` // 0 disables controller message polling
}

// DisplayConfig holds the three screen corners, relative to the tracking origin.
type DisplayConfig struct {
	LowerLeft  Point `yaml:"lower_left"`
	LowerRight Point `yaml:"lower_right"`
	UpperLeft  Point `yaml:"upper_left"`
}

// CameraConfig holds the virtual camera settings.
type CameraConfig struct {
	Near     float64  `yaml:"near"`
	Far      float64  `yaml:"far"`
	Yaw      float64  `yaml:"yaw"`   // degrees
	Pitch    float64  `yaml:"pitch"` // degrees
	Position Point    `yaml:"position"`
	IOD      Distance `yaml:"iod"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`
	Trace    bool        `yaml:"trace"` // per-frame debug logging
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address    string   `yaml:"address"`
	StreamRate Duration `yaml:"stream_rate"` // pose websocket push interval
}

// RecorderConfig holds pose recording settings.
type RecorderConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Interval  Duration `yaml:"interval"`
	Retention Duration `yaml:"retention"` // 0 keeps recordings forever
}

// SimConfig holds settings for the fake controller binary.
type SimConfig struct {
	ControlAddr    string   `yaml:"control_addr"`
	CommandAddr    string   `yaml:"command_addr"`
	Interval       Duration `yaml:"interval"`
	FlyStickFormat string   `yaml:"flystick_format"` // 6df, 6df2
	Bodies         int      `yaml:"bodies"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Tracker: TrackerConfig{
			ServerPort:     50105,
			DataPort:       5000,
			RemoteSystem:   "unknown",
			DataBufferSize: 20000,
			DataTimeout:    Duration(time.Second),
			ControlTimeout: Duration(10 * time.Second),
			Channel:        1,
			HeadBody:       0,
			WandFlyStick:   0,
			MessagePoll:    Duration(5 * time.Second),
		},
		// A 13.3 x 7.5 ft wall with the origin at the bottom centre.
		Display: DisplayConfig{
			LowerLeft:  Point{-6.6667, 0, 0},
			LowerRight: Point{6.6667, 0, 0},
			UpperLeft:  Point{-6.6667, 7.5, 0},
		},
		Camera: CameraConfig{
			Near: 0.1,
			Far:  100,
			IOD:  0.21,
		},
		Log: LogConfig{
			Server:   LogSettings{Path: "logs/server.log", Level: "INFO"},
			Requests: LogSettings{Path: "logs/requests.log", Level: "INFO"},
			Events:   LogSettings{Path: "logs/events.log", Level: "INFO"},
		},
		DB: DBConfig{
			Path: "data/monolith.db",
		},
		Server: ServerConfig{
			Address:    "localhost:1940",
			StreamRate: Duration(time.Second / 30),
		},
		Recorder: RecorderConfig{
			Enabled:   false,
			Interval:  Duration(100 * time.Millisecond),
			Retention: Duration(30 * 24 * time.Hour),
		},
		Sim: SimConfig{
			ControlAddr:    "127.0.0.1:50105",
			CommandAddr:    "127.0.0.1:5001",
			Interval:       Duration(time.Second / 60),
			FlyStickFormat: "6df2",
			Bodies:         1,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// Environment as a fallback for empty fields, never saved back to disk.
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the tracking session cannot work with.
func (c *Config) Validate() error {
	var errs []error
	t := &c.Tracker

	switch strings.ToLower(strings.TrimSpace(t.RemoteSystem)) {
	case "", "unknown", "dtrack", "legacy", "dtrack2":
	default:
		errs = append(errs, fmt.Errorf("tracker.remote_system %q: must be unknown, dtrack or dtrack2", t.RemoteSystem))
	}
	if t.DataBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("tracker.data_buffer_size must be positive, got %d", t.DataBufferSize))
	}
	if t.DataTimeout <= 0 {
		errs = append(errs, errors.New("tracker.data_timeout must be positive"))
	}
	if t.ControlTimeout <= 0 {
		errs = append(errs, errors.New("tracker.control_timeout must be positive"))
	}
	if t.Channel > 5 {
		errs = append(errs, fmt.Errorf("tracker.channel %d: must be between 0 and 5", t.Channel))
	}
	if t.HeadBody < 0 || t.WandFlyStick < 0 {
		errs = append(errs, errors.New("tracker.head_body and tracker.wand_flystick must not be negative"))
	}
	if t.WandSmoothing < 0 {
		errs = append(errs, errors.New("tracker.wand_smoothing must not be negative"))
	}
	if t.DataPort < 0 || t.DataPort > 65535 || t.ServerPort < 0 || t.ServerPort > 65535 {
		errs = append(errs, errors.New("tracker ports must be between 0 and 65535"))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("camera: need 0 < near < far, got near=%v far=%v", c.Camera.Near, c.Camera.Far))
	}
	if c.Recorder.Enabled && c.Recorder.Interval <= 0 {
		errs = append(errs, errors.New("recorder.interval must be positive"))
	}
	if c.Recorder.Retention < 0 {
		errs = append(errs, errors.New("recorder.retention must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Monolith Tracking Configuration
# -------------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: ft (default), in, mm, cm, m

`)
	data = append(header, data...)

	reRemote := regexp.MustCompile(`(?m)^(\s+)remote_system:`)
	data = reRemote.ReplaceAll(data, []byte("${1}# Options: unknown (probe the control port), dtrack, dtrack2\n${1}remote_system:"))

	reFormat := regexp.MustCompile(`(?m)^(\s+)flystick_format:`)
	data = reFormat.ReplaceAll(data, []byte("${1}# Options: 6df (legacy), 6df2\n${1}flystick_format:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
