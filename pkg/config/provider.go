package config

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"monolithgo/pkg/store"
)

// Provider defines the interface for accessing unified configuration.
type Provider interface {
	// Tracker
	Channel(ctx context.Context) uint
	WandSmoothing(ctx context.Context) int

	// Recorder
	RecorderEnabled(ctx context.Context) bool

	// Camera
	CameraYaw(ctx context.Context) float64
	CameraPitch(ctx context.Context) float64

	// Settings returns every runtime setting with its effective value.
	Settings(ctx context.Context) map[string]string
	// Set validates and persists a runtime setting.
	Set(ctx context.Context, key, val string) error

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider. st may be nil, which disables overrides.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

func (p *UnifiedProvider) Channel(ctx context.Context) uint {
	return uint(p.getInt(ctx, KeyChannel, int(p.base.Tracker.Channel)))
}

func (p *UnifiedProvider) WandSmoothing(ctx context.Context) int {
	return p.getInt(ctx, KeyWandSmoothing, p.base.Tracker.WandSmoothing)
}

func (p *UnifiedProvider) RecorderEnabled(ctx context.Context) bool {
	return p.getBool(ctx, KeyRecorderEnabled, p.base.Recorder.Enabled)
}

func (p *UnifiedProvider) CameraYaw(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyCameraYaw, p.base.Camera.Yaw)
}

func (p *UnifiedProvider) CameraPitch(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyCameraPitch, p.base.Camera.Pitch)
}

func (p *UnifiedProvider) Settings(ctx context.Context) map[string]string {
	return map[string]string{
		KeyChannel:         strconv.FormatUint(uint64(p.Channel(ctx)), 10),
		KeyWandSmoothing:   strconv.Itoa(p.WandSmoothing(ctx)),
		KeyRecorderEnabled: strconv.FormatBool(p.RecorderEnabled(ctx)),
		KeyCameraYaw:       strconv.FormatFloat(p.CameraYaw(ctx), 'f', -1, 64),
		KeyCameraPitch:     strconv.FormatFloat(p.CameraPitch(ctx), 'f', -1, 64),
	}
}

func (p *UnifiedProvider) Set(ctx context.Context, key, val string) error {
	if err := ValidateSetting(key, val); err != nil {
		return err
	}
	if p.store == nil {
		return fmt.Errorf("setting %s: no state store", key)
	}
	return p.store.SetState(ctx, key, val)
}

// ValidateSetting reports whether val is acceptable for the runtime setting key.
func ValidateSetting(key, val string) error {
	if !slices.Contains(Keys, key) {
		return fmt.Errorf("unknown setting %q", key)
	}
	if err := validateValue(key, val); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

func validateValue(key, val string) error {
	switch key {
	case KeyChannel:
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 || n > 5 {
			return fmt.Errorf("must be an integer between 0 and 5, got %q", val)
		}
	case KeyWandSmoothing:
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return fmt.Errorf("must be a non-negative integer, got %q", val)
		}
	case KeyRecorderEnabled:
		if _, err := strconv.ParseBool(val); err != nil {
			return fmt.Errorf("must be true or false, got %q", val)
		}
	case KeyCameraYaw, KeyCameraPitch:
		if _, err := strconv.ParseFloat(val, 64); err != nil {
			return fmt.Errorf("must be a number of degrees, got %q", val)
		}
	}
	return nil
}

// --- Helpers ---

func (p *UnifiedProvider) getInt(ctx context.Context, key string, fallback int) int {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				return i
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				return b
			}
		}
	}
	return fallback
}
