package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/vizstack/rendertune/internal/models"
)

// Blobs wraps a Provider with the typed documents the engine persists.
// Read failures of any kind degrade to empty history: corrupt local state
// must never prevent startup.
type Blobs struct {
	provider Provider
	logger   *slog.Logger
}

// NewBlobs constructs the typed persistence facade.
func NewBlobs(provider Provider, logger *slog.Logger) *Blobs {
	if provider == nil {
		provider = NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Blobs{provider: provider, logger: logger}
}

// SaveProfiles persists the module profile history.
func (b *Blobs) SaveProfiles(ctx context.Context, profiles []models.ModuleProfile) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return err
	}
	return b.provider.Set(ctx, KeyProfiles, data)
}

// LoadProfiles returns the persisted profile history, or nil when absent
// or unreadable.
func (b *Blobs) LoadProfiles(ctx context.Context) []models.ModuleProfile {
	data, err := b.provider.Get(ctx, KeyProfiles)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			b.logger.Warn("profile history unreadable, starting empty", slog.Any("error", err))
		}
		return nil
	}
	var profiles []models.ModuleProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		b.logger.Warn("profile history corrupt, starting empty", slog.Any("error", err))
		return nil
	}
	return profiles
}

// SaveAlertConfig persists the current alert rule configuration.
func (b *Blobs) SaveAlertConfig(ctx context.Context, rules []models.AlertRule) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return err
	}
	return b.provider.Set(ctx, KeyAlertConfig, data)
}

// LoadAlertConfig returns the persisted rule configuration, or nil when
// absent or unreadable.
func (b *Blobs) LoadAlertConfig(ctx context.Context) []models.AlertRule {
	data, err := b.provider.Get(ctx, KeyAlertConfig)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			b.logger.Warn("alert configuration unreadable, using defaults", slog.Any("error", err))
		}
		return nil
	}
	var rules []models.AlertRule
	if err := json.Unmarshal(data, &rules); err != nil {
		b.logger.Warn("alert configuration corrupt, using defaults", slog.Any("error", err))
		return nil
	}
	return rules
}

// Close releases the underlying provider.
func (b *Blobs) Close() error {
	return b.provider.Close()
}
