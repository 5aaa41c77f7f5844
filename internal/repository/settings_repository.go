package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studiodesk/support-tickets/internal/domain"
)

// ErrStaleSettings is returned when the settings document changed since it was read.
var ErrStaleSettings = errors.New("integration settings were modified concurrently")

const settingsRowID = 1

// SettingsRepository loads and saves the integration settings document.
type SettingsRepository interface {
	Load(ctx context.Context) (*domain.IntegrationSettings, error)
	Save(ctx context.Context, settings *domain.IntegrationSettings, expectedVersion int64) error
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository builds the repository.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

// Load returns the stored document merged onto the defaults. A missing row
// yields the defaults at version 0.
func (r *settingsRepository) Load(ctx context.Context) (*domain.IntegrationSettings, error) {
	const query = `SELECT document, version, updated_at FROM app_settings WHERE id=$1`
	var (
		raw      []byte
		settings = domain.DefaultIntegrationSettings()
	)
	err := r.pool.QueryRow(ctx, query, settingsRowID).Scan(&raw, &settings.Version, &settings.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err := MergeSettingsDocument(&settings, raw); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Save writes the document if the stored version still equals expectedVersion
// and bumps the version on success.
func (r *settingsRepository) Save(ctx context.Context, settings *domain.IntegrationSettings, expectedVersion int64) error {
	doc, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	const query = `
        INSERT INTO app_settings (id, document, version, updated_at)
        VALUES ($1, $2, 1, NOW())
        ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document,
            version = app_settings.version + 1, updated_at = NOW()
        WHERE app_settings.version = $3
        RETURNING version, updated_at`
	err = r.pool.QueryRow(ctx, query, settingsRowID, doc, expectedVersion).Scan(&settings.Version, &settings.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStaleSettings
	}
	return err
}

// MergeSettingsDocument decodes raw over settings, which must already hold the
// defaults, so keys absent from a partially written document keep their default.
func MergeSettingsDocument(settings *domain.IntegrationSettings, raw []byte) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, settings); err != nil {
			return fmt.Errorf("decode settings document: %w", err)
		}
	}
	settings.Normalize()
	return nil
}
