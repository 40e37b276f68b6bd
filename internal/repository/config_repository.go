package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tixops/suggest-api/internal/database"
)

// AppConfigRepo reads operator-managed settings from the app_config
// table (default ticket limit, cooloff base minutes, and so on).
type AppConfigRepo struct {
	db *database.DB
}

// NewAppConfigRepo returns a new AppConfigRepo bound to the given database.
func NewAppConfigRepo(db *database.DB) *AppConfigRepo { return &AppConfigRepo{db: db} }

// GetValue returns the configuration value for the key, or ErrNotFound
// when the key has no row.
func (r *AppConfigRepo) GetValue(ctx context.Context, key string) (string, error) {
	const q = `SELECT config_value FROM app_config WHERE config_key = ?`

	var value string
	err := withRetry(ctx, r.db, func(db *sql.DB) error {
		return db.QueryRowContext(ctx, q, key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}
