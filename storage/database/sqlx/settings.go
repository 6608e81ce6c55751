package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core/settings"
)

type settingsRepository struct {
	db *sqlx.DB
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *sqlx.DB) *settingsRepository {
	return &settingsRepository{db: db}
}

func (repo settingsRepository) GetSetting(key string) (string, error) {
	var value string
	err := repo.db.QueryRow(`SELECT value FROM setting WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", settings.ErrNotFound
		}
		return "", errors.Wrap(err, "getting setting")
	}
	return value, nil
}

func (repo settingsRepository) SetSetting(key, value string) error {
	_, err := repo.db.Exec(`
INSERT INTO setting (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	return errors.Wrap(err, "setting value")
}
