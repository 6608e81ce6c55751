package inmemdb

import "github.com/BruceGoodGuy/moodle/core/settings"

type settingsRepository struct {
	db *DB
}

var _ settings.Repository = (*settingsRepository)(nil)

func NewSettingsRepository(db *DB) *settingsRepository {
	return &settingsRepository{db: db}
}

func (repo *settingsRepository) GetSetting(key string) (string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if val, ok := repo.db.settings[key]; ok {
		return val, nil
	}
	return "", settings.ErrNotFound
}

func (repo *settingsRepository) SetSetting(key, value string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.settings[key] = value
	return nil
}
