package database

import (
	"database/sql"
	"fmt"
)

// GetSetting retrieves a specific setting value from the app_settings table.
// A missing key returns an empty string, not an error.
func GetSetting(key string) (string, error) {
	var value string
	err := DB.QueryRow("SELECT value FROM app_settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get setting '%s': %w", key, err)
	}
	return value, nil
}

// SetSetting saves or updates a specific setting value in the app_settings table.
func SetSetting(key, value string) error {
	stmt, err := DB.Prepare("INSERT OR REPLACE INTO app_settings (key, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare set setting statement for key '%s': %w", key, err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(key, value)
	if err != nil {
		return fmt.Errorf("failed to execute set setting for key '%s': %w", key, err)
	}
	return nil
}

// SettingStore adapts the app_settings table to the persistence interface
// the core expects. It is the survives-restarts key/value store behind the
// serialized ignore rule list.
type SettingStore struct{}

func (SettingStore) Load(key string) (string, error) {
	return GetSetting(key)
}

func (SettingStore) Save(key, value string) error {
	return SetSetting(key, value)
}
