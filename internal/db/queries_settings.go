package db

const settingsTable = "settings"

// GetSetting retrieves a runtime setting by key. Missing keys return "".
func (d *DB) GetSetting(key string) (string, error) {
	var value string
	found, err := d.loadDoc(d.conn, settingsTable, key, false, &value)
	if err != nil {
		return "", storageErr("get setting", err)
	}
	if !found {
		return "", nil
	}
	return value, nil
}

// SetSetting stores or updates a runtime setting.
func (d *DB) SetSetting(key, value string) error {
	return storageErr("set setting", d.saveDoc(d.conn, settingsTable, key, value))
}
