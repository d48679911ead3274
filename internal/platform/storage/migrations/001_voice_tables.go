package migrations

import (
	"gorm.io/gorm"
)

// Migration001VoiceTables 声纹记录与考勤记录表
type Migration001VoiceTables struct{}

func (m *Migration001VoiceTables) Version() string {
	return "001_voice_tables"
}

func (m *Migration001VoiceTables) Description() string {
	return "Create biometric and attendance tables"
}

func (m *Migration001VoiceTables) Up(db *gorm.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS biometrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id VARCHAR(128) NOT NULL,
			tenant_id VARCHAR(128),
			voice_template BLOB,
			is_voice_enrolled NUMERIC NOT NULL DEFAULT 0,
			voice_enrolled_at DATETIME,
			version INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_biometrics_user_id ON biometrics(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_biometrics_tenant_id ON biometrics(tenant_id)`,
		`CREATE TABLE IF NOT EXISTS attendance_records (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(128) NOT NULL,
			check_in_time DATETIME NOT NULL,
			check_in_method VARCHAR(64),
			check_out_time DATETIME,
			check_out_method VARCHAR(64),
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_records_user_id ON attendance_records(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_records_check_in_time ON attendance_records(check_in_time)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration001VoiceTables) Down(db *gorm.DB) error {
	if err := db.Exec(`DROP TABLE IF EXISTS attendance_records`).Error; err != nil {
		return err
	}
	return db.Exec(`DROP TABLE IF EXISTS biometrics`).Error
}
