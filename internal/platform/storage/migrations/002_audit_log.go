package migrations

import (
	"gorm.io/gorm"
)

// Migration002AuditLog 声纹审计日志表
type Migration002AuditLog struct{}

func (m *Migration002AuditLog) Version() string {
	return "002_audit_log"
}

func (m *Migration002AuditLog) Description() string {
	return "Create voice audit log table"
}

func (m *Migration002AuditLog) Up(db *gorm.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS voice_audit_logs (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(128) NOT NULL,
			action VARCHAR(64) NOT NULL,
			success NUMERIC NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			details JSON,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_voice_audit_logs_user_action ON voice_audit_logs(user_id, action)`,
		`CREATE INDEX IF NOT EXISTS idx_voice_audit_logs_timestamp ON voice_audit_logs(timestamp)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration002AuditLog) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS voice_audit_logs`).Error
}
