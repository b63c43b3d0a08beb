package migrations

import (
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/database"
	"gorm.io/gorm"
)

func init() {
	database.RegisterMigration(database.Migration{
		ID:   "20261001_create_threat_events_table",
		Name: "Create threat_events table for audited violations",

		Up: func(db *gorm.DB) error {
			if err := db.Exec(`
				CREATE TABLE IF NOT EXISTS threat_events (
					id         UUID PRIMARY KEY,
					kind       TEXT NOT NULL,
					severity   TEXT NOT NULL,
					message    TEXT,
					ip         TEXT,
					user_id    TEXT,
					method     TEXT,
					url        TEXT,
					trace_id   TEXT,
					headers    JSONB,
					detail     JSONB,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`).Error; err != nil {
				return err
			}

			if err := db.Exec(`
				CREATE INDEX IF NOT EXISTS idx_threat_events_ip_created
				ON threat_events (ip, created_at DESC);
			`).Error; err != nil {
				return err
			}

			return db.Exec(`
				CREATE INDEX IF NOT EXISTS idx_threat_events_user_created
				ON threat_events (user_id, created_at DESC)
				WHERE user_id IS NOT NULL AND user_id <> '';
			`).Error
		},

		Down: func(db *gorm.DB) error {
			return db.Exec(`DROP TABLE IF EXISTS threat_events;`).Error
		},
	})
}
