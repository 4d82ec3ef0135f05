package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"collaborative-editor/internal/domain"
)

// MigrateDB 迁移编辑器使用的表
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	models := []interface{}{&domain.ChangeRecord{}, &domain.DocumentSnapshot{}}
	for _, model := range models {
		existed := db.Migrator().HasTable(model)
		if err := db.AutoMigrate(model); err != nil {
			logrus.Errorf("Failed to auto-migrate %T: %v", model, err)
			return fmt.Errorf("failed to auto-migrate %T: %w", model, err)
		}
		if existed {
			logrus.Debugf("Table for %T checked/updated", model)
		} else {
			logrus.Infof("Table for %T created", model)
		}
	}

	logrus.Info("Database migration completed successfully")
	return nil
}
