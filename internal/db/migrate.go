package db

import (
	"fmt"
	"log"

	"satvault/internal/model"

	"gorm.io/gorm"
)

// Migrate runs database migrations. The certificate and usage-log shapes are
// shared between families, so each family's tables are migrated explicitly
// under its own name.
func Migrate(db *gorm.DB) error {
	log.Println("Starting database migration...")

	if err := db.AutoMigrate(&model.User{}); err != nil {
		return fmt.Errorf("failed to migrate users: %w", err)
	}

	families := []model.Family{model.FamilyFIEL, model.FamilyCSD}
	for _, family := range families {
		if err := db.Table(family.CertificateTable()).AutoMigrate(&model.Certificate{}); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", family.CertificateTable(), err)
		}
		if err := db.Table(family.UsageLogTable()).AutoMigrate(&model.UsageLog{}); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", family.UsageLogTable(), err)
		}
	}

	log.Printf("✓ Database migration completed successfully (%d tables)", 1+2*len(families))
	return nil
}
