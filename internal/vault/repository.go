package vault

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"satvault/internal/model"
)

// Repository is the gorm-backed persistence layer for one credential family.
type Repository struct {
	db     *gorm.DB
	family model.Family
}

// NewRepository creates a repository bound to the family's tables.
func NewRepository(db *gorm.DB, family model.Family) *Repository {
	return &Repository{db: db, family: family}
}

// FindActive returns the most recently created active credential for the
// tenant, or ErrNotFound.
func (r *Repository) FindActive(ctx context.Context, userID int) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.db.WithContext(ctx).
		Table(r.family.CertificateTable()).
		Where("user_id = ? AND status = ?", userID, model.CertificateStatusActive).
		Order("id DESC").
		First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active credential: %w", err)
	}
	return &cert, nil
}

// CreateActive expires any currently active credential for the tenant and
// inserts cert as the sole active record, in a single transaction.
func (r *Repository) CreateActive(ctx context.Context, cert *model.Certificate) error {
	table := r.family.CertificateTable()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(table).
			Where("user_id = ? AND status = ?", cert.UserID, model.CertificateStatusActive).
			Updates(map[string]interface{}{"status": model.CertificateStatusExpired}).Error; err != nil {
			return err
		}

		cert.Status = model.CertificateStatusActive
		return tx.Table(table).Create(cert).Error
	})
	if err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	return nil
}

// UpdateStatus transitions a single credential record.
func (r *Repository) UpdateStatus(ctx context.Context, id int, status model.CertificateStatus) error {
	err := r.db.WithContext(ctx).
		Table(r.family.CertificateTable()).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status}).Error
	if err != nil {
		return fmt.Errorf("update credential status: %w", err)
	}
	return nil
}
