package vault

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"satvault/internal/model"
)

// AuditEntry describes one vault operation attempt.
type AuditEntry struct {
	CertificateID int
	UserID        int
	Action        string
	Err           error // nil means success
	Details       map[string]any
}

// AuditRecorder appends usage-log rows for every vault operation, including
// failed ones. Its own write failures are swallowed: audit completeness is
// best effort, the primary operation's result never depends on it. Dropped
// writes are counted and logged so the gap stays observable.
type AuditRecorder struct {
	db      *gorm.DB
	family  model.Family
	logger  *logrus.Entry
	dropped atomic.Int64
}

// NewAuditRecorder creates a recorder for one credential family.
func NewAuditRecorder(db *gorm.DB, family model.Family, logger *logrus.Entry) *AuditRecorder {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &AuditRecorder{
		db:     db,
		family: family,
		logger: logger.WithField("component", "usage-audit").WithField("family", string(family)),
	}
}

// Record writes one usage-log row. It never returns an error.
func (r *AuditRecorder) Record(ctx context.Context, e AuditEntry) {
	row := model.UsageLog{
		CertificateID: e.CertificateID,
		UserID:        e.UserID,
		ActionType:    e.Action,
		Status:        model.UsageStatusSuccess,
	}
	if e.Err != nil {
		row.Status = model.UsageStatusError
		row.ErrorMessage = e.Err.Error()
	}
	if len(e.Details) > 0 {
		if b, err := json.Marshal(e.Details); err == nil {
			row.Details = datatypes.JSON(b)
		}
	}

	if err := r.db.WithContext(ctx).Table(r.family.UsageLogTable()).Create(&row).Error; err != nil {
		r.dropped.Add(1)
		r.logger.WithError(err).WithFields(logrus.Fields{
			"action": e.Action,
			"userId": e.UserID,
		}).Warn("usage log write dropped")
	}
}

// Dropped returns how many audit writes have been swallowed since start.
func (r *AuditRecorder) Dropped() int64 {
	return r.dropped.Load()
}
