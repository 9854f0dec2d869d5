package model

import (
	"time"

	"gorm.io/datatypes"
)

// Usage-log action constants
const (
	UsageActionCreate = "create"
	UsageActionFind   = "find"
	UsageActionCheck  = "check"
)

// Usage-log outcome constants
const (
	UsageStatusSuccess = "success"
	UsageStatusError   = "error"
)

// UsageLogSentinelCertID marks a usage-log row whose credential write never
// produced a persisted record (failed create attempts).
const UsageLogSentinelCertID = 0

// UsageLog is an append-only record of a single vault operation attempt.
// Rows are written for failed attempts too and are never mutated or deleted.
// Like Certificate, each family has its own physical table.
type UsageLog struct {
	ID            int            `gorm:"primaryKey;autoIncrement" json:"id"`
	CertificateID int            `gorm:"column:certificate_id;index;not null;default:0" json:"certificateId"`
	UserID        int            `gorm:"column:user_id;index;not null" json:"userId"`
	ActionType    string         `gorm:"type:varchar(32);not null" json:"actionType"`
	Status        string         `gorm:"type:varchar(16);not null" json:"status"`
	ErrorMessage  string         `gorm:"type:varchar(512)" json:"errorMessage,omitempty"`
	Details       datatypes.JSON `gorm:"type:json" json:"details,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}
