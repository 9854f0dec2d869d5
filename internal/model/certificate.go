package model

import "time"

// CertificateStatus represents the lifecycle status of a stored credential
type CertificateStatus string

const (
	CertificateStatusActive  CertificateStatus = "active"
	CertificateStatusExpired CertificateStatus = "expired"
	CertificateStatusRevoked CertificateStatus = "revoked"
)

// Certificate represents a stored signing credential (certificate + private
// key pair). The same row shape is used for both families; each family has
// its own physical table, selected through Family.CertificateTable().
//
// Raw file bytes, the key's derived representations and the password hash
// are never serialized in API responses.
type Certificate struct {
	ID                int               `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            int               `gorm:"column:user_id;index;not null" json:"userId"`
	CertificateNumber string            `gorm:"type:varchar(64);not null" json:"certificateNumber"`
	SerialNumber      string            `gorm:"type:varchar(128);not null" json:"serialNumber"`
	ValidFrom         time.Time         `gorm:"not null" json:"validFrom"`
	ValidUntil        time.Time         `gorm:"not null" json:"validUntil"`
	Status            CertificateStatus `gorm:"type:varchar(20);not null;default:active" json:"status"`
	CerFile           []byte            `gorm:"type:mediumblob;not null" json:"-"`
	KeyFile           []byte            `gorm:"type:mediumblob;not null" json:"-"`
	CerPem            string            `gorm:"type:mediumtext;not null" json:"cerPem"`
	KeyPem            string            `gorm:"type:mediumtext;not null" json:"-"`
	CerBase64         string            `gorm:"type:mediumtext;not null" json:"cerBase64"`
	KeyBase64         string            `gorm:"type:mediumtext;not null" json:"-"`
	PasswordHash      string            `gorm:"type:varchar(255);not null" json:"-"`
	IssuerName        string            `gorm:"type:varchar(255)" json:"issuerName"`
	IssuerSerial      string            `gorm:"type:varchar(128)" json:"issuerSerial"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
}

// IsActive reports whether the credential is in the active state.
func (c *Certificate) IsActive() bool {
	return c.Status == CertificateStatusActive
}
