package credentials

import (
	"time"

	"satvault/internal/model"
)

// UploadForm carries the caller-declared metadata fields of a credential
// upload. The file parts (cer, key) are read separately.
type UploadForm struct {
	CertificateNumber string `form:"certificateNumber" binding:"required"`
	SerialNumber      string `form:"serialNumber" binding:"required"`
	ValidFrom         string `form:"validFrom" binding:"required"`
	ValidUntil        string `form:"validUntil" binding:"required"`
	Password          string `form:"password" binding:"required"`
	IssuerName        string `form:"issuerName"`
	IssuerSerial      string `form:"issuerSerial"`
}

// CertificateResponse is the redacted record shape returned to callers.
// Raw file bytes, key material and the password hash are never included.
type CertificateResponse struct {
	ID                int                     `json:"id"`
	UserID            int                     `json:"userId"`
	CertificateNumber string                  `json:"certificateNumber"`
	SerialNumber      string                  `json:"serialNumber"`
	ValidFrom         time.Time               `json:"validFrom"`
	ValidUntil        time.Time               `json:"validUntil"`
	Status            model.CertificateStatus `json:"status"`
	CerPem            string                  `json:"cerPem"`
	CerBase64         string                  `json:"cerBase64"`
	IssuerName        string                  `json:"issuerName"`
	IssuerSerial      string                  `json:"issuerSerial"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

func toResponse(cert *model.Certificate) CertificateResponse {
	return CertificateResponse{
		ID:                cert.ID,
		UserID:            cert.UserID,
		CertificateNumber: cert.CertificateNumber,
		SerialNumber:      cert.SerialNumber,
		ValidFrom:         cert.ValidFrom,
		ValidUntil:        cert.ValidUntil,
		Status:            cert.Status,
		CerPem:            cert.CerPem,
		CerBase64:         cert.CerBase64,
		IssuerName:        cert.IssuerName,
		IssuerSerial:      cert.IssuerSerial,
		CreatedAt:         cert.CreatedAt,
		UpdatedAt:         cert.UpdatedAt,
	}
}
