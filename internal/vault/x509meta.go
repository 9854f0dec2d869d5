package vault

import (
	"crypto/x509"
	"fmt"
	"strings"
	"time"
)

// CertificateMeta holds metadata derived from parsed certificate bytes.
type CertificateMeta struct {
	SerialNumber string
	ValidFrom    time.Time
	ValidUntil   time.Time
	IssuerName   string
}

// ParseCertificateMeta parses DER certificate bytes. An error means the bytes
// are not standard X.509; callers fall back to caller-declared metadata in
// that case.
func ParseCertificateMeta(der []byte) (*CertificateMeta, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}

	return &CertificateMeta{
		SerialNumber: strings.ToUpper(cert.SerialNumber.Text(16)),
		ValidFrom:    cert.NotBefore,
		ValidUntil:   cert.NotAfter,
		IssuerName:   cert.Issuer.String(),
	}, nil
}

// CrossCheck verifies caller-declared metadata against the parsed values.
// The declared serial may use either hex or decimal digits; timestamps are
// compared at second precision. A disagreement is a validation error, not a
// silent override.
func (m *CertificateMeta) CrossCheck(declaredSerial string, declaredFrom, declaredUntil time.Time) error {
	if declaredSerial != "" && !serialMatches(m.SerialNumber, declaredSerial) {
		return fmt.Errorf("%w: serial number", ErrMetadataMismatch)
	}
	if !declaredFrom.IsZero() && !sameInstant(m.ValidFrom, declaredFrom) {
		return fmt.Errorf("%w: validity start", ErrMetadataMismatch)
	}
	if !declaredUntil.IsZero() && !sameInstant(m.ValidUntil, declaredUntil) {
		return fmt.Errorf("%w: validity end", ErrMetadataMismatch)
	}
	return nil
}

func serialMatches(parsed, declared string) bool {
	return strings.EqualFold(strings.TrimLeft(parsed, "0"), strings.TrimLeft(declared, "0"))
}

func sameInstant(a, b time.Time) bool {
	return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
}
