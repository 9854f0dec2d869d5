package vault

import (
	"context"
	"crypto/x509"
	"encoding/pem"

	"github.com/youmark/pkcs8"
)

// FormatConverter turns raw credential bytes into PEM text.
//
// Certificate conversion is pure and in-memory. Key conversion takes the
// password protecting the PKCS#8 DER blob; implementations may block
// (external tooling) and must honor ctx cancellation.
type FormatConverter interface {
	CertificateToPEM(der []byte) (string, error)
	PrivateKeyToPEM(ctx context.Context, der []byte, password string) (string, error)
}

// encodeCertificatePEM wraps raw DER bytes in a CERTIFICATE PEM block.
// pem.EncodeToMemory wraps the body at 64 characters.
func encodeCertificatePEM(der []byte) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

// X509Converter converts credentials fully in process, so decrypted key
// material never touches disk.
type X509Converter struct{}

func (X509Converter) CertificateToPEM(der []byte) (string, error) {
	if len(der) == 0 {
		return "", ErrEmptyFile
	}
	return encodeCertificatePEM(der), nil
}

func (X509Converter) PrivateKeyToPEM(_ context.Context, der []byte, password string) (string, error) {
	if len(der) == 0 {
		return "", ErrEmptyFile
	}

	var key interface{}
	var err error
	if password == "" {
		key, err = pkcs8.ParsePKCS8PrivateKey(der)
	} else {
		key, err = pkcs8.ParsePKCS8PrivateKey(der, []byte(password))
	}
	if err != nil {
		// wrong password and malformed DER are indistinguishable to the caller
		return "", ErrKeyConversion
	}

	plain, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", ErrKeyConversion
	}

	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: plain})), nil
}

// ChainConverter tries the primary converter and falls back to the secondary
// when the primary cannot read the key format. Certificate conversion always
// uses the primary.
type ChainConverter struct {
	Primary  FormatConverter
	Fallback FormatConverter
}

func (c ChainConverter) CertificateToPEM(der []byte) (string, error) {
	return c.Primary.CertificateToPEM(der)
}

func (c ChainConverter) PrivateKeyToPEM(ctx context.Context, der []byte, password string) (string, error) {
	pemText, err := c.Primary.PrivateKeyToPEM(ctx, der, password)
	if err == nil || c.Fallback == nil {
		return pemText, err
	}
	return c.Fallback.PrivateKeyToPEM(ctx, der, password)
}
