package vault

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/youmark/pkcs8"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"satvault/internal/model"
)

// testCertDER builds a self-signed DER certificate with the given serial and
// validity window.
func testCertDER(t *testing.T, serial *big.Int, notBefore, notAfter time.Time) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "AAA010101AAA", Organization: []string{"ACME SA DE CV"}},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	return der
}

// testEncryptedKeyDER builds a password-encrypted PKCS#8 DER private key.
func testEncryptedKeyDER(t *testing.T, password string) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	der, err := pkcs8.MarshalPrivateKey(key, []byte(password), nil)
	if err != nil {
		t.Fatalf("failed to marshal encrypted key: %v", err)
	}
	return der
}

// setupTestDB opens a file-backed sqlite database with the family tables
// migrated, mirroring db.Migrate.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vault.db")
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	for _, family := range []model.Family{model.FamilyFIEL, model.FamilyCSD} {
		if err := gdb.Table(family.CertificateTable()).AutoMigrate(&model.Certificate{}); err != nil {
			t.Fatalf("failed to migrate %s: %v", family.CertificateTable(), err)
		}
		if err := gdb.Table(family.UsageLogTable()).AutoMigrate(&model.UsageLog{}); err != nil {
			t.Fatalf("failed to migrate %s: %v", family.UsageLogTable(), err)
		}
	}
	return gdb
}

// validInput returns CreateInput matching the given certificate fixture.
func validInput(userID int, serial *big.Int, notBefore, notAfter time.Time, password string) CreateInput {
	return CreateInput{
		UserID:            userID,
		CertificateNumber: "30001000000400002434",
		SerialNumber:      serial.Text(16),
		ValidFrom:         notBefore,
		ValidUntil:        notAfter,
		Password:          password,
		IssuerName:        "AC del Servicio de Administracion Tributaria",
		IssuerSerial:      "SAT970701NN3",
	}
}
