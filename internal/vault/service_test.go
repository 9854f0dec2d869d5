package vault

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"satvault/internal/model"
)

const testPassword = "llave-12345678a"

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	return New(setupTestDB(t), model.FamilyCSD, opts...)
}

func createTestCredential(t *testing.T, svc *Service, userID int, notBefore, notAfter time.Time) *model.Certificate {
	t.Helper()

	serial := big.NewInt(time.Now().UnixNano())
	cer := testCertDER(t, serial, notBefore, notAfter)
	key := testEncryptedKeyDER(t, testPassword)

	cert, err := svc.Create(context.Background(), validInput(userID, serial, notBefore, notAfter, testPassword), cer, key)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return cert
}

func usageLogs(t *testing.T, svc *Service, userID int) []model.UsageLog {
	t.Helper()

	var logs []model.UsageLog
	err := svc.repo.db.Table(svc.family.UsageLogTable()).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&logs).Error
	if err != nil {
		t.Fatalf("failed to read usage logs: %v", err)
	}
	return logs
}

func TestCreate_RoundTrip(t *testing.T) {
	svc := newTestService(t)

	notBefore := time.Now().Add(-time.Hour).Truncate(time.Second)
	notAfter := notBefore.Add(4 * 365 * 24 * time.Hour)
	serial := big.NewInt(0x0400002434)
	cer := testCertDER(t, serial, notBefore, notAfter)
	key := testEncryptedKeyDER(t, testPassword)
	in := validInput(77, serial, notBefore, notAfter, testPassword)

	created, err := svc.Create(context.Background(), in, cer, key)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected repository-assigned id")
	}

	found, err := svc.FindActive(context.Background(), 77)
	if err != nil {
		t.Fatalf("FindActive() failed: %v", err)
	}

	if found.ID != created.ID {
		t.Errorf("FindActive id = %d, want %d", found.ID, created.ID)
	}
	if !strings.EqualFold(found.SerialNumber, serial.Text(16)) {
		t.Errorf("SerialNumber = %q, want %q", found.SerialNumber, serial.Text(16))
	}
	if found.CertificateNumber != in.CertificateNumber {
		t.Errorf("CertificateNumber = %q, want %q", found.CertificateNumber, in.CertificateNumber)
	}
	if found.IssuerSerial != in.IssuerSerial {
		t.Errorf("IssuerSerial = %q, want %q", found.IssuerSerial, in.IssuerSerial)
	}
	if found.ValidFrom.Unix() != notBefore.Unix() {
		t.Errorf("ValidFrom = %v, want %v", found.ValidFrom, notBefore)
	}
	if found.ValidUntil.Unix() != notAfter.Unix() {
		t.Errorf("ValidUntil = %v, want %v", found.ValidUntil, notAfter)
	}
	if found.Status != model.CertificateStatusActive {
		t.Errorf("Status = %q, want active", found.Status)
	}
	if !strings.HasPrefix(found.CerPem, "-----BEGIN CERTIFICATE-----") {
		t.Error("CerPem is not PEM encoded")
	}
	if found.CerBase64 == "" || found.KeyBase64 == "" {
		t.Error("expected base64 mirrors of both uploads")
	}
}

func TestCreate_SingleActiveInvariant(t *testing.T) {
	svc := newTestService(t)

	notBefore := time.Now().Add(-time.Hour).Truncate(time.Second)
	notAfter := notBefore.Add(24 * time.Hour)

	first := createTestCredential(t, svc, 5, notBefore, notAfter)
	second := createTestCredential(t, svc, 5, notBefore, notAfter)

	var statuses []model.Certificate
	if err := svc.repo.db.Table(svc.family.CertificateTable()).
		Where("user_id = ?", 5).Order("id ASC").Find(&statuses).Error; err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}

	if len(statuses) != 2 {
		t.Fatalf("row count = %d, want 2", len(statuses))
	}
	if statuses[0].ID != first.ID || statuses[0].Status != model.CertificateStatusExpired {
		t.Errorf("first record status = %q, want expired", statuses[0].Status)
	}
	if statuses[1].ID != second.ID || statuses[1].Status != model.CertificateStatusActive {
		t.Errorf("second record status = %q, want active", statuses[1].Status)
	}

	active, err := svc.FindActive(context.Background(), 5)
	if err != nil {
		t.Fatalf("FindActive() failed: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("active id = %d, want %d", active.ID, second.ID)
	}
}

func TestCreate_TenantsIndependent(t *testing.T) {
	svc := newTestService(t)

	notBefore := time.Now().Add(-time.Hour).Truncate(time.Second)
	notAfter := notBefore.Add(24 * time.Hour)

	a := createTestCredential(t, svc, 1, notBefore, notAfter)
	b := createTestCredential(t, svc, 2, notBefore, notAfter)

	activeA, err := svc.FindActive(context.Background(), 1)
	if err != nil || activeA.ID != a.ID {
		t.Errorf("tenant 1 active = %v, %v; want id %d", activeA, err, a.ID)
	}
	activeB, err := svc.FindActive(context.Background(), 2)
	if err != nil || activeB.ID != b.ID {
		t.Errorf("tenant 2 active = %v, %v; want id %d", activeB, err, b.ID)
	}
}

func TestCreate_EmptyBuffers(t *testing.T) {
	svc := newTestService(t)

	in := CreateInput{UserID: 1, Password: testPassword}
	if _, err := svc.Create(context.Background(), in, nil, []byte{1}); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("err = %v, want ErrEmptyFile", err)
	}
	if _, err := svc.Create(context.Background(), in, []byte{1}, nil); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("err = %v, want ErrEmptyFile", err)
	}
}

func TestCreate_MetadataMismatchRejected(t *testing.T) {
	svc := newTestService(t)

	notBefore := time.Now().Add(-time.Hour).Truncate(time.Second)
	notAfter := notBefore.Add(24 * time.Hour)
	serial := big.NewInt(0x55)
	cer := testCertDER(t, serial, notBefore, notAfter)
	key := testEncryptedKeyDER(t, testPassword)

	in := validInput(9, serial, notBefore, notAfter, testPassword)
	in.SerialNumber = "DEADBEEF"

	if _, err := svc.Create(context.Background(), in, cer, key); !errors.Is(err, ErrMetadataMismatch) {
		t.Errorf("err = %v, want ErrMetadataMismatch", err)
	}
}

func TestCreate_UnparseableCertFallsBackToDeclared(t *testing.T) {
	svc := newTestService(t)

	notBefore := time.Now().Add(-time.Hour).Truncate(time.Second)
	notAfter := notBefore.Add(24 * time.Hour)
	key := testEncryptedKeyDER(t, testPassword)

	in := validInput(11, big.NewInt(0x77), notBefore, notAfter, testPassword)
	cert, err := svc.Create(context.Background(), in, []byte("opaque-non-x509-credential"), key)
	if err != nil {
		t.Fatalf("Create() with unparseable cert failed: %v", err)
	}

	if !strings.EqualFold(cert.SerialNumber, in.SerialNumber) {
		t.Errorf("SerialNumber = %q, want declared %q", cert.SerialNumber, in.SerialNumber)
	}
	if cert.IssuerName != in.IssuerName {
		t.Errorf("IssuerName = %q, want declared %q", cert.IssuerName, in.IssuerName)
	}
}

func TestCreate_WrongKeyPassword(t *testing.T) {
	svc := newTestService(t)

	notBefore := time.Now().Add(-time.Hour).Truncate(time.Second)
	notAfter := notBefore.Add(24 * time.Hour)
	serial := big.NewInt(0x99)
	cer := testCertDER(t, serial, notBefore, notAfter)
	key := testEncryptedKeyDER(t, "right-password")

	in := validInput(13, serial, notBefore, notAfter, "wrong-password")
	_, err := svc.Create(context.Background(), in, cer, key)
	if !errors.Is(err, ErrKeyConversion) {
		t.Fatalf("err = %v, want ErrKeyConversion", err)
	}
	if strings.Contains(err.Error(), "wrong-password") {
		t.Error("error message leaks the supplied password")
	}
}

func TestCreate_SecretHygiene(t *testing.T) {
	svc := newTestService(t)

	notBefore := time.Now().Add(-time.Hour).Truncate(time.Second)
	notAfter := notBefore.Add(24 * time.Hour)
	cert := createTestCredential(t, svc, 21, notBefore, notAfter)

	for field, value := range map[string]string{
		"PasswordHash": cert.PasswordHash,
		"CerPem":       cert.CerPem,
		"KeyPem":       cert.KeyPem,
		"CerBase64":    cert.CerBase64,
		"KeyBase64":    cert.KeyBase64,
	} {
		if strings.Contains(value, testPassword) {
			t.Errorf("%s contains the plaintext password", field)
		}
	}
	if cert.PasswordHash == testPassword {
		t.Error("password stored in plaintext")
	}
}

func TestCheckActive_NoRecord(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.CheckActive(context.Background(), 404)
	if err != nil {
		t.Fatalf("CheckActive() failed: %v", err)
	}
	if res.Valid {
		t.Error("expected invalid result for tenant with no credential")
	}
	if res.Message == "" {
		t.Error("expected explanatory message")
	}
}

func TestCheckActive_ExpiryTransition(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	clock := now
	svc := newTestService(t, WithClock(func() time.Time { return clock }))

	notBefore := now.Add(-48 * time.Hour)
	notAfter := now.Add(-24 * time.Hour)
	cert := createTestCredential(t, svc, 31, notBefore, notAfter)

	res, err := svc.CheckActive(context.Background(), 31)
	if err != nil {
		t.Fatalf("CheckActive() failed: %v", err)
	}
	if res.Valid {
		t.Error("expected invalid result for expired credential")
	}

	var row model.Certificate
	if err := svc.repo.db.Table(svc.family.CertificateTable()).First(&row, cert.ID).Error; err != nil {
		t.Fatalf("failed to reload row: %v", err)
	}
	if row.Status != model.CertificateStatusExpired {
		t.Errorf("status = %q, want expired after check", row.Status)
	}

	// a second check finds no active record and stays false
	res, err = svc.CheckActive(context.Background(), 31)
	if err != nil || res.Valid {
		t.Errorf("second check = (%v, %v), want invalid without error", res.Valid, err)
	}
}

func TestCheckActive_NotYetValid(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	svc := newTestService(t, WithClock(func() time.Time { return now }))

	notBefore := now.Add(24 * time.Hour)
	notAfter := now.Add(48 * time.Hour)
	cert := createTestCredential(t, svc, 41, notBefore, notAfter)

	res, err := svc.CheckActive(context.Background(), 41)
	if err != nil {
		t.Fatalf("CheckActive() failed: %v", err)
	}
	if res.Valid {
		t.Error("expected invalid result for not-yet-valid credential")
	}

	// not-yet-valid must not mutate state
	var row model.Certificate
	if err := svc.repo.db.Table(svc.family.CertificateTable()).First(&row, cert.ID).Error; err != nil {
		t.Fatalf("failed to reload row: %v", err)
	}
	if row.Status != model.CertificateStatusActive {
		t.Errorf("status = %q, want active (no mutation)", row.Status)
	}
}

func TestCheckActive_Valid(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	svc := newTestService(t, WithClock(func() time.Time { return now }))

	createTestCredential(t, svc, 51, now.Add(-time.Hour), now.Add(time.Hour))

	res, err := svc.CheckActive(context.Background(), 51)
	if err != nil {
		t.Fatalf("CheckActive() failed: %v", err)
	}
	if !res.Valid {
		t.Errorf("expected valid result, got message %q", res.Message)
	}
}

func TestFindActive_NotFound(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.FindActive(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAudit_CreateSuccess(t *testing.T) {
	svc := newTestService(t)

	notBefore := time.Now().Add(-time.Hour).Truncate(time.Second)
	cert := createTestCredential(t, svc, 61, notBefore, notBefore.Add(24*time.Hour))

	logs := usageLogs(t, svc, 61)
	if len(logs) != 1 {
		t.Fatalf("usage log count = %d, want 1", len(logs))
	}
	entry := logs[0]
	if entry.ActionType != model.UsageActionCreate {
		t.Errorf("actionType = %q, want create", entry.ActionType)
	}
	if entry.Status != model.UsageStatusSuccess {
		t.Errorf("status = %q, want success", entry.Status)
	}
	if entry.CertificateID != cert.ID {
		t.Errorf("certificateId = %d, want %d", entry.CertificateID, cert.ID)
	}
}

func TestAudit_CreateFailureStillLogged(t *testing.T) {
	svc := newTestService(t)

	notBefore := time.Now().Add(-time.Hour).Truncate(time.Second)
	notAfter := notBefore.Add(24 * time.Hour)
	serial := big.NewInt(0x31337)
	cer := testCertDER(t, serial, notBefore, notAfter)
	key := testEncryptedKeyDER(t, "right-password")

	in := validInput(71, serial, notBefore, notAfter, "wrong-password")
	if _, err := svc.Create(context.Background(), in, cer, key); err == nil {
		t.Fatal("expected conversion failure")
	}

	logs := usageLogs(t, svc, 71)
	if len(logs) != 1 {
		t.Fatalf("usage log count = %d, want exactly 1", len(logs))
	}
	entry := logs[0]
	if entry.Status != model.UsageStatusError {
		t.Errorf("status = %q, want error", entry.Status)
	}
	if entry.ErrorMessage == "" {
		t.Error("expected non-empty error message")
	}
	if strings.Contains(entry.ErrorMessage, "wrong-password") {
		t.Error("audit row leaks the supplied password")
	}
	if entry.CertificateID != model.UsageLogSentinelCertID {
		t.Errorf("certificateId = %d, want sentinel %d", entry.CertificateID, model.UsageLogSentinelCertID)
	}
}

func TestCheckActive_Audited(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.CheckActive(context.Background(), 81); err != nil {
		t.Fatalf("CheckActive() failed: %v", err)
	}

	logs := usageLogs(t, svc, 81)
	if len(logs) != 1 {
		t.Fatalf("usage log count = %d, want 1", len(logs))
	}
	if logs[0].ActionType != model.UsageActionCheck {
		t.Errorf("actionType = %q, want check", logs[0].ActionType)
	}
}
