package vault

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"satvault/internal/auth"
	"satvault/internal/model"
)

// CreateInput carries caller-declared upload metadata. UserID comes from the
// verified principal, never from the request body.
type CreateInput struct {
	UserID            int
	CertificateNumber string
	SerialNumber      string
	ValidFrom         time.Time
	ValidUntil        time.Time
	Password          string
	IssuerName        string
	IssuerSerial      string
}

// CheckResult is the outcome of a validity check.
type CheckResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// Service orchestrates credential storage for one family: format conversion,
// password hashing, single-active activation and usage auditing.
type Service struct {
	repo      *Repository
	audit     *AuditRecorder
	converter FormatConverter
	locker    TenantLocker
	pool      *ConversionPool
	family    model.Family
	logger    *logrus.Entry
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithConverter replaces the default in-process format converter.
func WithConverter(c FormatConverter) Option {
	return func(s *Service) { s.converter = c }
}

// WithLocker replaces the default in-process tenant locker.
func WithLocker(l TenantLocker) Option {
	return func(s *Service) { s.locker = l }
}

// WithPool replaces the default conversion pool.
func WithPool(p *ConversionPool) Option {
	return func(s *Service) { s.pool = p }
}

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the base log entry.
func WithLogger(logger *logrus.Entry) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates a vault service for the given credential family.
func New(db *gorm.DB, family model.Family, opts ...Option) *Service {
	s := &Service{
		repo:      NewRepository(db, family),
		converter: X509Converter{},
		locker:    NewKeyedMutex(),
		pool:      NewConversionPool(4),
		family:    family,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s.logger = s.logger.WithField("component", "vault").WithField("family", string(family))
	s.audit = NewAuditRecorder(db, family, s.logger)
	return s
}

// Family returns the credential family this service manages.
func (s *Service) Family() model.Family {
	return s.family
}

// Audit exposes the usage recorder (diagnostics).
func (s *Service) Audit() *AuditRecorder {
	return s.audit
}

// Create stores a new credential as the tenant's sole active record. The
// outcome is always audited; the audit write itself cannot fail the call.
func (s *Service) Create(ctx context.Context, in CreateInput, cerFile, keyFile []byte) (*model.Certificate, error) {
	cert, err := s.create(ctx, in, cerFile, keyFile)
	if err != nil {
		s.audit.Record(ctx, AuditEntry{
			CertificateID: model.UsageLogSentinelCertID,
			UserID:        in.UserID,
			Action:        model.UsageActionCreate,
			Err:           err,
		})
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		CertificateID: cert.ID,
		UserID:        in.UserID,
		Action:        model.UsageActionCreate,
	})
	return cert, nil
}

func (s *Service) create(ctx context.Context, in CreateInput, cerFile, keyFile []byte) (*model.Certificate, error) {
	if len(cerFile) == 0 || len(keyFile) == 0 {
		return nil, ErrEmptyFile
	}

	serial, validFrom, validUntil, issuer := in.SerialNumber, in.ValidFrom, in.ValidUntil, in.IssuerName
	if meta, err := ParseCertificateMeta(cerFile); err == nil {
		// the parsed X.509 structure is authoritative; declared values
		// only need to agree with it
		if err := meta.CrossCheck(in.SerialNumber, in.ValidFrom, in.ValidUntil); err != nil {
			return nil, err
		}
		serial = meta.SerialNumber
		validFrom = meta.ValidFrom
		validUntil = meta.ValidUntil
		if issuer == "" {
			issuer = meta.IssuerName
		}
	}

	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash key password: %w", err)
	}

	cerPem, err := s.converter.CertificateToPEM(cerFile)
	if err != nil {
		return nil, ErrCertConversion
	}

	var keyPem string
	err = s.pool.Do(ctx, func() error {
		var convErr error
		keyPem, convErr = s.converter.PrivateKeyToPEM(ctx, keyFile, in.Password)
		return convErr
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, ErrKeyConversion
	}

	cert := &model.Certificate{
		UserID:            in.UserID,
		CertificateNumber: in.CertificateNumber,
		SerialNumber:      serial,
		ValidFrom:         validFrom,
		ValidUntil:        validUntil,
		CerFile:           cerFile,
		KeyFile:           keyFile,
		CerPem:            cerPem,
		KeyPem:            keyPem,
		CerBase64:         base64.StdEncoding.EncodeToString(cerFile),
		KeyBase64:         base64.StdEncoding.EncodeToString(keyFile),
		PasswordHash:      passwordHash,
		IssuerName:        issuer,
		IssuerSerial:      in.IssuerSerial,
	}

	unlock, err := s.locker.Lock(ctx, s.lockKey(in.UserID))
	if err != nil {
		return nil, fmt.Errorf("acquire tenant lock: %w", err)
	}
	defer unlock()

	if err := s.repo.CreateActive(ctx, cert); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"userId": in.UserID,
		"certId": cert.ID,
	}).Info("credential stored")
	return cert, nil
}

// FindActive returns the tenant's active credential or ErrNotFound.
func (s *Service) FindActive(ctx context.Context, userID int) (*model.Certificate, error) {
	cert, err := s.repo.FindActive(ctx, userID)
	if err != nil {
		s.audit.Record(ctx, AuditEntry{
			CertificateID: model.UsageLogSentinelCertID,
			UserID:        userID,
			Action:        model.UsageActionFind,
			Err:           err,
		})
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		CertificateID: cert.ID,
		UserID:        userID,
		Action:        model.UsageActionFind,
	})
	return cert, nil
}

// CheckActive reports whether the tenant's active credential is currently
// valid. Observing an expired validity window transitions the record to
// expired; a not-yet-valid credential is reported invalid without mutation.
func (s *Service) CheckActive(ctx context.Context, userID int) (CheckResult, error) {
	res, certID, err := s.check(ctx, userID)

	s.audit.Record(ctx, AuditEntry{
		CertificateID: certID,
		UserID:        userID,
		Action:        model.UsageActionCheck,
		Err:           err,
		Details:       map[string]any{"valid": res.Valid},
	})
	return res, err
}

func (s *Service) check(ctx context.Context, userID int) (CheckResult, int, error) {
	cert, err := s.repo.FindActive(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return CheckResult{Valid: false, Message: "no active credential"}, model.UsageLogSentinelCertID, nil
	}
	if err != nil {
		return CheckResult{}, model.UsageLogSentinelCertID, err
	}

	now := s.now()
	switch {
	case !now.Before(cert.ValidUntil):
		if err := s.repo.UpdateStatus(ctx, cert.ID, model.CertificateStatusExpired); err != nil {
			return CheckResult{}, cert.ID, err
		}
		return CheckResult{Valid: false, Message: "credential has expired"}, cert.ID, nil
	case now.Before(cert.ValidFrom):
		// not yet valid is not expired: no state change
		return CheckResult{Valid: false, Message: "credential is not yet valid"}, cert.ID, nil
	default:
		return CheckResult{Valid: true, Message: "credential is valid"}, cert.ID, nil
	}
}

func (s *Service) lockKey(userID int) string {
	return fmt.Sprintf("%s:%d", s.family, userID)
}
