package credentials

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"satvault/internal/config"
	"satvault/internal/httpx"
	"satvault/internal/model"
	"satvault/internal/vault"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler serves the upload/active/check endpoints for one credential family.
type Handler struct {
	svc    *vault.Service
	upload config.UploadConfig
}

// NewHandler creates a handler bound to a credential family.
func NewHandler(db *gorm.DB, family model.Family, cfg *config.Config, opts ...vault.Option) *Handler {
	return &Handler{
		svc:    vault.New(db, family, opts...),
		upload: cfg.Upload,
	}
}

// Upload handles POST /api/v1/{family}/upload. It validates the two file
// parts against the configured size and extension constraints before any
// vault logic runs.
func (h *Handler) Upload(c *gin.Context) {
	uid := c.GetInt("uid")
	if uid == 0 {
		httpx.FailErr(c, httpx.ErrUnauthorized(""))
		return
	}

	var form UploadForm
	if err := c.ShouldBind(&form); err != nil {
		httpx.FailErr(c, httpx.ErrParamMissing("missing required upload fields"))
		return
	}

	validFrom, err := parseTimestamp(form.ValidFrom)
	if err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid validFrom timestamp"))
		return
	}
	validUntil, err := parseTimestamp(form.ValidUntil)
	if err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid validUntil timestamp"))
		return
	}
	if !validUntil.After(validFrom) {
		httpx.FailErr(c, httpx.ErrParamInvalid("validUntil must be after validFrom"))
		return
	}

	cerBytes, appErr := h.readFilePart(c, "cer")
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}
	keyBytes, appErr := h.readFilePart(c, "key")
	if appErr != nil {
		httpx.FailErr(c, appErr)
		return
	}

	in := vault.CreateInput{
		UserID:            uid,
		CertificateNumber: form.CertificateNumber,
		SerialNumber:      form.SerialNumber,
		ValidFrom:         validFrom,
		ValidUntil:        validUntil,
		Password:          form.Password,
		IssuerName:        form.IssuerName,
		IssuerSerial:      form.IssuerSerial,
	}

	cert, err := h.svc.Create(c.Request.Context(), in, cerBytes, keyBytes)
	if err != nil {
		httpx.FailErr(c, h.mapCreateError(err))
		return
	}

	httpx.OK(c, toResponse(cert))
}

// Active handles GET /api/v1/{family}/active.
func (h *Handler) Active(c *gin.Context) {
	uid := c.GetInt("uid")

	cert, err := h.svc.FindActive(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, vault.ErrNotFound) {
			httpx.FailErr(c, httpx.ErrNotFound(fmt.Sprintf("no active %s credential", h.familyLabel())))
			return
		}
		httpx.FailErr(c, httpx.ErrDatabaseError("", err))
		return
	}

	httpx.OK(c, toResponse(cert))
}

// Check handles GET /api/v1/{family}/check.
func (h *Handler) Check(c *gin.Context) {
	uid := c.GetInt("uid")

	res, err := h.svc.CheckActive(c.Request.Context(), uid)
	if err != nil {
		httpx.FailErr(c, httpx.ErrDatabaseError("", err))
		return
	}

	httpx.OK(c, res)
}

func (h *Handler) familyLabel() string {
	return strings.ToUpper(string(h.svc.Family()))
}

func (h *Handler) mapCreateError(err error) *httpx.AppError {
	switch {
	case errors.Is(err, vault.ErrEmptyFile):
		return httpx.ErrFileInvalid("credential file is empty")
	case errors.Is(err, vault.ErrMetadataMismatch):
		return httpx.ErrParamInvalid("declared metadata does not match the uploaded certificate")
	case errors.Is(err, vault.ErrCertConversion), errors.Is(err, vault.ErrKeyConversion):
		// deliberately generic: no password, no key bytes
		return httpx.ErrConversionFailed(fmt.Sprintf("failed to process %s credential", h.familyLabel()))
	default:
		return httpx.ErrDatabaseError("failed to store credential", err)
	}
}

// readFilePart fetches one multipart file field, enforcing the configured
// extension and size constraints.
func (h *Handler) readFilePart(c *gin.Context, field string) ([]byte, *httpx.AppError) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, httpx.ErrFileInvalid(fmt.Sprintf("missing %s file", field))
	}

	if fh.Size > h.upload.MaxBytes {
		return nil, httpx.ErrFileInvalid(fmt.Sprintf("%s file exceeds the %d byte limit", field, h.upload.MaxBytes))
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !h.extAllowed(ext) {
		return nil, httpx.ErrFileInvalid(fmt.Sprintf("%s file has unsupported extension", field))
	}

	data, err := readAll(fh)
	if err != nil {
		return nil, httpx.ErrFileInvalid(fmt.Sprintf("failed to read %s file", field))
	}
	if len(data) == 0 {
		return nil, httpx.ErrFileInvalid(fmt.Sprintf("%s file is empty", field))
	}
	return data, nil
}

func (h *Handler) extAllowed(ext string) bool {
	for _, allowed := range h.upload.AllowedExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// parseTimestamp accepts RFC3339 or a plain date.
func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}
