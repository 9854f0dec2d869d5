package vault

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// OpenSSLConverter shells out to the openssl binary for key formats the
// in-process converter cannot read. The DER blob is written to a uniquely
// named temp file; both the input and output files are removed on every exit
// path, including tool failure and timeout.
type OpenSSLConverter struct {
	BinPath string
	TempDir string
	Timeout time.Duration
}

// NewOpenSSLConverter creates a converter around the given openssl binary.
func NewOpenSSLConverter(binPath, tempDir string, timeout time.Duration) *OpenSSLConverter {
	if binPath == "" {
		binPath = "openssl"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenSSLConverter{BinPath: binPath, TempDir: tempDir, Timeout: timeout}
}

func (c *OpenSSLConverter) CertificateToPEM(der []byte) (string, error) {
	if len(der) == 0 {
		return "", ErrEmptyFile
	}
	return encodeCertificatePEM(der), nil
}

func (c *OpenSSLConverter) PrivateKeyToPEM(ctx context.Context, der []byte, password string) (string, error) {
	if len(der) == 0 {
		return "", ErrEmptyFile
	}

	name := uuid.NewString()
	inPath := filepath.Join(c.TempDir, "satvault-key-"+name+".der")
	outPath := filepath.Join(c.TempDir, "satvault-key-"+name+".pem")

	if err := os.WriteFile(inPath, der, 0o600); err != nil {
		return "", ErrKeyConversion
	}
	defer os.Remove(inPath)
	defer os.Remove(outPath)

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	// stdout/stderr are discarded: openssl may echo file paths but the
	// command output never reaches the caller
	cmd := exec.CommandContext(ctx, c.BinPath, "pkcs8",
		"-inform", "DER",
		"-in", inPath,
		"-out", outPath,
		"-passin", "pass:"+password,
	)
	if err := cmd.Run(); err != nil {
		return "", ErrKeyConversion
	}

	pemText, err := os.ReadFile(outPath)
	if err != nil {
		return "", ErrKeyConversion
	}

	return string(pemText), nil
}
