package vault

import "errors"

// Sentinel errors surfaced by the vault. Conversion errors are deliberately
// generic: their text must never carry the key password or key bytes.
var (
	ErrEmptyFile        = errors.New("credential file is empty")
	ErrCertConversion   = errors.New("failed to process certificate")
	ErrKeyConversion    = errors.New("failed to process private key")
	ErrNotFound         = errors.New("no active credential")
	ErrMetadataMismatch = errors.New("declared metadata does not match certificate")
)
