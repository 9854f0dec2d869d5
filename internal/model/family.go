package model

// Family identifies a credential family issued by the tax authority.
// Each family keeps its own certificate and usage-log tables.
type Family string

const (
	FamilyFIEL Family = "fiel"
	FamilyCSD  Family = "csd"
)

// Valid reports whether f is a known credential family.
func (f Family) Valid() bool {
	return f == FamilyFIEL || f == FamilyCSD
}

// CertificateTable returns the certificate table name for the family.
func (f Family) CertificateTable() string {
	return string(f) + "_certificates"
}

// UsageLogTable returns the usage-log table name for the family.
func (f Family) UsageLogTable() string {
	return string(f) + "_usage_logs"
}
