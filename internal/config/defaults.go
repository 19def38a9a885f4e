package config

import "time"

const (
	DefaultHost            = "http://127.0.0.1"
	DefaultUser            = "guest"
	DefaultPassword        = "guest"
	DefaultTimeout         = 60 * time.Second
	DefaultApprovalTimeout = 5 * time.Minute
)

// Environment variables consulted between the profile and the flags.
const (
	EnvHost     = "XAPI_HOST"
	EnvUser     = "XAPI_USER"
	EnvPassword = "XAPI_PASSWORD"
)

// DefaultAuditDir returns the audit directory used by `history` when no
// profile names one.
func DefaultAuditDir() string {
	return "~/.xapictl/audit"
}
