package filter

import (
	"log/slog"

	"github.com/tkingovr/xapictl/internal/audit"
	"github.com/tkingovr/xapictl/internal/policy"
)

// ChainConfig holds the configuration for building filter chains.
type ChainConfig struct {
	Engine           policy.Engine
	AuditStore       audit.Store
	Logger           *slog.Logger
	SecretScanner    bool
	EntropyThreshold float64
}

// BuildRequestChain constructs the chain run before anything is sent.
func BuildRequestChain(cfg ChainConfig) *Chain {
	filters := []Filter{
		NewParseFilter(),
		NewPolicyFilter(cfg.Engine, cfg.Logger),
	}

	// Redaction runs after policy so rules see the real arguments.
	if cfg.SecretScanner {
		var opts []SecretScannerOption
		if cfg.EntropyThreshold > 0 {
			opts = append(opts, WithEntropyThreshold(cfg.EntropyThreshold))
		}
		filters = append(filters, NewSecretRedactionFilter(opts...))
	}

	return NewChain(cfg.Logger, filters...)
}

// BuildResultChain constructs the chain run once the invocation finished.
// It is empty when auditing is off.
func BuildResultChain(cfg ChainConfig) *Chain {
	c := NewChain(cfg.Logger)
	if cfg.AuditStore != nil {
		c.AddFilter(NewAuditFilter(cfg.AuditStore))
	}
	return c
}

// SecretScannerEnabled reports whether the profile leaves argument
// redaction on; it is on unless explicitly disabled.
func SecretScannerEnabled(s *policy.SecretSettings) (bool, float64) {
	if s == nil {
		return true, 0
	}
	return s.Enabled, s.EntropyThreshold
}
