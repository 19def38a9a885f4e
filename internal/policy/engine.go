package policy

import "context"

// Engine is the interface for policy evaluation backends.
type Engine interface {
	// Evaluate checks a call against loaded policies and returns a verdict.
	Evaluate(ctx context.Context, input *EvalInput) (*EvalResult, error)

	// Reload reloads policies from their source file.
	Reload(ctx context.Context) error
}

// NewEngine picks the backend for a loaded profile: the Rego policy named
// by settings.opa_policy when set, the profile's own rules otherwise.
// opaPath is the already-resolved path of that Rego file.
func NewEngine(pf *PolicyFile, opaPath string) (Engine, error) {
	if opaPath != "" {
		return NewOPAEngine(opaPath)
	}
	return NewYAMLEngineFromPolicy(pf)
}
