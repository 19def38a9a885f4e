package policy

import (
	"encoding/json"

	"github.com/tkingovr/xapictl/api"
)

// PolicyFile represents the top-level YAML profile: connection settings
// plus the rules guarding which calls may be made.
type PolicyFile struct {
	Version  int      `yaml:"version" json:"version"`
	Settings Settings `yaml:"settings" json:"settings"`
	Rules    []Rule   `yaml:"rules" json:"rules"`
}

// Settings contains connection and global policy settings.
type Settings struct {
	Host            string          `yaml:"host,omitempty" json:"host,omitempty"`
	User            string          `yaml:"user,omitempty" json:"user,omitempty"`
	PasswordFile    string          `yaml:"password_file,omitempty" json:"password_file,omitempty"`
	Timeout         string          `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Insecure        bool            `yaml:"insecure,omitempty" json:"insecure,omitempty"`
	AuditDir        string          `yaml:"audit_dir,omitempty" json:"audit_dir,omitempty"`
	ApprovalTimeout string          `yaml:"approval_timeout,omitempty" json:"approval_timeout,omitempty"`
	DefaultAction   api.Verdict     `yaml:"default_action" json:"default_action"`
	OPAPolicy       string          `yaml:"opa_policy,omitempty" json:"opa_policy,omitempty"`
	SecretScanner   *SecretSettings `yaml:"secret_scanner,omitempty" json:"secret_scanner,omitempty"`
}

// SecretSettings configures argument redaction in audit records.
type SecretSettings struct {
	Enabled          bool    `yaml:"enabled" json:"enabled"`
	EntropyThreshold float64 `yaml:"entropy_threshold,omitempty" json:"entropy_threshold,omitempty"`
}

// Rule represents a single policy rule.
type Rule struct {
	Name    string    `yaml:"name" json:"name"`
	Match   RuleMatch `yaml:"match" json:"match"`
	Action  string    `yaml:"action" json:"action"`
	Message string    `yaml:"message,omitempty" json:"message,omitempty"`
}

// RuleMatch specifies conditions for matching a call. Empty conditions
// match anything.
type RuleMatch struct {
	Class       string `yaml:"class,omitempty" json:"class,omitempty"`
	Method      string `yaml:"method,omitempty" json:"method,omitempty"`
	MethodRegex string `yaml:"method_regex,omitempty" json:"method_regex,omitempty"`

	// Arguments is keyed by zero-based argument position ("0", "1", …) or
	// "_any_value" to match any argument.
	Arguments map[string]ArgumentMatch `yaml:"arguments,omitempty" json:"arguments,omitempty"`
}

// ArgumentMatch specifies a matching condition for a single argument.
type ArgumentMatch struct {
	Exact string `yaml:"exact,omitempty" json:"exact,omitempty"`
	Regex string `yaml:"regex,omitempty" json:"regex,omitempty"`
}

// EvalInput is the input to a policy engine evaluation.
type EvalInput struct {
	Class  string `json:"class"`
	Method string `json:"method"`
	Host   string `json:"host,omitempty"`
	User   string `json:"user,omitempty"`

	// Arguments is the JSON array of the call's arguments, session excluded.
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Call returns the wire method name.
func (in *EvalInput) Call() string { return in.Class + "." + in.Method }

// EvalResult is the output of a policy engine evaluation.
type EvalResult struct {
	Verdict api.Verdict `json:"verdict"`
	Rule    string      `json:"rule,omitempty"`
	Message string      `json:"message,omitempty"`
}
