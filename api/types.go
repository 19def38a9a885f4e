package api

import (
	"encoding/json"
	"time"
)

// Verdict represents the outcome of a policy evaluation.
type Verdict string

const (
	VerdictAllow Verdict = "allow"
	VerdictDeny  Verdict = "deny"
	VerdictAsk   Verdict = "ask"
	VerdictLog   Verdict = "log"
)

// Outcome records how an invocation finished.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeBlocked Outcome = "blocked" // refused locally, never dispatched
)

// AuditRecord represents a single audited invocation.
type AuditRecord struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Host      string          `json:"host,omitempty"`
	User      string          `json:"user,omitempty"`
	Class     string          `json:"class"`
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Verdict   Verdict         `json:"verdict"`
	Rule      string          `json:"rule,omitempty"`
	Message   string          `json:"message,omitempty"`
	Outcome   Outcome         `json:"outcome"`
	ErrorKind ErrorKind       `json:"error_kind,omitempty"`
	Error     string          `json:"error,omitempty"`
	Duration  time.Duration   `json:"duration,omitempty"`
}

// Call returns the wire method name "<class>.<method>".
func (r *AuditRecord) Call() string {
	return r.Class + "." + r.Method
}

// CheckResponse is the result of a dry-run policy check.
type CheckResponse struct {
	Call    string  `json:"call"`
	Verdict Verdict `json:"verdict"`
	Rule    string  `json:"rule,omitempty"`
	Message string  `json:"message,omitempty"`
}

// CheckRequest asks for a dry-run verdict. Args are command-line tokens and
// are typed the same way the call command types them.
type CheckRequest struct {
	Class  string   `json:"class"`
	Method string   `json:"method"`
	Args   []string `json:"args,omitempty"`
}
