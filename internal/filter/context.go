package filter

import (
	"encoding/json"
	"time"

	"github.com/tkingovr/xapictl/api"
	"github.com/tkingovr/xapictl/internal/value"
)

// CallContext carries all metadata through the chains for a single
// invocation.
type CallContext struct {
	// Tokens are the positional command-line tokens: class, method, args.
	Tokens []string

	// Host and User identify the target, for policy input and audit.
	Host string
	User string

	// Class and Method are set by ParseFilter.
	Class  string
	Method string

	// Args are the inferred wire arguments, session excluded.
	Args []value.Value

	// Arguments is the JSON view of Args used for policy evaluation.
	Arguments json.RawMessage

	// AuditArguments is Arguments with secrets redacted. Only this view is
	// ever persisted.
	AuditArguments json.RawMessage

	// Verdict is set by the PolicyFilter after evaluation.
	Verdict api.Verdict

	// MatchedRule is the name of the rule that matched.
	MatchedRule string

	// VerdictMessage is the human-readable message from the matched rule.
	VerdictMessage string

	// Redactions names the secret patterns that fired, in argument order.
	Redactions []string

	// Outcome and Err describe how the invocation ended; set before the
	// result chain runs.
	Outcome api.Outcome
	Err     error

	// StartTime records when the invocation entered the pipeline.
	StartTime time.Time

	// Halted indicates the call must not be dispatched as-is (deny or ask).
	Halted bool
}

// NewCallContext creates a new CallContext for the given tokens.
func NewCallContext(tokens []string, host, user string) *CallContext {
	return &CallContext{
		Tokens:    tokens,
		Host:      host,
		User:      user,
		StartTime: time.Now(),
	}
}

// Call returns the wire method name "<class>.<method>".
func (cc *CallContext) Call() string {
	return cc.Class + "." + cc.Method
}

// Finish records the invocation's outcome from its final error.
func (cc *CallContext) Finish(err error) {
	cc.Err = err
	switch {
	case err == nil:
		cc.Outcome = api.OutcomeSuccess
	case api.IsKind(err, api.KindPolicyDenied):
		cc.Outcome = api.OutcomeBlocked
	default:
		cc.Outcome = api.OutcomeFailure
	}
}

// ToAuditRecord converts the call context into an audit record.
func (cc *CallContext) ToAuditRecord() *api.AuditRecord {
	r := &api.AuditRecord{
		Timestamp: cc.StartTime,
		Host:      cc.Host,
		User:      cc.User,
		Class:     cc.Class,
		Method:    cc.Method,
		Arguments: cc.AuditArguments,
		Verdict:   cc.Verdict,
		Rule:      cc.MatchedRule,
		Message:   cc.VerdictMessage,
		Outcome:   cc.Outcome,
		Duration:  time.Since(cc.StartTime),
	}
	if cc.Err != nil {
		r.ErrorKind = api.KindOf(cc.Err)
		r.Error = cc.Err.Error()
	}
	return r
}
