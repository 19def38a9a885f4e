// Package approval asks the operator to confirm calls the policy marked
// "ask".
package approval

import (
	"encoding/json"
	"time"

	"github.com/tkingovr/xapictl/api"
)

// Status represents the state of an approval request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusTimedOut Status = "timed_out"
)

// Request represents a call awaiting human approval.
type Request struct {
	CreatedAt time.Time       `json:"created_at"`
	Call      string          `json:"call"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Message   string          `json:"message"`
	Rule      string          `json:"rule"`
	Status    Status          `json:"status"`
	Verdict   api.Verdict     `json:"verdict,omitempty"`
	DecidedAt *time.Time      `json:"decided_at,omitempty"`
}

// NewRequest creates a pending request for call.
func NewRequest(call, rule, message string, args json.RawMessage) *Request {
	return &Request{
		CreatedAt: time.Now(),
		Call:      call,
		Arguments: args,
		Message:   message,
		Rule:      rule,
		Status:    StatusPending,
	}
}

func (r *Request) resolve(status Status) api.Verdict {
	r.Status = status
	now := time.Now()
	r.DecidedAt = &now
	if status == StatusApproved {
		r.Verdict = api.VerdictAllow
	} else {
		r.Verdict = api.VerdictDeny
	}
	return r.Verdict
}
