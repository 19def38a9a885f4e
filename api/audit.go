package api

import "time"

// QueryFilter defines criteria for querying audit records.
type QueryFilter struct {
	Since   time.Time `json:"since,omitempty"`
	Until   time.Time `json:"until,omitempty"`
	Class   string    `json:"class,omitempty"`
	Method  string    `json:"method,omitempty"`
	Verdict Verdict   `json:"verdict,omitempty"`
	Outcome Outcome   `json:"outcome,omitempty"`
	Limit   int       `json:"limit,omitempty"`
	Offset  int       `json:"offset,omitempty"`
}

// AuditStats summarizes the invocation history.
type AuditStats struct {
	TotalCalls   int            `json:"total_calls"`
	AllowCount   int            `json:"allow_count"`
	DenyCount    int            `json:"deny_count"`
	AskCount     int            `json:"ask_count"`
	LogCount     int            `json:"log_count"`
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
	BlockedCount int            `json:"blocked_count"`
	ByCall       map[string]int `json:"by_call"`
	ByErrorKind  map[string]int `json:"by_error_kind,omitempty"`
}
