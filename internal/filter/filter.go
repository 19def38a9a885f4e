// Package filter runs an invocation through ordered processing steps: a
// request chain before anything is sent and a result chain once the call
// has finished.
package filter

import "context"

// Filter is a single step in the invocation pipeline.
type Filter interface {
	// Name returns the filter name for logging.
	Name() string

	// Process processes the call context. It may modify the context
	// (e.g., set verdict, redact arguments) or produce side effects
	// (e.g., audit logging). Returning an error aborts the chain.
	Process(ctx context.Context, cc *CallContext) error
}
