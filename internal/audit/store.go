// Package audit persists one record per invocation and answers history
// queries over them.
package audit

import (
	"context"

	"github.com/tkingovr/xapictl/api"
)

// Store defines the interface for audit record persistence and retrieval.
type Store interface {
	// Write appends an audit record.
	Write(ctx context.Context, record *api.AuditRecord) error

	// Query retrieves audit records matching the filter, newest first.
	Query(ctx context.Context, filter api.QueryFilter) ([]*api.AuditRecord, error)

	// Stats returns aggregate statistics over records matching the filter.
	// Offset and Limit are ignored.
	Stats(ctx context.Context, filter api.QueryFilter) (*api.AuditStats, error)

	// Close flushes and releases the store.
	Close() error
}
