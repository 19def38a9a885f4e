package filter

import (
	"context"

	"github.com/tkingovr/xapictl/internal/audit"
)

// AuditFilter writes an audit record for every finished invocation.
type AuditFilter struct {
	store audit.Store
}

func NewAuditFilter(store audit.Store) *AuditFilter {
	return &AuditFilter{store: store}
}

func (f *AuditFilter) Name() string { return "audit" }

func (f *AuditFilter) Process(ctx context.Context, cc *CallContext) error {
	return f.store.Write(ctx, cc.ToAuditRecord())
}
