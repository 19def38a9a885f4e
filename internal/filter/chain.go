package filter

import (
	"context"
	"fmt"
	"log/slog"
)

// Chain executes a sequence of filters in order.
type Chain struct {
	filters []Filter
	logger  *slog.Logger
}

// NewChain creates a new filter chain.
func NewChain(logger *slog.Logger, filters ...Filter) *Chain {
	return &Chain{
		filters: filters,
		logger:  logger,
	}
}

// Process runs all filters in sequence on the given context.
// A filter that halts the call does not stop later filters (redaction
// still applies to a denied call), but the verdict is final.
func (c *Chain) Process(ctx context.Context, cc *CallContext) error {
	for _, f := range c.filters {
		if err := f.Process(ctx, cc); err != nil {
			return fmt.Errorf("filter %q: %w", f.Name(), err)
		}
		c.logger.Debug("filter executed",
			"filter", f.Name(),
			"call", cc.Call(),
			"verdict", cc.Verdict,
			"halted", cc.Halted,
		)
	}
	return nil
}

// AddFilter appends a filter to the chain.
func (c *Chain) AddFilter(f Filter) {
	c.filters = append(c.filters, f)
}
