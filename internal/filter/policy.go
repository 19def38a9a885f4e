package filter

import (
	"context"
	"log/slog"

	"github.com/tkingovr/xapictl/api"
	"github.com/tkingovr/xapictl/internal/policy"
)

// PolicyFilter evaluates the call against the policy engine.
type PolicyFilter struct {
	engine policy.Engine
	logger *slog.Logger
}

func NewPolicyFilter(engine policy.Engine, logger *slog.Logger) *PolicyFilter {
	return &PolicyFilter{engine: engine, logger: logger}
}

func (f *PolicyFilter) Name() string { return "policy" }

func (f *PolicyFilter) Process(ctx context.Context, cc *CallContext) error {
	input := &policy.EvalInput{
		Class:     cc.Class,
		Method:    cc.Method,
		Host:      cc.Host,
		User:      cc.User,
		Arguments: cc.Arguments,
	}

	result, err := f.engine.Evaluate(ctx, input)
	if err != nil {
		return err
	}

	cc.Verdict = result.Verdict
	cc.MatchedRule = result.Rule
	cc.VerdictMessage = result.Message

	switch cc.Verdict {
	case api.VerdictDeny, api.VerdictAsk:
		cc.Halted = true
	case api.VerdictLog:
		f.logger.Warn("call flagged by policy",
			"call", cc.Call(),
			"rule", cc.MatchedRule,
			"message", cc.VerdictMessage,
		)
	}

	return nil
}
