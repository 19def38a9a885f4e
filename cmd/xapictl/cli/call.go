package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tkingovr/xapictl/api"
	"github.com/tkingovr/xapictl/internal/approval"
	"github.com/tkingovr/xapictl/internal/audit"
	"github.com/tkingovr/xapictl/internal/config"
	"github.com/tkingovr/xapictl/internal/convert"
	"github.com/tkingovr/xapictl/internal/filter"
	"github.com/tkingovr/xapictl/internal/policy"
	"github.com/tkingovr/xapictl/internal/render"
	"github.com/tkingovr/xapictl/internal/session"
	"github.com/tkingovr/xapictl/internal/value"
	"github.com/tkingovr/xapictl/internal/xmlrpc"
)

// confirm asks the operator about an "ask" verdict.
var confirm = func(ctx context.Context, timeout time.Duration, req *approval.Request) (api.Verdict, error) {
	return approval.NewTerminalPrompter(timeout).Ask(ctx, req)
}

func runCall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts, err := renderOptions()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	chainCfg, closeAudit, err := buildChainConfig(cfg, true)
	if err != nil {
		return err
	}
	defer closeAudit()

	cc := filter.NewCallContext(args, cfg.Host, cfg.User)
	if err := filter.BuildRequestChain(chainCfg).Process(ctx, cc); err != nil {
		return err
	}

	callErr := dispatch(ctx, cfg, cc, func(v value.Value) error {
		doc, err := convert.ToJSON(v)
		if err != nil {
			return err
		}
		return render.Write(cmd.OutOrStdout(), doc, opts)
	})
	cc.Finish(callErr)

	// The call has already happened; a failed audit write is reported but
	// does not change the exit status.
	if err := filter.BuildResultChain(chainCfg).Process(ctx, cc); err != nil {
		logger.Error("audit failed", "call", cc.Call(), "error", err)
	}
	return callErr
}

// dispatch enforces the verdict, then runs the session for an allowed call.
func dispatch(ctx context.Context, cfg *config.Config, cc *filter.CallContext, emit func(value.Value) error) error {
	switch cc.Verdict {
	case api.VerdictDeny:
		return api.Errorf(api.KindPolicyDenied, cc.Call(), "%s", denyReason(cc))

	case api.VerdictAsk:
		req := approval.NewRequest(cc.Call(), cc.MatchedRule, cc.VerdictMessage, cc.AuditArguments)
		verdict, err := confirm(ctx, cfg.ApprovalTimeout, req)
		if err != nil {
			return api.Errorf(api.KindPolicyDenied, cc.Call(), "approval interrupted: %v", err)
		}
		logger.Debug("approval decided", "call", cc.Call(), "status", req.Status)
		if verdict != api.VerdictAllow {
			return api.Errorf(api.KindPolicyDenied, cc.Call(), "not approved (%s)", req.Status)
		}
	}

	client, err := xmlrpc.NewClient(cfg.Host, xmlrpc.Options{
		Timeout:   cfg.Timeout,
		Insecure:  cfg.Insecure,
		UserAgent: "xapictl/" + version,
	}, logger)
	if err != nil {
		return err
	}

	orch := session.New(client, logger)
	return orch.Run(ctx, &session.Request{
		User:     cfg.User,
		Password: cfg.Password,
		Class:    cc.Class,
		Method:   cc.Method,
		Args:     cc.Args,
	}, emit)
}

func denyReason(cc *filter.CallContext) string {
	msg := cc.VerdictMessage
	if msg == "" {
		msg = "denied by policy"
	}
	return fmt.Sprintf("%s (rule %s)", msg, cc.MatchedRule)
}

// buildChainConfig assembles the policy engine and, when withAudit is set
// and the profile names an audit directory, the audit store. The returned
// func closes the store.
func buildChainConfig(cfg *config.Config, withAudit bool) (filter.ChainConfig, func(), error) {
	engine, err := policy.NewEngine(cfg.Profile, cfg.OPAPolicy)
	if err != nil {
		return filter.ChainConfig{}, nil, fmt.Errorf("creating policy engine: %w", err)
	}

	scan, threshold := filter.SecretScannerEnabled(cfg.Profile.Settings.SecretScanner)
	chainCfg := filter.ChainConfig{
		Engine:           engine,
		Logger:           logger,
		SecretScanner:    scan,
		EntropyThreshold: threshold,
	}

	closer := func() {}
	if withAudit && cfg.AuditDir != "" {
		store, err := audit.NewJSONLStore(cfg.AuditDir)
		if err != nil {
			return filter.ChainConfig{}, nil, err
		}
		chainCfg.AuditStore = store
		closer = func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing audit store", "error", err)
			}
		}
	}
	return chainCfg, closer, nil
}
