package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tkingovr/xapictl/api"
	"github.com/tkingovr/xapictl/internal/filter"
)

var checkCmd = &cobra.Command{
	Use:   "check CLASS METHOD [ARGS...]",
	Short: "Dry-run the policy for a call without contacting the host",
	Long: `Check what verdict a call would receive without logging in or sending
anything. Useful for testing and debugging profile rules and Rego policies.`,
	Example: `  xapictl check -c profile.yaml VM destroy OpaqueRef:1234
  xapictl check -c profile.yaml -o yaml pool set_name_label OpaqueRef:p lab`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
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
	chainCfg, closeAudit, err := buildChainConfig(cfg, false)
	if err != nil {
		return err
	}
	defer closeAudit()

	cc := filter.NewCallContext(args, cfg.Host, cfg.User)
	if err := filter.BuildRequestChain(chainCfg).Process(ctx, cc); err != nil {
		return err
	}

	return renderStruct(cmd, api.CheckResponse{
		Call:    cc.Call(),
		Verdict: cc.Verdict,
		Rule:    cc.MatchedRule,
		Message: cc.VerdictMessage,
	}, opts)
}
