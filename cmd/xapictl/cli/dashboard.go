package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tkingovr/xapictl/internal/audit"
	"github.com/tkingovr/xapictl/internal/dashboard"
	"github.com/tkingovr/xapictl/internal/policy"
)

var (
	dashAddr     string
	dashAuditDir string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve a web view of the audit log and the active profile",
	Long: `Start a local web dashboard for browsing past invocations, their
verdicts and outcomes, and the rules of the active profile. It reads the
same audit log as the history command and never contacts a XAPI host.`,
	Example: `  xapictl dashboard
  xapictl dashboard -c profile.yaml -l 127.0.0.1:9090
  xapictl dashboard -a /var/log/xapictl`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVarP(&dashAddr, "listen", "l", "127.0.0.1:8080", "dashboard listen address")
	dashboardCmd.Flags().StringVarP(&dashAuditDir, "audit-dir", "a", "", "audit log directory")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dir := auditDirOf(cfg)
	if dashAuditDir != "" {
		dir = dashAuditDir
	}
	auditStore, err := audit.NewJSONLStore(dir)
	if err != nil {
		return fmt.Errorf("creating audit store: %w", err)
	}
	defer auditStore.Close()

	engine, err := policy.NewEngine(cfg.Profile, cfg.OPAPolicy)
	if err != nil {
		return fmt.Errorf("creating policy engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("shutting down dashboard")
			cancel()
		case <-ctx.Done():
		}
	}()

	dash := dashboard.NewServer(dashAddr, auditStore, engine, cfg, logger)
	logger.Debug("dashboard reading audit log", "dir", dir)
	return dash.ListenAndServe(ctx)
}
