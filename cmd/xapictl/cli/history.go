package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tkingovr/xapictl/api"
	"github.com/tkingovr/xapictl/internal/audit"
	"github.com/tkingovr/xapictl/internal/config"
	"github.com/tkingovr/xapictl/internal/render"
)

var (
	historySince   string
	historyClass   string
	historyMethod  string
	historyVerdict string
	historyOutcome string
	historyLimit   int
	historyOffset  int
	historyStats   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past invocations from the audit log",
	Long: `List audited invocations, newest first, or summarize them with --stats.
The log is read from settings.audit_dir, or ~/.xapictl/audit when the
profile does not set one.`,
	Example: `  xapictl history --since 24h
  xapictl history -c profile.yaml --class VM --verdict deny
  xapictl history --stats --since 2026-01-01`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historySince, "since", "", "only records newer than a duration (24h) or date (2006-01-02)")
	historyCmd.Flags().StringVar(&historyClass, "class", "", "filter by class")
	historyCmd.Flags().StringVar(&historyMethod, "method", "", "filter by method")
	historyCmd.Flags().StringVar(&historyVerdict, "verdict", "", "filter by verdict: allow, deny, ask or log")
	historyCmd.Flags().StringVar(&historyOutcome, "outcome", "", "filter by outcome: success, failure or blocked")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum records to show (0 for all)")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "skip this many newest records")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "print aggregate statistics instead of records")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts, err := renderOptions()
	if err != nil {
		return err
	}

	var cfg *config.Config
	if cfgFile != "" {
		if cfg, err = config.Load(cfgFile); err != nil {
			return err
		}
	}
	dir := auditDirOf(cfg)

	f, err := historyFilter(time.Now())
	if err != nil {
		return err
	}

	store, err := audit.NewJSONLStore(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Debug("querying audit log", "dir", dir, "stats", historyStats)

	if historyStats {
		stats, err := store.Stats(ctx, f)
		if err != nil {
			return fmt.Errorf("computing stats: %w", err)
		}
		return renderStruct(cmd, stats, opts)
	}

	records, err := store.Query(ctx, f)
	if err != nil {
		return fmt.Errorf("querying audit log: %w", err)
	}
	if records == nil {
		records = []*api.AuditRecord{}
	}
	return renderStruct(cmd, records, opts)
}

func historyFilter(now time.Time) (api.QueryFilter, error) {
	f := api.QueryFilter{
		Class:   historyClass,
		Method:  historyMethod,
		Verdict: api.Verdict(historyVerdict),
		Outcome: api.Outcome(historyOutcome),
		Limit:   historyLimit,
		Offset:  historyOffset,
	}

	switch f.Verdict {
	case "", api.VerdictAllow, api.VerdictDeny, api.VerdictAsk, api.VerdictLog:
	default:
		return f, fmt.Errorf("invalid --verdict %q", historyVerdict)
	}
	switch f.Outcome {
	case "", api.OutcomeSuccess, api.OutcomeFailure, api.OutcomeBlocked:
	default:
		return f, fmt.Errorf("invalid --outcome %q", historyOutcome)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return f, fmt.Errorf("--limit and --offset must not be negative")
	}

	if historySince != "" {
		since, err := parseSince(historySince, now)
		if err != nil {
			return f, err
		}
		f.Since = since
	}
	return f, nil
}

// parseSince accepts a duration back from now or a local calendar date.
func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --since %q: want a duration, a date or an RFC 3339 time", s)
}

// auditDirOf returns the profile's audit directory, or the default one when
// there is no profile or it does not name one.
func auditDirOf(cfg *config.Config) string {
	if cfg != nil && cfg.AuditDir != "" {
		return cfg.AuditDir
	}
	return config.ExpandHome(config.DefaultAuditDir())
}

func renderStruct(cmd *cobra.Command, v any, opts render.Options) error {
	return render.WriteStruct(cmd.OutOrStdout(), v, opts)
}
