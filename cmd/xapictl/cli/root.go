package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tkingovr/xapictl/internal/config"
	"github.com/tkingovr/xapictl/internal/render"
)

var (
	cfgFile  string
	verbose  bool
	host     string
	user     string
	password string
	askPass  bool
	insecure bool
	timeout  time.Duration
	compact  bool
	output   string
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "xapictl [flags] CLASS METHOD [ARGS...]",
	Short: "xapictl — call the XenServer management API from the shell",
	Long: `xapictl logs in to a XAPI host, calls CLASS.METHOD with ARGS and prints
the result as JSON. The session is passed as the first argument
automatically; do not pass one.

Arguments are typed by their text: true/false become booleans, integers
become 64-bit ints, decimal numbers become doubles, anything else is a
string. Put -- before arguments that start with a dash.`,
	Example: `  xapictl --host https://xen01 -u root VM get_all
  xapictl VM get_record OpaqueRef:5f0b9a3e-1c2d-4e5f-8a9b-0c1d2e3f4a5b
  xapictl --compact host get_all_records
  xapictl VM set_memory_dynamic_range OpaqueRef:x -- 1073741824 2147483648`,
	Args:          cobra.MinimumNArgs(2),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: level,
		}))
	},
	RunE: runCall,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "profile file (YAML)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&host, "host", config.DefaultHost, "XAPI host URL (env "+config.EnvHost+")")
	pf.StringVarP(&user, "user", "u", config.DefaultUser, "user name (env "+config.EnvUser+")")
	pf.StringVarP(&password, "pass", "p", config.DefaultPassword, "password (env "+config.EnvPassword+")")
	pf.BoolVar(&askPass, "ask-pass", false, "prompt for the password on the terminal")
	pf.BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	pf.DurationVar(&timeout, "timeout", config.DefaultTimeout, "timeout for each request")
	pf.BoolVar(&compact, "compact", false, "print the result on a single line")
	pf.StringVarP(&output, "output", "o", string(render.FormatJSON), "output format: json or yaml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the profile named by --config, or the defaults, and
// layers the environment and the flags the user actually set over it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if cfgFile != "" {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	var o config.Overrides
	if flags.Changed("host") {
		o.Host = &host
	}
	if flags.Changed("user") {
		o.User = &user
	}
	if flags.Changed("pass") {
		o.Password = &password
	}
	if flags.Changed("timeout") {
		o.Timeout = &timeout
	}
	if flags.Changed("insecure") {
		o.Insecure = &insecure
	}
	if err := cfg.Resolve(o, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("resolving config: %w", err)
	}

	if askPass {
		pw, err := readPassword(cmd)
		if err != nil {
			return nil, err
		}
		cfg.Password = pw
	}

	logger.Debug("config resolved",
		"profile", cfg.ProfilePath,
		"host", cfg.Host,
		"user", cfg.User,
		"timeout", cfg.Timeout,
		"audit_dir", cfg.AuditDir,
		"opa_policy", cfg.OPAPolicy,
	)
	return cfg, nil
}

func renderOptions() (render.Options, error) {
	format, err := render.ParseFormat(output)
	if err != nil {
		return render.Options{}, err
	}
	return render.Options{Format: format, Compact: compact}, nil
}
