package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tkingovr/xapictl/api"
	"github.com/tkingovr/xapictl/internal/policy"
	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration for one xapictl invocation.
type Config struct {
	Profile     *policy.PolicyFile
	ProfilePath string

	Host     string
	User     string
	Password string
	Timeout  time.Duration
	Insecure bool

	// AuditDir is empty when auditing is off.
	AuditDir        string
	ApprovalTimeout time.Duration
	DefaultAction   api.Verdict
	OPAPolicy       string

	passwordFile string
}

// Overrides holds command-line values. A nil field was not given on the
// command line.
type Overrides struct {
	Host     *string
	User     *string
	Password *string
	Timeout  *time.Duration
	Insecure *bool
}

// Load reads a profile YAML file and produces a runtime Config.
func Load(path string) (*Config, error) {
	pf, err := policy.LoadFile(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return fromPolicy(pf, path)
}

// LoadBytes parses YAML data and produces a runtime Config.
func LoadBytes(data []byte) (*Config, error) {
	pf, err := policy.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return fromPolicy(pf, "")
}

func fromPolicy(pf *policy.PolicyFile, path string) (*Config, error) {
	s := pf.Settings
	cfg := &Config{
		Profile:       pf,
		ProfilePath:   path,
		Host:          orDefault(s.Host, DefaultHost),
		User:          orDefault(s.User, DefaultUser),
		Insecure:      s.Insecure,
		DefaultAction: s.DefaultAction,
		passwordFile:  expandHome(s.PasswordFile),
	}

	if s.AuditDir != "" {
		cfg.AuditDir = expandHome(s.AuditDir)
	}
	if s.OPAPolicy != "" {
		cfg.OPAPolicy = expandHome(s.OPAPolicy)
	}

	var err error
	if cfg.Timeout, err = parseDuration("timeout", s.Timeout, DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.ApprovalTimeout, err = parseDuration("approval_timeout", s.ApprovalTimeout, DefaultApprovalTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Resolve layers the environment and the command line over the profile:
// flag, then environment, then profile, then built-in default. lookup is
// os.LookupEnv outside tests.
func (c *Config) Resolve(o Overrides, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	c.Host = pick(o.Host, lookup, EnvHost, c.Host)
	c.User = pick(o.User, lookup, EnvUser, c.User)

	switch {
	case o.Password != nil:
		c.Password = *o.Password
	default:
		if v, ok := lookup(EnvPassword); ok {
			c.Password = v
			break
		}
		if c.passwordFile != "" {
			data, err := os.ReadFile(c.passwordFile)
			if err != nil {
				return fmt.Errorf("reading password_file: %w", err)
			}
			c.Password = strings.TrimRight(string(data), "\r\n")
			break
		}
		c.Password = DefaultPassword
	}

	if o.Timeout != nil {
		c.Timeout = *o.Timeout
	}
	if o.Insecure != nil {
		c.Insecure = *o.Insecure
	}

	if c.Host == "" {
		return fmt.Errorf("host is empty")
	}
	return nil
}

func pick(flag *string, lookup func(string) (string, bool), env, fallback string) string {
	if flag != nil {
		return *flag
	}
	if v, ok := lookup(env); ok && v != "" {
		return v
	}
	return fallback
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseDuration(name, v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, v)
	}
	return d, nil
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ExpandHome resolves a leading "~/" against the user's home directory.
func ExpandHome(path string) string { return expandHome(path) }

// DefaultConfig returns a config with defaults for when no profile is given:
// every call is allowed and nothing is audited.
func DefaultConfig() *Config {
	return &Config{
		Profile: &policy.PolicyFile{
			Version: 1,
			Settings: policy.Settings{
				DefaultAction: api.VerdictAllow,
			},
		},
		Host:            DefaultHost,
		User:            DefaultUser,
		Timeout:         DefaultTimeout,
		ApprovalTimeout: DefaultApprovalTimeout,
		DefaultAction:   api.VerdictAllow,
	}
}

// MarshalYAML serializes the profile for display/export.
func (c *Config) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(c.Profile)
}
