package filter

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/tkingovr/xapictl/internal/value"
)

// SecretPattern defines a named regex pattern for detecting secrets.
type SecretPattern struct {
	Name  string
	Regex *regexp.Regexp
}

// DefaultSecretPatterns returns the built-in set of secret detection patterns.
func DefaultSecretPatterns() []SecretPattern {
	return []SecretPattern{
		{Name: "aws_access_key", Regex: regexp.MustCompile(`(?i)AKIA[0-9A-Z]{16}`)},
		{Name: "github_token", Regex: regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,255}`)},
		{Name: "github_pat_fine", Regex: regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,255}`)},
		{Name: "generic_api_key", Regex: regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|api_secret)['":\s]*[=:]\s*['"]?([A-Za-z0-9\-_]{20,60})['"]?`)},
		{Name: "generic_secret", Regex: regexp.MustCompile(`(?i)(?:secret|password|passwd|pwd|token|auth_token|access_token|bearer)['":\s]*[=:]\s*['"]?([A-Za-z0-9\-_!@#$%^&*]{8,100})['"]?`)},
		{Name: "private_key", Regex: regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`)},
		{Name: "slack_token", Regex: regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`)},
		{Name: "stripe_key", Regex: regexp.MustCompile(`(?:sk|pk)_(?:live|test)_[A-Za-z0-9]{20,100}`)},
		{Name: "google_api_key", Regex: regexp.MustCompile(`AIza[A-Za-z0-9\-_]{35}`)},
		{Name: "jwt_token", Regex: regexp.MustCompile(`eyJ[A-Za-z0-9-_]+\.eyJ[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+`)},
	}
}

const opaqueRefPrefix = "OpaqueRef:"

// SecretRedactionFilter replaces string arguments that look like secrets
// with a "[REDACTED:<pattern>]" marker in the audit view. The arguments
// sent to the server are left alone.
type SecretRedactionFilter struct {
	patterns         []SecretPattern
	entropyThreshold float64
	minTokenLength   int
}

// SecretScannerOption configures the SecretRedactionFilter.
type SecretScannerOption func(*SecretRedactionFilter)

// WithPatterns sets custom secret patterns (replaces defaults).
func WithPatterns(patterns []SecretPattern) SecretScannerOption {
	return func(f *SecretRedactionFilter) {
		f.patterns = patterns
	}
}

// WithEntropyThreshold sets the Shannon entropy threshold for high-entropy string detection.
// Default is 4.5 (a random 32-char hex string has ~4.0 entropy).
func WithEntropyThreshold(threshold float64) SecretScannerOption {
	return func(f *SecretRedactionFilter) {
		f.entropyThreshold = threshold
	}
}

// NewSecretRedactionFilter creates a new secret redaction filter.
func NewSecretRedactionFilter(opts ...SecretScannerOption) *SecretRedactionFilter {
	f := &SecretRedactionFilter{
		patterns:         DefaultSecretPatterns(),
		entropyThreshold: 4.5,
		minTokenLength:   20,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *SecretRedactionFilter) Name() string { return "secret_redaction" }

func (f *SecretRedactionFilter) Process(_ context.Context, cc *CallContext) error {
	if len(cc.Args) == 0 {
		return nil
	}

	redacted := make([]value.Value, len(cc.Args))
	var hits []string
	for i, arg := range cc.Args {
		redacted[i] = f.redact(arg, &hits)
	}
	if len(hits) == 0 {
		return nil
	}

	raw, err := argumentView(redacted, cc.Tokens[2:])
	if err != nil {
		return err
	}
	cc.AuditArguments = raw
	cc.Redactions = hits
	return nil
}

func (f *SecretRedactionFilter) redact(v value.Value, hits *[]string) value.Value {
	switch v.Kind() {
	case value.KindStr:
		s, _ := v.AsStr()
		if name, found := f.detect(s); found {
			*hits = append(*hits, name)
			return value.Str("[REDACTED:" + name + "]")
		}
	case value.KindArray:
		items, _ := v.AsArray()
		for i := range items {
			items[i] = f.redact(items[i], hits)
		}
		return value.Array(items...)
	case value.KindStruct:
		fields, _ := v.AsStruct()
		for i := range fields {
			fields[i].Value = f.redact(fields[i].Value, hits)
		}
		return value.Struct(fields...)
	}
	return v
}

// detect returns the name of the first pattern matching s, or
// "high_entropy" when a word of s looks random enough to be a credential.
func (f *SecretRedactionFilter) detect(s string) (string, bool) {
	for _, p := range f.patterns {
		if p.Regex.MatchString(s) {
			return p.Name, true
		}
	}
	for _, word := range strings.Fields(s) {
		if strings.HasPrefix(word, opaqueRefPrefix) {
			continue
		}
		if len(word) >= f.minTokenLength && shannonEntropy(word) >= f.entropyThreshold {
			return "high_entropy", true
		}
	}
	return "", false
}

// shannonEntropy calculates Shannon entropy of a string in bits per character.
func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]float64)
	for _, c := range s {
		freq[c]++
	}

	length := float64(len([]rune(s)))
	entropy := 0.0
	for _, count := range freq {
		p := count / length
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}
