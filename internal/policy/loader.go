package policy

import (
	"fmt"
	"os"
	"regexp"

	"github.com/tkingovr/xapictl/api"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and validates a YAML profile.
func LoadFile(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses and validates YAML profile data.
func LoadBytes(data []byte) (*PolicyFile, error) {
	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing profile YAML: %w", err)
	}
	if err := validate(&pf); err != nil {
		return nil, err
	}
	return &pf, nil
}

var validActions = map[string]bool{
	"allow": true, "deny": true, "ask": true, "log": true,
}

func validate(pf *PolicyFile) error {
	if pf.Version != 1 {
		return fmt.Errorf("unsupported profile version: %d (expected 1)", pf.Version)
	}

	if pf.Settings.DefaultAction == "" {
		pf.Settings.DefaultAction = api.VerdictAllow
	}
	if !validActions[string(pf.Settings.DefaultAction)] {
		return fmt.Errorf("invalid default_action %q", pf.Settings.DefaultAction)
	}

	for i, rule := range pf.Rules {
		if rule.Name == "" {
			return fmt.Errorf("rule %d: name is required", i)
		}
		if !validActions[rule.Action] {
			return fmt.Errorf("rule %q: invalid action %q", rule.Name, rule.Action)
		}
		m := rule.Match
		if m.Class == "" && m.Method == "" && m.MethodRegex == "" && len(m.Arguments) == 0 {
			return fmt.Errorf("rule %q: match needs at least one condition", rule.Name)
		}
		if m.MethodRegex != "" {
			if _, err := regexp.Compile(m.MethodRegex); err != nil {
				return fmt.Errorf("rule %q: method_regex invalid: %w", rule.Name, err)
			}
		}
		for key, am := range m.Arguments {
			if !validArgumentKey(key) {
				return fmt.Errorf("rule %q: argument key %q must be a position or _any_value", rule.Name, key)
			}
			if am.Regex != "" {
				if _, err := regexp.Compile(am.Regex); err != nil {
					return fmt.Errorf("rule %q: argument %q regex invalid: %w", rule.Name, key, err)
				}
			}
		}
	}

	return nil
}

func validArgumentKey(key string) bool {
	if key == anyValueKey {
		return true
	}
	if key == "" {
		return false
	}
	for _, c := range key {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
