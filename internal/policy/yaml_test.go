package policy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tkingovr/xapictl/api"
)

func testPolicy() *PolicyFile {
	return &PolicyFile{
		Version: 1,
		Settings: Settings{
			DefaultAction: api.VerdictAllow,
		},
		Rules: []Rule{
			// Deny rules before broader rules (first-match-wins, like iptables)
			{
				Name: "protect-dom0",
				Match: RuleMatch{
					Class:       "VM",
					MethodRegex: `^(hard_|clean_)?(shutdown|reboot)$`,
					Arguments: map[string]ArgumentMatch{
						"0": {Exact: "OpaqueRef:dom0"},
					},
				},
				Action:  "deny",
				Message: "control domain is off limits",
			},
			{
				Name:    "ask-destroy",
				Match:   RuleMatch{Method: "destroy"},
				Action:  "ask",
				Message: "destroying objects needs confirmation",
			},
			{
				Name: "log-secrets",
				Match: RuleMatch{
					Arguments: map[string]ArgumentMatch{
						"_any_value": {Regex: `(?i)password`},
					},
				},
				Action: "log",
			},
			{
				Name:   "deny-pool-writes",
				Match:  RuleMatch{Class: "pool", MethodRegex: `^set_`},
				Action: "deny",
			},
		},
	}
}

func args(t *testing.T, vals ...any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(vals)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestYAMLEngine_Evaluate(t *testing.T) {
	engine, err := NewYAMLEngineFromPolicy(testPolicy())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		input   *EvalInput
		verdict api.Verdict
		rule    string
	}{
		{
			name:    "default allow",
			input:   &EvalInput{Class: "VM", Method: "get_all"},
			verdict: api.VerdictAllow,
			rule:    "_default",
		},
		{
			name:    "positional exact and method regex",
			input:   &EvalInput{Class: "VM", Method: "hard_shutdown", Arguments: args(t, "OpaqueRef:dom0")},
			verdict: api.VerdictDeny,
			rule:    "protect-dom0",
		},
		{
			name:    "other vm not protected",
			input:   &EvalInput{Class: "VM", Method: "hard_shutdown", Arguments: args(t, "OpaqueRef:guest")},
			verdict: api.VerdictAllow,
			rule:    "_default",
		},
		{
			name:    "missing positional argument",
			input:   &EvalInput{Class: "VM", Method: "shutdown"},
			verdict: api.VerdictAllow,
			rule:    "_default",
		},
		{
			name:    "method across classes",
			input:   &EvalInput{Class: "SR", Method: "destroy", Arguments: args(t, "OpaqueRef:sr")},
			verdict: api.VerdictAsk,
			rule:    "ask-destroy",
		},
		{
			name:    "any value matches nested struct text",
			input:   &EvalInput{Class: "host", Method: "call_plugin", Arguments: args(t, "h", map[string]any{"password": "x"})},
			verdict: api.VerdictLog,
			rule:    "log-secrets",
		},
		{
			name:    "class must match exactly",
			input:   &EvalInput{Class: "Pool", Method: "set_name_label"},
			verdict: api.VerdictAllow,
			rule:    "_default",
		},
		{
			name:    "class and regex",
			input:   &EvalInput{Class: "pool", Method: "set_name_label", Arguments: args(t, "p", "new")},
			verdict: api.VerdictDeny,
			rule:    "deny-pool-writes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Evaluate(context.Background(), tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if result.Verdict != tt.verdict {
				t.Errorf("verdict = %s, want %s", result.Verdict, tt.verdict)
			}
			if result.Rule != tt.rule {
				t.Errorf("rule = %s, want %s", result.Rule, tt.rule)
			}
		})
	}
}

func TestYAMLEngine_NumericArgumentsMatchAsText(t *testing.T) {
	pf := &PolicyFile{
		Version:  1,
		Settings: Settings{DefaultAction: api.VerdictAllow},
		Rules: []Rule{{
			Name:   "big-memory",
			Match:  RuleMatch{Method: "set_memory", Arguments: map[string]ArgumentMatch{"1": {Regex: `^[0-9]{11,}$`}}},
			Action: "ask",
		}},
	}
	engine, err := NewYAMLEngineFromPolicy(pf)
	if err != nil {
		t.Fatal(err)
	}

	result, err := engine.Evaluate(context.Background(), &EvalInput{
		Class:     "VM",
		Method:    "set_memory",
		Arguments: json.RawMessage(`["OpaqueRef:vm", 68719476736]`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict != api.VerdictAsk {
		t.Errorf("expected ask, got %s", result.Verdict)
	}
}

func TestYAMLEngine_BadArguments(t *testing.T) {
	engine, err := NewYAMLEngineFromPolicy(testPolicy())
	if err != nil {
		t.Fatal(err)
	}
	_, err = engine.Evaluate(context.Background(), &EvalInput{Class: "VM", Method: "x", Arguments: json.RawMessage(`{`)})
	if err == nil {
		t.Fatal("expected error for malformed arguments")
	}
}

func TestYAMLEngine_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")

	write := func(action string) {
		t.Helper()
		data := "version: 1\nrules:\n  - name: vm-reads\n    match:\n      class: VM\n    action: " + action + "\n"
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	write("deny")
	engine, err := NewYAMLEngine(path)
	if err != nil {
		t.Fatal(err)
	}
	input := &EvalInput{Class: "VM", Method: "get_all"}

	result, _ := engine.Evaluate(context.Background(), input)
	if result.Verdict != api.VerdictDeny {
		t.Fatalf("expected deny before reload, got %s", result.Verdict)
	}

	write("log")
	if err := engine.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	result, _ = engine.Evaluate(context.Background(), input)
	if result.Verdict != api.VerdictLog {
		t.Errorf("expected log after reload, got %s", result.Verdict)
	}
}

func TestLoadBytes(t *testing.T) {
	pf, err := LoadBytes([]byte(`
version: 1
settings:
  host: https://xen.example
  user: root
rules:
  - name: no-destroy
    match:
      method_regex: "destroy$"
    action: deny
`))
	if err != nil {
		t.Fatal(err)
	}
	if pf.Settings.DefaultAction != api.VerdictAllow {
		t.Errorf("default_action = %q, want allow", pf.Settings.DefaultAction)
	}
	if pf.Settings.Host != "https://xen.example" || pf.Settings.User != "root" {
		t.Errorf("unexpected settings: %+v", pf.Settings)
	}
	if len(pf.Rules) != 1 || pf.Rules[0].Match.MethodRegex != "destroy$" {
		t.Errorf("unexpected rules: %+v", pf.Rules)
	}
}

func TestLoadBytes_Invalid(t *testing.T) {
	tests := map[string]string{
		"version":        "version: 2\n",
		"default action": "version: 1\nsettings:\n  default_action: maybe\n",
		"no name":        "version: 1\nrules:\n  - match: {class: VM}\n    action: deny\n",
		"bad action":     "version: 1\nrules:\n  - name: r\n    match: {class: VM}\n    action: block\n",
		"empty match":    "version: 1\nrules:\n  - name: r\n    action: deny\n",
		"bad regex":      "version: 1\nrules:\n  - name: r\n    match: {method_regex: \"(\"}\n    action: deny\n",
		"bad arg key":    "version: 1\nrules:\n  - name: r\n    match:\n      arguments:\n        first: {exact: x}\n    action: deny\n",
		"bad arg regex":  "version: 1\nrules:\n  - name: r\n    match:\n      arguments:\n        \"0\": {regex: \"[\"}\n    action: deny\n",
		"not yaml":       "version: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadBytes([]byte(data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
