package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/tkingovr/xapictl/api"
)

const (
	anyValueKey = "_any_value"
	methodKey   = "_method"
)

// YAMLEngine implements first-match-wins policy evaluation using YAML rules.
type YAMLEngine struct {
	mu   sync.RWMutex
	file *PolicyFile
	path string

	// compiled regex cache, keyed by rule name and match key
	regexCache map[string]*regexp.Regexp
}

// NewYAMLEngine creates a new YAML policy engine from a profile path.
func NewYAMLEngine(path string) (*YAMLEngine, error) {
	e := &YAMLEngine{path: path}
	if err := e.Reload(context.Background()); err != nil {
		return nil, err
	}
	return e, nil
}

// NewYAMLEngineFromPolicy creates a new YAML policy engine from an already-loaded profile.
func NewYAMLEngineFromPolicy(pf *PolicyFile) (*YAMLEngine, error) {
	e := &YAMLEngine{
		file:       pf,
		regexCache: make(map[string]*regexp.Regexp),
	}
	if err := e.compileRegexes(); err != nil {
		return nil, err
	}
	return e, nil
}

// Evaluate checks the input against rules in order, returning the first match.
func (e *YAMLEngine) Evaluate(_ context.Context, input *EvalInput) (*EvalResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var args []any
	if len(input.Arguments) > 0 {
		if err := json.Unmarshal(input.Arguments, &args); err != nil {
			return nil, fmt.Errorf("decoding call arguments: %w", err)
		}
	}

	for i := range e.file.Rules {
		rule := &e.file.Rules[i]
		if e.matches(rule, input, args) {
			return &EvalResult{
				Verdict: api.Verdict(rule.Action),
				Rule:    rule.Name,
				Message: rule.Message,
			}, nil
		}
	}

	return &EvalResult{
		Verdict: e.file.Settings.DefaultAction,
		Rule:    "_default",
		Message: "no matching rule; default action applied",
	}, nil
}

// Reload re-reads the profile from disk.
func (e *YAMLEngine) Reload(_ context.Context) error {
	if e.path == "" {
		return nil
	}
	pf, err := LoadFile(e.path)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.file = pf
	e.regexCache = make(map[string]*regexp.Regexp)
	return e.compileRegexes()
}

// Policy returns the currently loaded profile.
func (e *YAMLEngine) Policy() *PolicyFile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.file
}

func (e *YAMLEngine) compileRegexes() error {
	for _, rule := range e.file.Rules {
		if rule.Match.MethodRegex != "" {
			re, err := regexp.Compile(rule.Match.MethodRegex)
			if err != nil {
				return fmt.Errorf("rule %q method_regex: %w", rule.Name, err)
			}
			e.regexCache[rule.Name+":"+methodKey] = re
		}
		for key, am := range rule.Match.Arguments {
			if am.Regex == "" {
				continue
			}
			re, err := regexp.Compile(am.Regex)
			if err != nil {
				return fmt.Errorf("rule %q argument %q: %w", rule.Name, key, err)
			}
			e.regexCache[rule.Name+":"+key] = re
		}
	}
	return nil
}

func (e *YAMLEngine) matches(rule *Rule, input *EvalInput, args []any) bool {
	m := rule.Match
	if m.Class != "" && m.Class != input.Class {
		return false
	}
	if m.Method != "" && m.Method != input.Method {
		return false
	}
	if m.MethodRegex != "" {
		re, ok := e.regexCache[rule.Name+":"+methodKey]
		if !ok || !re.MatchString(input.Method) {
			return false
		}
	}

	for key, am := range m.Arguments {
		if key == anyValueKey {
			if !e.matchAnyValue(rule.Name, am, args) {
				return false
			}
			continue
		}
		pos, err := strconv.Atoi(key)
		if err != nil || pos < 0 || pos >= len(args) {
			return false
		}
		if !e.matchArgument(rule.Name, key, am, args[pos]) {
			return false
		}
	}

	return true
}

func (e *YAMLEngine) matchAnyValue(ruleName string, am ArgumentMatch, args []any) bool {
	for _, v := range args {
		if e.matchArgument(ruleName, anyValueKey, am, v) {
			return true
		}
	}
	return false
}

// matchArgument compares the textual form of a JSON argument. Arrays and
// objects are matched against their compact JSON text.
func (e *YAMLEngine) matchArgument(ruleName, key string, am ArgumentMatch, val any) bool {
	str := argumentText(val)

	if am.Exact != "" {
		return str == am.Exact
	}

	if am.Regex != "" {
		re, ok := e.regexCache[ruleName+":"+key]
		if !ok {
			return false
		}
		return re.MatchString(str)
	}

	return true
}

func argumentText(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case []any, map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return "null"
	}
	return fmt.Sprintf("%v", val)
}
