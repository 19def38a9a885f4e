package filter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tkingovr/xapictl/internal/convert"
	"github.com/tkingovr/xapictl/internal/value"
)

// ParseFilter splits the tokens into class, method and inferred arguments
// and builds the JSON view of the arguments.
type ParseFilter struct{}

func NewParseFilter() *ParseFilter  { return &ParseFilter{} }
func (f *ParseFilter) Name() string { return "parse" }

func (f *ParseFilter) Process(_ context.Context, cc *CallContext) error {
	if len(cc.Tokens) < 2 {
		return fmt.Errorf("need CLASS and METHOD, got %d token(s)", len(cc.Tokens))
	}
	if cc.Tokens[0] == "" || cc.Tokens[1] == "" {
		return fmt.Errorf("class and method must be non-empty")
	}
	cc.Class = cc.Tokens[0]
	cc.Method = cc.Tokens[1]
	cc.Args = value.InferAll(cc.Tokens[2:])

	raw, err := argumentView(cc.Args, cc.Tokens[2:])
	if err != nil {
		return err
	}
	cc.Arguments = raw
	cc.AuditArguments = raw
	return nil
}

// argumentView renders args as a JSON array. An argument with no JSON
// form (NaN, infinities) appears as its command-line token; it still goes
// over the wire unchanged.
func argumentView(args []value.Value, tokens []string) (json.RawMessage, error) {
	view := make([]any, len(args))
	for i, arg := range args {
		j, err := convert.ToJSON(arg)
		if err != nil {
			if i >= len(tokens) {
				return nil, err
			}
			j = tokens[i]
		}
		view[i] = j
	}
	raw, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("encoding argument view: %w", err)
	}
	return raw, nil
}
