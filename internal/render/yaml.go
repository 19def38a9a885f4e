package render

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/tkingovr/xapictl/internal/convert"
)

// toNode builds a YAML node tree so struct field order survives encoding.
func toNode(doc any) (*yaml.Node, error) {
	switch v := doc.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}, nil
	case convert.Number:
		text, err := v.AppendJSON(nil)
		if err != nil {
			return nil, err
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: string(text)}, nil
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v {
			n, err := toNode(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		if len(v) == 0 {
			seq.Style = yaml.FlowStyle
		}
		return seq, nil
	case *convert.Object:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.Keys() {
			item, _ := v.Get(k)
			n, err := toNode(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, n)
		}
		if v.Len() == 0 {
			m.Style = yaml.FlowStyle
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported document node %T", doc)
}
