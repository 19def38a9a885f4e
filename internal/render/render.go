// Package render writes converted results to the terminal.
package render

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json or yaml)", s)
}

// Options controls how a document is written.
type Options struct {
	Format  Format
	Compact bool
}

// Write encodes doc as a single newline-terminated document and flushes it.
// doc is a tree produced by convert.ToJSON. Nothing is written when encoding
// fails.
func Write(w io.Writer, doc any, opts Options) error {
	bw := bufio.NewWriter(w)
	var err error
	switch opts.Format {
	case FormatYAML:
		err = writeYAML(bw, doc)
	default:
		err = writeJSON(bw, doc, opts.Compact)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

// WriteStruct writes an arbitrary JSON-marshalable value, such as audit
// records, in the selected format. YAML output keeps the JSON field names
// and order.
func WriteStruct(w io.Writer, v any, opts Options) error {
	bw := bufio.NewWriter(w)
	var err error
	switch opts.Format {
	case FormatYAML:
		err = writeStructYAML(bw, v)
	default:
		err = writeJSON(bw, v, opts.Compact)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

func writeJSON(w *bufio.Writer, doc any, compact bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if !compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

func writeYAML(w *bufio.Writer, doc any) error {
	node, err := toNode(doc)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

// writeStructYAML goes through JSON so field names follow the json tags.
// JSON is valid YAML, so decoding it into a node keeps the key order.
func writeStructYAML(w *bufio.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("converting to YAML: %w", err)
	}
	plain(&doc)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

// plain drops the quoting and flow styles inherited from the JSON text.
func plain(n *yaml.Node) {
	empty := (n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode) && len(n.Content) == 0
	if !empty {
		n.Style = 0
	}
	for _, c := range n.Content {
		plain(c)
	}
}
