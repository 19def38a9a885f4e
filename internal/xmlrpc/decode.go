package xmlrpc

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tkingovr/xapictl/internal/value"
)

// DecodeResponse reads a methodResponse document. A fault response is
// returned as a *Fault error.
func DecodeResponse(r io.Reader) (value.Value, error) {
	d := &decoder{xml.NewDecoder(r)}
	d.x.CharsetReader = charsetReader

	if _, err := d.expectStart("methodResponse"); err != nil {
		return value.Value{}, err
	}

	body, err := d.nextStart()
	if err != nil {
		return value.Value{}, err
	}
	switch body.Name.Local {
	case "params":
		if _, err := d.expectStart("param"); err != nil {
			return value.Value{}, err
		}
		v, err := d.valueElement()
		if err != nil {
			return value.Value{}, err
		}
		for _, name := range []string{"param", "params", "methodResponse"} {
			if err := d.expectEnd(name); err != nil {
				return value.Value{}, err
			}
		}
		return v, nil

	case "fault":
		v, err := d.valueElement()
		if err != nil {
			return value.Value{}, fmt.Errorf("decoding fault: %w", err)
		}
		return value.Value{}, faultFromValue(v)
	}
	return value.Value{}, fmt.Errorf("unexpected <%s> in methodResponse", body.Name.Local)
}

// decoder walks an XML-RPC document token by token so struct members keep
// their document order.
type decoder struct {
	x *xml.Decoder
}

// next returns the next start or end element. Whitespace, comments,
// processing instructions and directives are skipped; other text between
// elements is an error.
func (d *decoder) next() (xml.Token, error) {
	for {
		tok, err := d.x.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t.Copy(), nil
		case xml.EndElement:
			return t, nil
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return nil, fmt.Errorf("unexpected text %q", truncate(string(t), 32))
			}
		}
	}
}

func (d *decoder) nextStart() (xml.StartElement, error) {
	tok, err := d.next()
	if err != nil {
		return xml.StartElement{}, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return xml.StartElement{}, fmt.Errorf("unexpected </%s>", tok.(xml.EndElement).Name.Local)
	}
	return start, nil
}

func (d *decoder) expectStart(name string) (xml.StartElement, error) {
	start, err := d.nextStart()
	if err != nil {
		return start, fmt.Errorf("expected <%s>: %w", name, err)
	}
	if start.Name.Local != name {
		return start, fmt.Errorf("expected <%s>, got <%s>", name, start.Name.Local)
	}
	return start, nil
}

func (d *decoder) expectEnd(name string) error {
	tok, err := d.next()
	if err != nil {
		return fmt.Errorf("expected </%s>: %w", name, err)
	}
	end, ok := tok.(xml.EndElement)
	if !ok || end.Name.Local != name {
		return fmt.Errorf("expected </%s>, got %s", name, describe(tok))
	}
	return nil
}

// text collects character data up to the end of the current element.
func (d *decoder) text(name string) (string, error) {
	var sb strings.Builder
	for {
		tok, err := d.x.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			if t.Name.Local != name {
				return "", fmt.Errorf("expected </%s>, got </%s>", name, t.Name.Local)
			}
			return sb.String(), nil
		case xml.StartElement:
			return "", fmt.Errorf("unexpected <%s> inside <%s>", t.Name.Local, name)
		}
	}
}

// valueElement reads a complete <value>…</value>.
func (d *decoder) valueElement() (value.Value, error) {
	if _, err := d.expectStart("value"); err != nil {
		return value.Value{}, err
	}
	return d.valueBody()
}

// valueBody reads the content of a <value> whose start tag was consumed.
// A value without a type element is a string.
func (d *decoder) valueBody() (value.Value, error) {
	var sb strings.Builder
	for {
		tok, err := d.x.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return value.Value{}, io.ErrUnexpectedEOF
			}
			return value.Value{}, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			return value.Str(sb.String()), nil
		case xml.StartElement:
			if strings.TrimSpace(sb.String()) != "" {
				return value.Value{}, fmt.Errorf("mixed content in <value> before <%s>", t.Name.Local)
			}
			v, err := d.typed(t.Copy())
			if err != nil {
				return value.Value{}, err
			}
			if err := d.expectEnd("value"); err != nil {
				return value.Value{}, err
			}
			return v, nil
		}
	}
}

func (d *decoder) typed(start xml.StartElement) (value.Value, error) {
	name := start.Name.Local
	switch name {
	case "string":
		s, err := d.text(name)
		if err != nil {
			return value.Value{}, err
		}
		return value.Str(s), nil

	case "i4", "int":
		s, err := d.text(name)
		if err != nil {
			return value.Value{}, err
		}
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid <%s>: %w", name, err)
		}
		return value.Int32(int32(i)), nil

	case "i8":
		s, err := d.text(name)
		if err != nil {
			return value.Value{}, err
		}
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid <i8>: %w", err)
		}
		return value.Int64(i), nil

	case "boolean":
		s, err := d.text(name)
		if err != nil {
			return value.Value{}, err
		}
		switch strings.TrimSpace(s) {
		case "1", "true":
			return value.Bool(true), nil
		case "0", "false":
			return value.Bool(false), nil
		}
		return value.Value{}, fmt.Errorf("invalid <boolean> %q", s)

	case "double":
		s, err := d.text(name)
		if err != nil {
			return value.Value{}, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return value.Value{}, fmt.Errorf("invalid <double>: %w", err)
		}
		return value.Float64(f), nil

	case "dateTime.iso8601":
		s, err := d.text(name)
		if err != nil {
			return value.Value{}, err
		}
		t, err := parseDateTime(strings.TrimSpace(s))
		if err != nil {
			return value.Value{}, err
		}
		return value.DateTime(t), nil

	case "base64":
		s, err := d.text(name)
		if err != nil {
			return value.Value{}, err
		}
		b, err := decodeBase64(s)
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid <base64>: %w", err)
		}
		return value.Binary(b), nil

	case "nil":
		if _, err := d.text(name); err != nil {
			return value.Value{}, err
		}
		return value.Null(), nil

	case "array":
		return d.array()

	case "struct":
		return d.structure()
	}
	return value.Value{}, fmt.Errorf("unknown value type <%s>", name)
}

func (d *decoder) array() (value.Value, error) {
	if _, err := d.expectStart("data"); err != nil {
		return value.Value{}, err
	}
	var items []value.Value
	for {
		tok, err := d.next()
		if err != nil {
			return value.Value{}, err
		}
		if end, ok := tok.(xml.EndElement); ok {
			if end.Name.Local != "data" {
				return value.Value{}, fmt.Errorf("expected </data>, got </%s>", end.Name.Local)
			}
			break
		}
		start := tok.(xml.StartElement)
		if start.Name.Local != "value" {
			return value.Value{}, fmt.Errorf("unexpected <%s> in array data", start.Name.Local)
		}
		v, err := d.valueBody()
		if err != nil {
			return value.Value{}, fmt.Errorf("array[%d]: %w", len(items), err)
		}
		items = append(items, v)
	}
	if err := d.expectEnd("array"); err != nil {
		return value.Value{}, err
	}
	return value.Array(items...), nil
}

func (d *decoder) structure() (value.Value, error) {
	var fields []value.Field
	for {
		tok, err := d.next()
		if err != nil {
			return value.Value{}, err
		}
		if end, ok := tok.(xml.EndElement); ok {
			if end.Name.Local != "struct" {
				return value.Value{}, fmt.Errorf("expected </struct>, got </%s>", end.Name.Local)
			}
			return value.Struct(fields...), nil
		}
		start := tok.(xml.StartElement)
		if start.Name.Local != "member" {
			return value.Value{}, fmt.Errorf("unexpected <%s> in struct", start.Name.Local)
		}
		f, err := d.member()
		if err != nil {
			return value.Value{}, err
		}
		fields = append(fields, f)
	}
}

// member reads <name> and <value> in either order.
func (d *decoder) member() (value.Field, error) {
	var (
		f                 value.Field
		haveName, haveVal bool
	)
	for {
		tok, err := d.next()
		if err != nil {
			return f, err
		}
		if end, ok := tok.(xml.EndElement); ok {
			if end.Name.Local != "member" {
				return f, fmt.Errorf("expected </member>, got </%s>", end.Name.Local)
			}
			break
		}
		start := tok.(xml.StartElement)
		switch start.Name.Local {
		case "name":
			if f.Name, err = d.text("name"); err != nil {
				return f, err
			}
			haveName = true
		case "value":
			if f.Value, err = d.valueBody(); err != nil {
				return f, fmt.Errorf("member %q: %w", f.Name, err)
			}
			haveVal = true
		default:
			return f, fmt.Errorf("unexpected <%s> in member", start.Name.Local)
		}
	}
	if !haveName || !haveVal {
		return f, fmt.Errorf("struct member %q is incomplete", f.Name)
	}
	return f, nil
}

var dateTimeLayouts = []string{
	"20060102T15:04:05",
	"20060102T15:04:05Z07:00",
	"20060102T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"20060102T150405",
	"20060102T150405Z07:00",
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid <dateTime.iso8601> %q", s)
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	}
	return nil, fmt.Errorf("unsupported response charset %q", label)
}

func describe(tok xml.Token) string {
	switch t := tok.(type) {
	case xml.StartElement:
		return "<" + t.Name.Local + ">"
	case xml.EndElement:
		return "</" + t.Name.Local + ">"
	}
	return fmt.Sprintf("%T", tok)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
