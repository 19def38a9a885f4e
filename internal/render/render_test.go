package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tkingovr/xapictl/internal/convert"
	"github.com/tkingovr/xapictl/internal/value"
)

func sampleDoc(t *testing.T) any {
	t.Helper()
	doc, err := convert.ToJSON(value.Struct(
		value.F("count", value.Int64(3)),
		value.F("uuid", value.Str("x")),
	))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestWrite_Pretty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleDoc(t), Options{Format: FormatJSON}); err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"count\": 3.0,\n  \"uuid\": \"x\"\n}\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWrite_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleDoc(t), Options{Format: FormatJSON, Compact: true}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\"count\":3.0,\"uuid\":\"x\"}\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWrite_EmptyContainers(t *testing.T) {
	var buf bytes.Buffer
	doc := []any{convert.NewObject(0), []any{}, nil}
	if err := Write(&buf, doc, Options{Compact: true}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[{},[],null]\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWrite_YAMLKeepsOrderAndQuotes(t *testing.T) {
	obj := convert.NewObject(3)
	obj.Set("zeta", "true")
	obj.Set("alpha", convert.Number(2))
	obj.Set("list", []any{"a", nil})

	var buf bytes.Buffer
	if err := Write(&buf, obj, Options{Format: FormatYAML}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Index(out, "zeta") > strings.Index(out, "alpha") {
		t.Errorf("expected insertion order, got:\n%s", out)
	}
	if !strings.Contains(out, `zeta: "true"`) {
		t.Errorf("expected string \"true\" to be quoted, got:\n%s", out)
	}
	if !strings.Contains(out, "alpha: 2.0") {
		t.Errorf("expected double rendering, got:\n%s", out)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatJSON {
		t.Errorf("expected json default, got %q %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteStruct(t *testing.T) {
	rec := struct {
		Call    string `json:"call"`
		Verdict string `json:"verdict"`
		Rule    string `json:"rule,omitempty"`
		Count   int    `json:"count"`
		Label   string `json:"label"`
	}{Call: "VM.destroy", Verdict: "deny", Count: 2, Label: "true"}

	var buf bytes.Buffer
	if err := WriteStruct(&buf, rec, Options{Format: FormatJSON, Compact: true}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != `{"call":"VM.destroy","verdict":"deny","count":2,"label":"true"}`+"\n" {
		t.Errorf("unexpected JSON %q", got)
	}

	buf.Reset()
	if err := WriteStruct(&buf, rec, Options{Format: FormatYAML}); err != nil {
		t.Fatal(err)
	}
	want := "call: VM.destroy\nverdict: deny\ncount: 2\nlabel: \"true\"\n"
	if buf.String() != want {
		t.Errorf("unexpected YAML:\n%s", buf.String())
	}
}
