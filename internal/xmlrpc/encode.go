// Package xmlrpc is the request/response channel to the management API:
// it encodes method calls as XML-RPC documents, posts them over HTTP and
// decodes the reply into wire values.
package xmlrpc

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/tkingovr/xapictl/internal/value"
)

const dateTimeLayout = "20060102T15:04:05Z"

// EncodeCall renders a methodCall document for method with the positional
// arguments args.
func EncodeCall(method string, args []value.Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<methodCall><methodName>")
	if err := xml.EscapeText(&buf, []byte(method)); err != nil {
		return nil, err
	}
	buf.WriteString("</methodName><params>")
	for i, arg := range args {
		buf.WriteString("<param>")
		if err := encodeValue(&buf, arg); err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		buf.WriteString("</param>")
	}
	buf.WriteString("</params></methodCall>")
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v value.Value) error {
	buf.WriteString("<value>")
	switch v.Kind() {
	case value.KindNull:
		buf.WriteString("<nil/>")

	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			buf.WriteString("<boolean>1</boolean>")
		} else {
			buf.WriteString("<boolean>0</boolean>")
		}

	case value.KindInt32:
		i, _ := v.AsInt()
		fmt.Fprintf(buf, "<i4>%d</i4>", i)

	case value.KindInt64:
		i, _ := v.AsInt()
		fmt.Fprintf(buf, "<i8>%d</i8>", i)

	case value.KindFloat64:
		f, _ := v.AsFloat()
		buf.WriteString("<double>")
		buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		buf.WriteString("</double>")

	case value.KindStr:
		s, _ := v.AsStr()
		buf.WriteString("<string>")
		if err := xml.EscapeText(buf, []byte(s)); err != nil {
			return err
		}
		buf.WriteString("</string>")

	case value.KindDateTime:
		t, _ := v.AsTime()
		buf.WriteString("<dateTime.iso8601>")
		buf.WriteString(t.UTC().Format(dateTimeLayout))
		buf.WriteString("</dateTime.iso8601>")

	case value.KindBinary:
		b, _ := v.AsBytes()
		buf.WriteString("<base64>")
		buf.WriteString(base64.StdEncoding.EncodeToString(b))
		buf.WriteString("</base64>")

	case value.KindArray:
		items, _ := v.AsArray()
		buf.WriteString("<array><data>")
		for i, item := range items {
			if err := encodeValue(buf, item); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteString("</data></array>")

	case value.KindStruct:
		fields, _ := v.AsStruct()
		buf.WriteString("<struct>")
		for _, f := range fields {
			buf.WriteString("<member><name>")
			if err := xml.EscapeText(buf, []byte(f.Name)); err != nil {
				return err
			}
			buf.WriteString("</name>")
			if err := encodeValue(buf, f.Value); err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			buf.WriteString("</member>")
		}
		buf.WriteString("</struct>")

	default:
		return fmt.Errorf("unsupported value kind %s", v.Kind())
	}
	buf.WriteString("</value>")
	return nil
}
