package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tkingovr/xapictl/internal/value"
)

// DecodeCall reads a methodCall document.
func DecodeCall(r io.Reader) (string, []value.Value, error) {
	d := &decoder{xml.NewDecoder(r)}
	d.x.CharsetReader = charsetReader

	if _, err := d.expectStart("methodCall"); err != nil {
		return "", nil, err
	}
	if _, err := d.expectStart("methodName"); err != nil {
		return "", nil, err
	}
	method, err := d.text("methodName")
	if err != nil {
		return "", nil, err
	}

	var args []value.Value
	tok, err := d.next()
	if err != nil {
		return "", nil, err
	}
	if start, ok := tok.(xml.StartElement); ok {
		if start.Name.Local != "params" {
			return "", nil, fmt.Errorf("unexpected <%s> in methodCall", start.Name.Local)
		}
		for {
			tok, err := d.next()
			if err != nil {
				return "", nil, err
			}
			if _, ok := tok.(xml.EndElement); ok {
				break
			}
			if start := tok.(xml.StartElement); start.Name.Local != "param" {
				return "", nil, fmt.Errorf("unexpected <%s> in params", start.Name.Local)
			}
			v, err := d.valueElement()
			if err != nil {
				return "", nil, fmt.Errorf("param %d: %w", len(args), err)
			}
			if err := d.expectEnd("param"); err != nil {
				return "", nil, err
			}
			args = append(args, v)
		}
		if err := d.expectEnd("methodCall"); err != nil {
			return "", nil, err
		}
	}
	return method, args, nil
}

// EncodeResponse renders a successful methodResponse document.
func EncodeResponse(v value.Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<methodResponse><params><param>")
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	buf.WriteString("</param></params></methodResponse>")
	return buf.Bytes(), nil
}

// EncodeFault renders a fault methodResponse document.
func EncodeFault(f *Fault) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<methodResponse><fault>")
	// A struct of an int and a string always encodes.
	_ = encodeValue(&buf, value.Struct(
		value.F("faultCode", value.Int32(int32(f.Code))),
		value.F("faultString", value.Str(f.String)),
	))
	buf.WriteString("</fault></methodResponse>")
	return buf.Bytes()
}

// HandlerFunc answers one decoded call. Returning a *Fault sends it to the
// client as a fault; any other error becomes fault code -32500.
type HandlerFunc func(method string, args []value.Value) (value.Value, error)

// Handler serves XML-RPC over HTTP POST.
type Handler struct {
	fn     HandlerFunc
	logger *slog.Logger
}

// NewHandler wraps fn as an http.Handler.
func NewHandler(fn HandlerFunc, logger *slog.Logger) *Handler {
	return &Handler{fn: fn, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "XML-RPC requires POST", http.StatusMethodNotAllowed)
		return
	}
	method, args, err := DecodeCall(r.Body)
	r.Body.Close()
	if err != nil {
		h.logger.Warn("rejecting malformed call", "error", err)
		h.write(w, EncodeFault(&Fault{Code: -32700, String: "parse error: " + err.Error()}))
		return
	}

	result, err := h.fn(method, args)
	if err != nil {
		var fault *Fault
		if !errors.As(err, &fault) {
			fault = &Fault{Code: -32500, String: err.Error()}
		}
		h.write(w, EncodeFault(fault))
		return
	}

	data, err := EncodeResponse(result)
	if err != nil {
		h.write(w, EncodeFault(&Fault{Code: -32603, String: err.Error()}))
		return
	}
	h.write(w, data)
}

func (h *Handler) write(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "text/xml")
	if _, err := w.Write(data); err != nil {
		h.logger.Debug("writing response", "error", err)
	}
}
