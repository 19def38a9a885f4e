package xmlrpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tkingovr/xapictl/api"
	"github.com/tkingovr/xapictl/internal/value"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Call(t *testing.T) {
	var gotMethod string
	var gotArgs []value.Value
	srv := httptest.NewServer(NewHandler(func(method string, args []value.Value) (value.Value, error) {
		gotMethod, gotArgs = method, args
		return value.Struct(value.F("Status", value.Str("Success")), value.F("Value", value.Int64(7))), nil
	}, newTestLogger()))
	defer srv.Close()

	c, err := NewClient(srv.URL, Options{Timeout: 5 * time.Second, UserAgent: "xapictl-test"}, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	v, err := c.Call(context.Background(), "VM.get_all", []value.Value{value.Str("sess"), value.Bool(false)})
	if err != nil {
		t.Fatal(err)
	}
	if gotMethod != "VM.get_all" || len(gotArgs) != 2 {
		t.Errorf("server saw %q with %d args", gotMethod, len(gotArgs))
	}
	inner, _ := v.Lookup("Value")
	if !inner.Equal(value.Int64(7)) {
		t.Errorf("unexpected result %s", v)
	}
}

func TestClient_FaultIsTransportError(t *testing.T) {
	srv := httptest.NewServer(NewHandler(func(string, []value.Value) (value.Value, error) {
		return value.Value{}, &Fault{Code: 1, String: "boom"}
	}, newTestLogger()))
	defer srv.Close()

	c, err := NewClient(srv.URL, Options{}, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Call(context.Background(), "x.y", nil)
	if !api.IsKind(err, api.KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	var fault *Fault
	if !errors.As(err, &fault) || fault.String != "boom" {
		t.Errorf("expected wrapped fault, got %v", err)
	}
}

func TestClient_HTTPStatusIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, Options{}, newTestLogger())
	_, err := c.Call(context.Background(), "x.y", nil)
	if !api.IsKind(err, api.KindTransport) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := NewClient(url, Options{Timeout: time.Second}, newTestLogger())
	_, err := c.Call(context.Background(), "session.login_with_password", []value.Value{value.Str("u"), value.Str("p")})
	if !api.IsKind(err, api.KindTransport) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	for _, u := range []string{"127.0.0.1", "ftp://host", "http://", "://x"} {
		if _, err := NewClient(u, Options{}, newTestLogger()); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
}

func TestHandler_RejectsGet(t *testing.T) {
	srv := httptest.NewServer(NewHandler(nil, newTestLogger()))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}
