// Package xapitest provides an in-process fake of the management API's
// XML-RPC endpoint for tests and local experiments.
package xapitest

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/tkingovr/xapictl/internal/value"
	"github.com/tkingovr/xapictl/internal/xmlrpc"
)

// Method answers a call. args excludes the session reference.
type Method func(args []value.Value) (value.Value, error)

// Call is one request received by the fake.
type Call struct {
	Method string
	Args   []value.Value
}

// Fake tracks credentials, live sessions and registered methods.
type Fake struct {
	mu          sync.Mutex
	users       map[string]string
	sessions    map[string]bool
	methods     map[string]Method
	calls       []Call
	nextSession int
	logger      *slog.Logger
}

// New returns a fake with no users and no methods.
func New(logger *slog.Logger) *Fake {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fake{
		users:    make(map[string]string),
		sessions: make(map[string]bool),
		methods:  make(map[string]Method),
		logger:   logger,
	}
}

// AddUser registers credentials accepted by session.login_with_password.
func (f *Fake) AddUser(user, pass string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user] = pass
}

// Handle registers a method under its full "<class>.<method>" name.
func (f *Fake) Handle(name string, m Method) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods[name] = m
}

// Calls returns every call received so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// LiveSessions returns the number of sessions not yet logged out.
func (f *Fake) LiveSessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// Handler serves the fake over HTTP.
func (f *Fake) Handler() http.Handler {
	return xmlrpc.NewHandler(f.dispatch, f.logger)
}

// Server runs the fake on a local httptest server.
type Server struct {
	*Fake
	*httptest.Server
}

// NewServer starts a fake on a loopback listener. Close stops it.
func NewServer(f *Fake) *Server {
	return &Server{Fake: f, Server: httptest.NewServer(f.Handler())}
}

func (f *Fake) dispatch(method string, args []value.Value) (value.Value, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
	f.mu.Unlock()

	switch method {
	case "session.login_with_password":
		return f.login(args), nil
	case "session.logout":
		return f.logout(args), nil
	}

	if len(args) == 0 {
		return Failure("SESSION_INVALID", ""), nil
	}
	ref, _ := args[0].AsStr()

	f.mu.Lock()
	live := f.sessions[ref]
	m, ok := f.methods[method]
	f.mu.Unlock()

	if !live {
		return Failure("SESSION_INVALID", ref), nil
	}
	if !ok {
		return Failure("MESSAGE_METHOD_UNKNOWN", method), nil
	}
	return m(args[1:])
}

func (f *Fake) login(args []value.Value) value.Value {
	if len(args) < 2 {
		return Failure("MESSAGE_PARAMETER_COUNT_MISMATCH", "session.login_with_password", "2", fmt.Sprint(len(args)))
	}
	user, _ := args[0].AsStr()
	pass, _ := args[1].AsStr()

	f.mu.Lock()
	defer f.mu.Unlock()
	if want, ok := f.users[user]; !ok || want != pass {
		return Failure("SESSION_AUTHENTICATION_FAILED", user, "Authentication failure")
	}
	f.nextSession++
	ref := fmt.Sprintf("OpaqueRef:session-%d", f.nextSession)
	f.sessions[ref] = true
	return Success(value.Str(ref))
}

func (f *Fake) logout(args []value.Value) value.Value {
	if len(args) != 1 {
		return Failure("MESSAGE_PARAMETER_COUNT_MISMATCH", "session.logout", "1", fmt.Sprint(len(args)))
	}
	ref, _ := args[0].AsStr()

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.sessions[ref] {
		return Failure("SESSION_INVALID", ref)
	}
	delete(f.sessions, ref)
	return Success(value.Str(""))
}

// Success wraps v in the API's success envelope.
func Success(v value.Value) value.Value {
	return value.Struct(
		value.F("Status", value.Str("Success")),
		value.F("Value", v),
	)
}

// Failure builds the API's failure envelope.
func Failure(code string, params ...string) value.Value {
	desc := make([]value.Value, 0, len(params)+1)
	desc = append(desc, value.Str(code))
	for _, p := range params {
		desc = append(desc, value.Str(p))
	}
	return value.Struct(
		value.F("Status", value.Str("Failure")),
		value.F("ErrorDescription", value.Array(desc...)),
	)
}
