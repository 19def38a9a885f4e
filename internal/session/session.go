// Package session runs one authenticated invocation against the management
// API: log in, call the target method with the session reference prepended,
// and log out.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tkingovr/xapictl/api"
	"github.com/tkingovr/xapictl/internal/value"
)

const (
	methodLogin  = "session.login_with_password"
	methodLogout = "session.logout"

	// valueField holds the payload of every API response envelope.
	valueField = "Value"
)

// Channel is a synchronous request/response transport.
type Channel interface {
	Call(ctx context.Context, method string, args []value.Value) (value.Value, error)
}

// Token is an opaque session reference. It is valid for one invocation and
// is never persisted.
type Token string

// Request describes one invocation.
type Request struct {
	User     string
	Password string
	Class    string
	Method   string
	Args     []value.Value
}

// Call returns the wire method name "<class>.<method>".
func (r *Request) Call() string {
	return CallName(r.Class, r.Method)
}

// CallName joins a class and method into the wire method name.
func CallName(class, method string) string {
	return class + "." + method
}

// Orchestrator sequences login, the target call and logout over a Channel.
type Orchestrator struct {
	channel Channel
	logger  *slog.Logger
}

// New creates an orchestrator.
func New(channel Channel, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{channel: channel, logger: logger}
}

// Login authenticates and returns the session reference.
func (o *Orchestrator) Login(ctx context.Context, user, password string) (Token, error) {
	resp, err := o.call(ctx, methodLogin, []value.Value{value.Str(user), value.Str(password)})
	if err != nil {
		return "", err
	}
	v, err := payload(resp, methodLogin)
	if err != nil {
		return "", err
	}
	ref, err := v.AsStr()
	if err != nil {
		return "", &api.Error{Kind: api.KindUnexpectedType, Op: methodLogin, Err: fmt.Errorf("session reference: %w", err)}
	}
	o.logger.Debug("session opened", "user", user)
	return Token(ref), nil
}

// Logout releases the session.
func (o *Orchestrator) Logout(ctx context.Context, tok Token) error {
	resp, err := o.call(ctx, methodLogout, []value.Value{value.Str(string(tok))})
	if err != nil {
		return err
	}
	_, err = payload(resp, methodLogout)
	return err
}

// Invoke calls "<class>.<method>" with the session reference as the first
// argument followed by args, and returns the response payload.
func (o *Orchestrator) Invoke(ctx context.Context, tok Token, class, method string, args []value.Value) (value.Value, error) {
	name := CallName(class, method)
	full := make([]value.Value, 0, len(args)+1)
	full = append(full, value.Str(string(tok)))
	full = append(full, args...)

	resp, err := o.call(ctx, name, full)
	if err != nil {
		return value.Value{}, err
	}
	return payload(resp, name)
}

// WithSession logs in, runs fn and then logs out. Logout is attempted
// exactly once whenever login succeeded, whatever fn returns; its failure
// is logged and dropped so fn's result stands.
func (o *Orchestrator) WithSession(ctx context.Context, user, password string, fn func(context.Context, Token) error) error {
	tok, err := o.Login(ctx, user, password)
	if err != nil {
		return err
	}
	defer func() {
		if err := o.Logout(context.WithoutCancel(ctx), tok); err != nil {
			o.logger.Debug("logout failed", "error", err)
			return
		}
		o.logger.Debug("session closed")
	}()
	return fn(ctx, tok)
}

// Run performs the whole invocation. emit receives the response payload
// and is expected to deliver it (convert, write, flush); it runs before
// logout.
func (o *Orchestrator) Run(ctx context.Context, req *Request, emit func(value.Value) error) error {
	return o.WithSession(ctx, req.User, req.Password, func(ctx context.Context, tok Token) error {
		result, err := o.Invoke(ctx, tok, req.Class, req.Method, req.Args)
		if err != nil {
			return err
		}
		return emit(result)
	})
}

func (o *Orchestrator) call(ctx context.Context, method string, args []value.Value) (value.Value, error) {
	resp, err := o.channel.Call(ctx, method, args)
	if err != nil {
		if api.KindOf(err) == "" {
			err = &api.Error{Kind: api.KindTransport, Op: method, Err: err}
		}
		return value.Value{}, err
	}
	return resp, nil
}

// payload extracts the Value field of a response envelope. When the field
// is missing and the server described a failure, the description is part
// of the error.
func payload(resp value.Value, op string) (value.Value, error) {
	v, err := value.ExtractField(resp, valueField)
	if err == nil {
		return v, nil
	}
	if api.IsKind(err, api.KindMissingField) {
		if desc := errorDescription(resp); desc != "" {
			return value.Value{}, api.Errorf(api.KindMissingField, op,
				"response has no %q field; server reported %s", valueField, desc)
		}
	}
	var e *api.Error
	if errors.As(err, &e) {
		e.Op = op
	}
	return value.Value{}, err
}

func errorDescription(resp value.Value) string {
	desc, ok := resp.Lookup("ErrorDescription")
	if !ok {
		return ""
	}
	items, err := desc.AsArray()
	if err != nil {
		return desc.String()
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if s, err := item.AsStr(); err == nil {
			parts = append(parts, s)
		} else {
			parts = append(parts, item.String())
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
