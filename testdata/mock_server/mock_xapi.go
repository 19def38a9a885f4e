// mock_xapi.go serves a small in-memory XAPI host for trying xapictl
// without a real pool.
// Usage: go run ./testdata/mock_server/mock_xapi.go --listen 127.0.0.1:8081
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"

	"github.com/spf13/pflag"

	"github.com/tkingovr/xapictl/internal/value"
	"github.com/tkingovr/xapictl/internal/xapitest"
)

type vm struct {
	nameLabel string
	memory    int64
	power     string
}

type inventory struct {
	mu  sync.Mutex
	vms map[string]*vm
}

func (inv *inventory) record(ref string, v *vm) value.Value {
	return value.Struct(
		value.F("uuid", value.Str(ref[len("OpaqueRef:"):])),
		value.F("name_label", value.Str(v.nameLabel)),
		value.F("memory_static_max", value.Str(fmt.Sprint(v.memory))),
		value.F("power_state", value.Str(v.power)),
		value.F("is_a_template", value.Bool(false)),
		value.F("tags", value.Array()),
	)
}

func (inv *inventory) refs() []string {
	refs := make([]string, 0, len(inv.vms))
	for ref := range inv.vms {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

func (inv *inventory) lookup(args []value.Value) (string, *vm, value.Value) {
	if len(args) == 0 {
		return "", nil, xapitest.Failure("MESSAGE_PARAMETER_COUNT_MISMATCH", "VM", "1", "0")
	}
	ref, err := args[0].AsStr()
	if err != nil {
		return "", nil, xapitest.Failure("FIELD_TYPE_ERROR", "self")
	}
	v, ok := inv.vms[ref]
	if !ok {
		return "", nil, xapitest.Failure("HANDLE_INVALID", "VM", ref)
	}
	return ref, v, value.Value{}
}

func main() {
	listen := pflag.StringP("listen", "l", "127.0.0.1:8081", "listen address")
	user := pflag.StringP("user", "u", "root", "accepted user name")
	pass := pflag.StringP("pass", "p", "password", "accepted password")
	pflag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	inv := &inventory{vms: map[string]*vm{
		"OpaqueRef:6f1a0c1e-0001": {nameLabel: "web", memory: 2147483648, power: "Running"},
		"OpaqueRef:6f1a0c1e-0002": {nameLabel: "db", memory: 8589934592, power: "Halted"},
	}}

	fake := xapitest.New(logger)
	fake.AddUser(*user, *pass)

	fake.Handle("VM.get_all", func([]value.Value) (value.Value, error) {
		inv.mu.Lock()
		defer inv.mu.Unlock()
		var refs []value.Value
		for _, ref := range inv.refs() {
			refs = append(refs, value.Str(ref))
		}
		return xapitest.Success(value.Array(refs...)), nil
	})
	fake.Handle("VM.get_all_records", func([]value.Value) (value.Value, error) {
		inv.mu.Lock()
		defer inv.mu.Unlock()
		var fields []value.Field
		for _, ref := range inv.refs() {
			fields = append(fields, value.F(ref, inv.record(ref, inv.vms[ref])))
		}
		return xapitest.Success(value.Struct(fields...)), nil
	})
	fake.Handle("VM.get_record", func(args []value.Value) (value.Value, error) {
		inv.mu.Lock()
		defer inv.mu.Unlock()
		ref, v, failure := inv.lookup(args)
		if v == nil {
			return failure, nil
		}
		return xapitest.Success(inv.record(ref, v)), nil
	})
	fake.Handle("VM.set_name_label", func(args []value.Value) (value.Value, error) {
		inv.mu.Lock()
		defer inv.mu.Unlock()
		_, v, failure := inv.lookup(args)
		if v == nil {
			return failure, nil
		}
		if len(args) < 2 {
			return xapitest.Failure("MESSAGE_PARAMETER_COUNT_MISMATCH", "VM.set_name_label", "2", "1"), nil
		}
		label, err := args[1].AsStr()
		if err != nil {
			return xapitest.Failure("FIELD_TYPE_ERROR", "value"), nil
		}
		v.nameLabel = label
		return xapitest.Success(value.Str("")), nil
	})
	fake.Handle("VM.destroy", func(args []value.Value) (value.Value, error) {
		inv.mu.Lock()
		defer inv.mu.Unlock()
		ref, v, failure := inv.lookup(args)
		if v == nil {
			return failure, nil
		}
		delete(inv.vms, ref)
		return xapitest.Success(value.Str("")), nil
	})

	logger.Info("mock XAPI listening", "addr", *listen, "user", *user)
	if err := http.ListenAndServe(*listen, fake.Handler()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
