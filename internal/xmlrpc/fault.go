package xmlrpc

import (
	"fmt"

	"github.com/tkingovr/xapictl/internal/value"
)

// Fault is an XML-RPC fault returned by the server in place of a result.
type Fault struct {
	Code   int64
	String string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault %d: %s", f.Code, f.String)
}

func faultFromValue(v value.Value) error {
	if v.Kind() != value.KindStruct {
		return fmt.Errorf("fault value is %s, expected struct", v.Kind())
	}
	f := &Fault{}
	if code, ok := v.Lookup("faultCode"); ok {
		f.Code, _ = code.AsInt()
	}
	if msg, ok := v.Lookup("faultString"); ok {
		f.String, _ = msg.AsStr()
	}
	return f
}
