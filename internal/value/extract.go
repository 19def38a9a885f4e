package value

import "github.com/tkingovr/xapictl/api"

// ExtractField returns the named field of a struct response.
func ExtractField(resp Value, field string) (Value, error) {
	if resp.Kind() != KindStruct {
		return Value{}, api.Errorf(api.KindMalformedResponse, "extract "+field,
			"expected struct response, got %s", resp)
	}
	v, ok := resp.Lookup(field)
	if !ok {
		return Value{}, api.Errorf(api.KindMissingField, "extract "+field,
			"response has no %q field", field)
	}
	return v, nil
}

// ExtractString returns the named field of a struct response, which must
// hold a string.
func ExtractString(resp Value, field string) (string, error) {
	v, err := ExtractField(resp, field)
	if err != nil {
		return "", err
	}
	s, err := v.AsStr()
	if err != nil {
		return "", &api.Error{Kind: api.KindUnexpectedType, Op: "extract " + field, Err: err}
	}
	return s, nil
}
