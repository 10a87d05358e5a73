package backend

import (
	"encoding/json"

	"github.com/mrlokans/shelfront/internal/errors"
)

// Payload is a decoded response envelope. Keys are kept raw so callers decode
// only what they use and unknown keys are ignored.
type Payload map[string]json.RawMessage

func (p Payload) Has(key string) bool {
	v, ok := p[key]
	return ok && string(v) != "null"
}

// Decode unmarshals the value under key into dst.
func (p Payload) Decode(key string, dst any) error {
	v, ok := p[key]
	if !ok {
		return errors.Parse(errors.NotFoundf("response has no %q field", key))
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return errors.Parse(err)
	}
	return nil
}

// Success reports the envelope's success flag. A missing flag counts as
// success so plain JSON endpoints still work.
func (p Payload) Success() bool {
	v, ok := p["success"]
	if !ok {
		return true
	}
	var success bool
	if err := json.Unmarshal(v, &success); err != nil {
		return false
	}
	return success
}

// Message returns the envelope's "error" string, or "message" if absent.
func (p Payload) Message() string {
	for _, key := range []string{"error", "message"} {
		v, ok := p[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// Bool decodes a boolean field.
func (p Payload) Bool(key string) (bool, bool) {
	v, ok := p[key]
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return false, false
	}
	return b, true
}
