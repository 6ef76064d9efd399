package logging

import (
	"encoding/json"
	"strings"
)

const mask = "*****"

// Redact serializes a value with every credential-like field masked. The
// value is deep-cloned through a JSON round trip, so the input is never
// mutated. Any key whose lowercased name contains "password" is replaced
// with the mask, at every nesting depth. Inputs are plain decoded JSON;
// cyclic structures are out of contract.
func Redact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `"<unserializable>"`
	}
	var clone any
	if err := json.Unmarshal(data, &clone); err != nil {
		return `"<unserializable>"`
	}
	maskSecrets(clone)
	out, err := json.Marshal(clone)
	if err != nil {
		return `"<unserializable>"`
	}
	return string(out)
}

func maskSecrets(v any) {
	switch t := v.(type) {
	case map[string]any:
		for key, val := range t {
			if strings.Contains(strings.ToLower(key), "password") {
				t[key] = mask
				continue
			}
			maskSecrets(val)
		}
	case []any:
		for _, item := range t {
			maskSecrets(item)
		}
	}
}
