package telemetry

import (
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Keys containing any of these never reach an exporter. Raw waveforms are
// patient data and credentials are credentials.
var denyKeys = []string{
	"signal",
	"sample",
	"preview",
	"waveform",
	"authorization",
	"api_key",
	"token",
	"password",
	"secret",
	"question",
}

const maxStringLen = 256

// SafeAttributes filters out unsafe keys and unsupported values and returns
// OTEL attributes sorted by key.
func SafeAttributes(values map[string]interface{}) []attribute.KeyValue {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		if !denied(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var attrs []attribute.KeyValue
	for _, k := range keys {
		switch v := values[k].(type) {
		case string:
			if len(v) > maxStringLen {
				continue
			}
			attrs = append(attrs, attribute.String(k, v))
		case bool:
			attrs = append(attrs, attribute.Bool(k, v))
		case int:
			attrs = append(attrs, attribute.Int(k, v))
		case int64:
			attrs = append(attrs, attribute.Int64(k, v))
		case float64:
			attrs = append(attrs, attribute.Float64(k, v))
		case []string:
			if len(v) > 16 {
				v = v[:16]
			}
			attrs = append(attrs, attribute.StringSlice(k, v))
		}
	}
	return attrs
}

func denied(key string) bool {
	lk := strings.ToLower(key)
	for _, bad := range denyKeys {
		if strings.Contains(lk, bad) {
			return true
		}
	}
	return false
}
