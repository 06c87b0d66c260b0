package plugin

import "time"

// Typed accessors for configuration values. JSON unmarshaling produces
// float64 for every number and YAML produces int for integral ones, so the
// numeric accessors coerce across both.

// String returns the string value for key.
func (c Config) String(key string) (string, bool) {
	v, ok := c[key].(string)
	return v, ok
}

// StringOr returns the string value for key, or def when absent.
func (c Config) StringOr(key, def string) string {
	if v, ok := c.String(key); ok {
		return v
	}
	return def
}

// Int returns the integer value for key, coercing from any numeric type.
func (c Config) Int(key string) (int, bool) {
	switch v := c[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	default:
		return 0, false
	}
}

// IntOr returns the integer value for key, or def when absent.
func (c Config) IntOr(key string, def int) int {
	if v, ok := c.Int(key); ok {
		return v
	}
	return def
}

// Float returns the float value for key, coercing from any numeric type.
func (c Config) Float(key string) (float64, bool) {
	switch v := c[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// FloatOr returns the float value for key, or def when absent.
func (c Config) FloatOr(key string, def float64) float64 {
	if v, ok := c.Float(key); ok {
		return v
	}
	return def
}

// Bool returns the boolean value for key.
func (c Config) Bool(key string) (bool, bool) {
	v, ok := c[key].(bool)
	return v, ok
}

// BoolOr returns the boolean value for key, or def when absent.
func (c Config) BoolOr(key string, def bool) bool {
	if v, ok := c.Bool(key); ok {
		return v
	}
	return def
}

// Duration returns the duration value for key, parsed from a string like
// "30s" or coerced from a numeric second count.
func (c Config) Duration(key string) (time.Duration, bool) {
	switch v := c[key].(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, false
		}
		return d, true
	case int:
		return time.Duration(v) * time.Second, true
	case int64:
		return time.Duration(v) * time.Second, true
	case float64:
		return time.Duration(v * float64(time.Second)), true
	default:
		return 0, false
	}
}

// DurationOr returns the duration value for key, or def when absent.
func (c Config) DurationOr(key string, def time.Duration) time.Duration {
	if v, ok := c.Duration(key); ok {
		return v
	}
	return def
}

// Strings returns the string-slice value for key, coercing from a decoded
// []interface{}.
func (c Config) Strings(key string) ([]string, bool) {
	switch v := c[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
