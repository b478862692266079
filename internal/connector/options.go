package connector

import (
	"fmt"
	"strconv"
	"time"

	"moff.io/wallet-modal/pkg/errors"
)

// Options is a descriptor's init option mapping.
type Options map[string]interface{}

// String returns the option as a string, "" when absent.
func (o Options) String(key string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns the option as an int. ok is false when absent or unparsable.
func (o Options) Int(key string) (int, bool) {
	v, present := o[key]
	if !present || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

// Uint64 returns the option as an uint64, used for chain ids.
func (o Options) Uint64(key string) (uint64, bool) {
	v, present := o[key]
	if !present || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case uint64:
		return n, true
	case int:
		return uint64(n), n >= 0
	case int64:
		return uint64(n), n >= 0
	case float64:
		return uint64(n), n >= 0
	case string:
		i, err := strconv.ParseUint(n, 0, 64)
		return i, err == nil
	}
	return 0, false
}

// Duration reads a millisecond count or a duration string.
func (o Options) Duration(key string) (time.Duration, bool) {
	if s, ok := o[key].(string); ok {
		d, err := time.ParseDuration(s)
		return d, err == nil
	}
	ms, ok := o.Int(key)
	if !ok {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// Require returns an error naming the first missing key.
func (o Options) Require(keys ...string) error {
	for _, k := range keys {
		if o.String(k) == "" {
			return errors.Errorf("you must specify %v property in options", k)
		}
	}
	return nil
}
