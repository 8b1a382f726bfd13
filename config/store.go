package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Store is an immutable view over nested configuration values.
type Store struct {
	v *viper.Viper
}

// New creates a Store from nested values. Values may hold live handles
// (clients, listeners); they are stored as-is and never copied.
func New(values map[string]any) *Store {
	v := viper.New()
	if len(values) > 0 {
		// MergeConfigMap rewrites keys in place, so hand it a copy.
		_ = v.MergeConfigMap(copyMap(values))
	}
	return &Store{v: v}
}

func fromViper(v *viper.Viper) *Store {
	return &Store{v: v}
}

// Get returns the value at key, or def when the key is absent.
func (s *Store) Get(key string, def any) any {
	if s == nil || !s.v.IsSet(key) {
		return def
	}
	v := s.v.Get(key)
	if _, ok := v.(map[string]any); ok {
		return s.section(key)
	}
	return v
}

// IsSet reports whether key holds a value.
func (s *Store) IsSet(key string) bool {
	return s != nil && s.v.IsSet(key)
}

// GetString returns the value at key as a string.
func (s *Store) GetString(key, def string) string {
	if !s.IsSet(key) {
		return def
	}
	return s.v.GetString(key)
}

// GetBool returns the value at key as a bool.
func (s *Store) GetBool(key string, def bool) bool {
	if !s.IsSet(key) {
		return def
	}
	b, err := cast.ToBoolE(s.v.Get(key))
	if err != nil {
		return def
	}
	return b
}

// GetInt returns the value at key as an int.
func (s *Store) GetInt(key string, def int) int {
	if !s.IsSet(key) {
		return def
	}
	n, err := cast.ToIntE(s.v.Get(key))
	if err != nil {
		return def
	}
	return n
}

// GetDuration returns the value at key as a duration. Bare numbers are
// seconds; strings may use Go duration syntax ("1500ms").
func (s *Store) GetDuration(key string, def time.Duration) time.Duration {
	if !s.IsSet(key) {
		return def
	}
	d, err := ToDuration(s.v.Get(key))
	if err != nil {
		return def
	}
	return d
}

// GetStringMap returns the nested map at key, or nil.
func (s *Store) GetStringMap(key string) map[string]any {
	if !s.IsSet(key) {
		return nil
	}
	m, err := cast.ToStringMapE(s.section(key))
	if err != nil {
		return nil
	}
	return m
}

// section walks key through the settings merged across every layer.
// v.Get on a section returns only the highest layer's map.
func (s *Store) section(key string) any {
	var cur any = s.v.AllSettings()
	for _, part := range strings.Split(strings.ToLower(key), ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[part]; !ok {
			return nil
		}
	}
	return cur
}

// All returns every setting as a nested map.
func (s *Store) All() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	return s.v.AllSettings()
}

// Merge returns a new Store with patch deep-merged over the receiver.
// Nested maps merge key by key; any other value in patch replaces the
// existing one.
func (s *Store) Merge(patch map[string]any) *Store {
	v := viper.New()
	_ = v.MergeConfigMap(s.All())
	if len(patch) > 0 {
		_ = v.MergeConfigMap(copyMap(patch))
	}
	return fromViper(v)
}

// Unmarshal decodes the subtree at key into out. See Decode.
func (s *Store) Unmarshal(key string, out any) error {
	var input any = map[string]any{}
	if key == "" {
		input = s.All()
	} else if m := s.GetStringMap(key); m != nil {
		input = m
	}
	if err := Decode(input, out); err != nil {
		return fmt.Errorf("config %s: %w", key, err)
	}
	return nil
}

// ToDuration converts seconds (int, float, numeric string) or a Go duration
// string into a time.Duration.
func ToDuration(v any) (time.Duration, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case int:
		return time.Duration(t) * time.Second, nil
	case int64:
		return time.Duration(t) * time.Second, nil
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	case float32:
		return time.Duration(float64(t) * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(t)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(f * float64(time.Second)), nil
		}
		return time.ParseDuration(s)
	default:
		n, err := cast.ToFloat64E(v)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %T to duration", v)
		}
		return time.Duration(n * float64(time.Second)), nil
	}
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case map[string]any:
			out[k] = copyMap(t)
		case map[any]any:
			out[k] = copyMap(cast.ToStringMap(t))
		default:
			out[k] = v
		}
	}
	return out
}
