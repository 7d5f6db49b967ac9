// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"encoding"
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// Value represents a configuration value that may or may not be set.
// This distinguishes between "not set" and "set to the zero value",
// which is what allows layered resolution to tell an explicit
// assignment apart from an absent one.
type Value[T any] struct {
	v   T
	set bool
}

// ValueOf returns a set Value holding v.
func ValueOf[T any](v T) Value[T] {
	return Value[T]{
		v:   v,
		set: true,
	}
}

// Value returns the underlying value along with whether it was set.
func (val Value[T]) Value() (T, bool) {
	return val.v, val.set
}

// UnmarshalYAML implements the [yaml.Unmarshaler] interface.
//
// A key present in the document marks the value as set, even if the
// decoded value equals the zero value for T. [time.Duration]s decode
// from strings like "3s" and types implementing
// [encoding.TextUnmarshaler] decode through it.
func (val *Value[T]) UnmarshalYAML(node *yaml.Node) error {
	var t T
	switch x := any(&t).(type) {
	case *time.Duration:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*x = d
	case encoding.TextUnmarshaler:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		err := x.UnmarshalText([]byte(s))
		if err != nil {
			return err
		}
	default:
		err := node.Decode(&t)
		if err != nil {
			return err
		}
	}
	val.v = t
	val.set = true
	return nil
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
//
// A JSON null leaves the value unset. [time.Duration]s decode from
// strings like "3s" in addition to integer nanoseconds.
func (val *Value[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	var t T
	if x, ok := any(&t).(*time.Duration); ok && len(b) > 0 && b[0] == '"' {
		var s string
		err := json.Unmarshal(b, &s)
		if err != nil {
			return err
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*x = d
		val.v = t
		val.set = true
		return nil
	}

	err := json.Unmarshal(b, &t)
	if err != nil {
		return err
	}
	val.v = t
	val.set = true
	return nil
}
