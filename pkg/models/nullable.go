package models

import (
	"bytes"
	"encoding/json"
)

type nullState uint8

const (
	stateAbsent nullState = iota
	stateNull
	stateValue
)

var jsonNull = []byte("null")

// Nullable holds a field that the API may omit, send as null, or send with a
// value. The zero Nullable is absent and is dropped by `omitzero`.
type Nullable[T any] struct {
	value T
	state nullState
}

func NullableOf[T any](v T) Nullable[T] {
	return Nullable[T]{value: v, state: stateValue}
}

func Null[T any]() Nullable[T] {
	return Nullable[T]{state: stateNull}
}

func (n Nullable[T]) IsZero() bool { return n.state == stateAbsent }

func (n Nullable[T]) IsNull() bool { return n.state == stateNull }

func (n Nullable[T]) IsSet() bool { return n.state == stateValue }

// Get returns the value and whether one is present.
func (n Nullable[T]) Get() (T, bool) {
	return n.value, n.state == stateValue
}

// OrZero returns the value, or the zero T when absent or null.
func (n Nullable[T]) OrZero() T {
	return n.value
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.state != stateValue {
		return jsonNull, nil
	}
	return json.Marshal(n.value)
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		var zero T
		n.value = zero
		n.state = stateNull
		return nil
	}
	if err := json.Unmarshal(data, &n.value); err != nil {
		return err
	}
	n.state = stateValue
	return nil
}

func String(v string) *string { return &v }

func Int64(v int64) *int64 { return &v }

func Bool(v bool) *bool { return &v }

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func Int64Value(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
