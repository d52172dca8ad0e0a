package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// RangeFilter filters a timestamp either by an exact value or by any
// combination of the gt/gte/lt/lte bounds.
type RangeFilter struct {
	Value *int64 `json:"-"`
	GT    *int64 `json:"gt,omitzero"`
	GTE   *int64 `json:"gte,omitzero"`
	LT    *int64 `json:"lt,omitzero"`
	LTE   *int64 `json:"lte,omitzero"`
}

func Exactly(v int64) *RangeFilter {
	return &RangeFilter{Value: &v}
}

func (r *RangeFilter) hasBounds() bool {
	return r.GT != nil || r.GTE != nil || r.LT != nil || r.LTE != nil
}

func (r *RangeFilter) Validate() error {
	if r == nil {
		return nil
	}
	if r.Value != nil && r.hasBounds() {
		return fmt.Errorf("%w: range filter mixes an exact value with bounds", ErrInvalidParams)
	}
	return nil
}

// Match reports whether ts satisfies the filter.
func (r *RangeFilter) Match(ts int64) bool {
	if r == nil {
		return true
	}
	switch {
	case r.Value != nil && ts != *r.Value,
		r.GT != nil && ts <= *r.GT,
		r.GTE != nil && ts < *r.GTE,
		r.LT != nil && ts >= *r.LT,
		r.LTE != nil && ts > *r.LTE:
		return false
	}
	return true
}

type rangeBounds struct {
	GT  *int64 `json:"gt,omitzero"`
	GTE *int64 `json:"gte,omitzero"`
	LT  *int64 `json:"lt,omitzero"`
	LTE *int64 `json:"lte,omitzero"`
}

func (r RangeFilter) MarshalJSON() ([]byte, error) {
	if r.Value != nil {
		return json.Marshal(*r.Value)
	}
	return json.Marshal(rangeBounds{GT: r.GT, GTE: r.GTE, LT: r.LT, LTE: r.LTE})
}

func (r *RangeFilter) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var v int64
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("%w: range filter must be a number or an object", ErrInvalidParams)
		}
		*r = RangeFilter{Value: &v}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var b rangeBounds
	if err := dec.Decode(&b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	*r = RangeFilter{GT: b.GT, GTE: b.GTE, LT: b.LT, LTE: b.LTE}
	return nil
}

// AppendTo writes the filter as key=v or key[op]=v query values.
func (r *RangeFilter) AppendTo(values url.Values, key string) {
	if r == nil {
		return
	}
	if r.Value != nil {
		values.Set(key, strconv.FormatInt(*r.Value, 10))
		return
	}
	for _, b := range []struct {
		op string
		v  *int64
	}{{"gt", r.GT}, {"gte", r.GTE}, {"lt", r.LT}, {"lte", r.LTE}} {
		if b.v != nil {
			values.Set(key+"["+b.op+"]", strconv.FormatInt(*b.v, 10))
		}
	}
}

// ParseRangeFilter reads a filter written by AppendTo. It returns nil when
// the query carries neither form of the key.
func ParseRangeFilter(values url.Values, key string) (*RangeFilter, error) {
	parse := func(k string) (*int64, error) {
		raw := values.Get(k)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer", ErrInvalidParams, k)
		}
		return &v, nil
	}

	var (
		r   RangeFilter
		err error
	)
	if r.Value, err = parse(key); err != nil {
		return nil, err
	}
	if r.GT, err = parse(key + "[gt]"); err != nil {
		return nil, err
	}
	if r.GTE, err = parse(key + "[gte]"); err != nil {
		return nil, err
	}
	if r.LT, err = parse(key + "[lt]"); err != nil {
		return nil, err
	}
	if r.LTE, err = parse(key + "[lte]"); err != nil {
		return nil, err
	}
	if r.Value == nil && !r.hasBounds() {
		return nil, nil
	}
	return &r, r.Validate()
}

// StatusTransitionsFilter filters orders by when they reached a status.
type StatusTransitionsFilter struct {
	Canceled  *RangeFilter `json:"canceled,omitzero"`
	Fulfilled *RangeFilter `json:"fulfilled,omitzero"`
	Paid      *RangeFilter `json:"paid,omitzero"`
	Returned  *RangeFilter `json:"returned,omitzero"`
}

func (f *StatusTransitionsFilter) Validate() error {
	if f == nil {
		return nil
	}
	for _, r := range []*RangeFilter{f.Canceled, f.Fulfilled, f.Paid, f.Returned} {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f *StatusTransitionsFilter) AppendTo(values url.Values, key string) {
	if f == nil {
		return
	}
	f.Canceled.AppendTo(values, key+"[canceled]")
	f.Fulfilled.AppendTo(values, key+"[fulfilled]")
	f.Paid.AppendTo(values, key+"[paid]")
	f.Returned.AppendTo(values, key+"[returned]")
}

func ParseStatusTransitionsFilter(values url.Values, key string) (*StatusTransitionsFilter, error) {
	var (
		f   StatusTransitionsFilter
		err error
	)
	if f.Canceled, err = ParseRangeFilter(values, key+"[canceled]"); err != nil {
		return nil, err
	}
	if f.Fulfilled, err = ParseRangeFilter(values, key+"[fulfilled]"); err != nil {
		return nil, err
	}
	if f.Paid, err = ParseRangeFilter(values, key+"[paid]"); err != nil {
		return nil, err
	}
	if f.Returned, err = ParseRangeFilter(values, key+"[returned]"); err != nil {
		return nil, err
	}
	if f.Canceled == nil && f.Fulfilled == nil && f.Paid == nil && f.Returned == nil {
		return nil, nil
	}
	return &f, nil
}
