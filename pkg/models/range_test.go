package models

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeFilterAcceptsAnyBoundSubset(t *testing.T) {
	ops := []string{"gt", "gte", "lt", "lte"}

	for mask := 0; mask < 1<<len(ops); mask++ {
		obj := map[string]int64{}
		for i, op := range ops {
			if mask&(1<<i) != 0 {
				obj[op] = int64(100 + i)
			}
		}
		data, err := json.Marshal(obj)
		require.NoError(t, err)

		var r RangeFilter
		require.NoError(t, json.Unmarshal(data, &r), string(data))
		assert.Nil(t, r.Value)
		assert.NoError(t, r.Validate())

		out, err := json.Marshal(r)
		require.NoError(t, err)
		assert.JSONEq(t, string(data), string(out))
	}
}

func TestRangeFilterRejectsUnknownKeys(t *testing.T) {
	var r RangeFilter
	err := json.Unmarshal([]byte(`{"gt":1,"eq":2}`), &r)
	assert.ErrorIs(t, err, ErrInvalidParams)

	err = json.Unmarshal([]byte(`"yesterday"`), &r)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestRangeFilterExactValue(t *testing.T) {
	var r RangeFilter
	require.NoError(t, json.Unmarshal([]byte(`1577836800`), &r))
	require.NotNil(t, r.Value)
	assert.Equal(t, int64(1577836800), *r.Value)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, "1577836800", string(out))

	mixed := RangeFilter{Value: Int64(1), GT: Int64(0)}
	assert.ErrorIs(t, mixed.Validate(), ErrInvalidParams)
}

func TestRangeFilterMatch(t *testing.T) {
	tests := []struct {
		name   string
		filter *RangeFilter
		ts     int64
		want   bool
	}{
		{name: "nil_matches_all", filter: nil, ts: 5, want: true},
		{name: "exact_hit", filter: Exactly(5), ts: 5, want: true},
		{name: "exact_miss", filter: Exactly(5), ts: 6, want: false},
		{name: "gt_exclusive", filter: &RangeFilter{GT: Int64(5)}, ts: 5, want: false},
		{name: "gte_inclusive", filter: &RangeFilter{GTE: Int64(5)}, ts: 5, want: true},
		{name: "lt_exclusive", filter: &RangeFilter{LT: Int64(5)}, ts: 5, want: false},
		{name: "lte_inclusive", filter: &RangeFilter{LTE: Int64(5)}, ts: 5, want: true},
		{name: "window", filter: &RangeFilter{GT: Int64(1), LT: Int64(10)}, ts: 5, want: true},
		{name: "outside_window", filter: &RangeFilter{GT: Int64(1), LT: Int64(10)}, ts: 10, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.ts))
		})
	}
}

func TestParseRangeFilterAbsent(t *testing.T) {
	r, err := ParseRangeFilter(url.Values{"limit": {"3"}}, "created")
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = ParseRangeFilter(url.Values{"created[gt]": {"soon"}}, "created")
	assert.ErrorIs(t, err, ErrInvalidParams)
}
