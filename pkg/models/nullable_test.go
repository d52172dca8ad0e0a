package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nullableHolder struct {
	Email Nullable[string] `json:"email,omitzero"`
}

func TestNullableStates(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		absent  bool
		null    bool
		value   string
		encoded string
	}{
		{name: "absent", input: `{}`, absent: true, encoded: `{}`},
		{name: "null", input: `{"email":null}`, null: true, encoded: `{"email":null}`},
		{name: "value", input: `{"email":"a@b.co"}`, value: "a@b.co", encoded: `{"email":"a@b.co"}`},
		{name: "empty_value", input: `{"email":""}`, encoded: `{"email":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h nullableHolder
			require.NoError(t, json.Unmarshal([]byte(tt.input), &h))

			assert.Equal(t, tt.absent, h.Email.IsZero())
			assert.Equal(t, tt.null, h.Email.IsNull())
			assert.Equal(t, !tt.absent && !tt.null, h.Email.IsSet())
			assert.Equal(t, tt.value, h.Email.OrZero())

			out, err := json.Marshal(h)
			require.NoError(t, err)
			assert.JSONEq(t, tt.encoded, string(out))
		})
	}
}

func TestNullableConstructors(t *testing.T) {
	out, err := json.Marshal(nullableHolder{Email: Null[string]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":null}`, string(out))

	out, err = json.Marshal(nullableHolder{Email: NullableOf("x@y.z")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"x@y.z"}`, string(out))
}

func TestExpandableForms(t *testing.T) {
	var id Expandable
	require.NoError(t, json.Unmarshal([]byte(`"ch_123"`), &id))
	assert.Equal(t, "ch_123", id.ID)
	assert.False(t, id.IsExpanded())
	assert.Error(t, id.Decode(&struct{}{}))

	out, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"ch_123"`, string(out))

	var obj Expandable
	require.NoError(t, json.Unmarshal([]byte(`{"id":"ch_123","object":"charge","paid":true}`), &obj))
	assert.Equal(t, "ch_123", obj.ID)
	assert.True(t, obj.IsExpanded())

	out, err = json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"ch_123","object":"charge","paid":true}`, string(out))
}
