package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
}

func TestJSONB_ValueAndScan(t *testing.T) {
	in := NewJSONB(&payload{Name: "Acme Ltd", Count: 2})

	value, err := in.Value()
	require.NoError(t, err)

	var out JSONB[*payload]
	require.NoError(t, out.Scan(value))
	assert.Equal(t, in.Data, out.GetValue())
}

func TestJSONB_NilPointerIsNull(t *testing.T) {
	value, err := NewJSONB[*payload](nil).Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	out := NewJSONB(&payload{Name: "stale"})
	require.NoError(t, out.Scan(nil))
	assert.Nil(t, out.Data)
}

func TestJSONB_ScanRejectsUnknownTypes(t *testing.T) {
	var out JSONB[*payload]
	assert.Error(t, out.Scan(42))
}
