package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, source Source) []string {
	t.Helper()
	var out []string
	for {
		item, err := source.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, string(item))
	}
}

func TestReaderSource_Formats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "json array",
			input: "  [\n{\"a\":1},\n{\"b\":2}\n]",
			want:  []string{`{"a":1}`, `{"b":2}`},
		},
		{
			name:  "json lines with blanks",
			input: "{\"a\":1}\n\n  {\"b\":2}  \n",
			want:  []string{`{"a":1}`, `{"b":2}`},
		},
		{
			name:  "malformed line is passed through",
			input: "{\"a\":1}\n{oops\n",
			want:  []string{`{"a":1}`, `{oops`},
		},
		{
			name:  "empty array",
			input: "[]",
		},
		{
			name:  "empty input",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := drain(t, NewReaderSource(strings.NewReader(tt.input)))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReaderSource_MalformedArray(t *testing.T) {
	source := NewReaderSource(strings.NewReader(`[{"a":1}, {"b": ]`))

	first, err := source.Next(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(first))

	_, err = source.Next(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF))
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n{\"b\":2}\n"), 0o600))

	source, err := OpenFile(path)
	require.NoError(t, err)
	defer source.Close()

	assert.Len(t, drain(t, source), 2)

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
