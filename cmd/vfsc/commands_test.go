package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestDryRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"company_name":"Acme Ltd","company_number":"123","directors":{"current":[{"name":"Jane Doe"}]}},
		{"company_name":"Beta Ltd"}
	]`), 0o600))

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"ingest", "--dry-run", "--env-file", filepath.Join(dir, "missing.env"), path})
	require.NoError(t, root.Execute())

	var report struct {
		Summary struct {
			Status    string `json:"status"`
			Processed int    `json:"processed"`
			Applied   int    `json:"applied"`
			Failed    int    `json:"failed"`
		} `json:"summary"`
		Stats struct {
			Companies int64 `json:"companies"`
			Directors int64 `json:"directors"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "failed", report.Summary.Status)
	assert.Equal(t, 1, report.Summary.Processed)
	assert.Equal(t, 1, report.Summary.Applied)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, int64(1), report.Stats.Companies)
	assert.Equal(t, int64(1), report.Stats.Directors)
}

func TestIngestRequiresFile(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"ingest"})
	assert.Error(t, root.Execute())
}

func TestSessionsCommandFlags(t *testing.T) {
	cmd, _, err := newRootCommand().Find([]string{"sessions"})
	require.NoError(t, err)
	assert.Equal(t, "sessions", cmd.Name())

	limit := cmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "10", limit.DefValue)
}
