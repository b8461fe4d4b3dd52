package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/babylog/internal/store"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestImportThenExport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "babylog.db")
	legacy := filepath.Join(dir, "baby_data.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`[
		{"type": "note", "note": "home from hospital", "timestamp": "2024-05-01T12:00:00"},
		{"type": "growth", "subtype": "measurement", "value": 3.4, "timestamp": "2024-05-01T11:00:00"}
	]`), 0o600))

	out := run(t, "import", legacy, "--db", db)
	require.Contains(t, out, "Imported 2 events")

	exported := filepath.Join(dir, "export.json")
	run(t, "export", "--db", db, "-o", exported)

	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	var doc struct {
		Events []store.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Events, 2)
	require.Equal(t, store.EventGrowth, doc.Events[0].Type)
	require.Equal(t, "home from hospital", *doc.Events[1].Note)
}

func TestImportRequiresFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"import"})
	cmd.SetOut(&bytes.Buffer{})
	require.Error(t, cmd.Execute())
}
