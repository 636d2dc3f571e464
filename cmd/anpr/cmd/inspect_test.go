package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/anpr/internal/testutil"
)

func writeAsset(t *testing.T) string {
	t.Helper()
	a := testutil.Asset([]int64{1, 1, 320, 320}, []int64{1, 10, 5})
	path := filepath.Join(t.TempDir(), "detection.anpm")
	require.NoError(t, os.WriteFile(path, testutil.AssetBytes(a), 0o644))
	return path
}

func TestInspectCommand(t *testing.T) {
	path := writeAsset(t)

	out, err := execute(t, "inspect", path, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.Contains(t, out, "version:      1")
	assert.Contains(t, out, "[1 1 320 320]")
	assert.Contains(t, out, "[1 10 5]")
}

func TestInspectCommandJSON(t *testing.T) {
	path := writeAsset(t)

	out, err := execute(t, "inspect", path, "--format", "json")
	require.NoError(t, err)

	var h struct {
		Path        string  `json:"path"`
		Version     uint32  `json:"version"`
		InputShape  []int64 `json:"input_shape"`
		OutputShape []int64 `json:"output_shape"`
		GraphBytes  int     `json:"graph_bytes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	assert.Equal(t, path, h.Path)
	assert.Equal(t, uint32(1), h.Version)
	assert.Equal(t, []int64{1, 1, 320, 320}, h.InputShape)
	assert.Positive(t, h.GraphBytes)
}

func TestInspectCommandBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.anpm")
	require.NoError(t, os.WriteFile(path, []byte("not a model"), 0o644))

	_, err := execute(t, "inspect", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inspect")
}
