package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahearne/cellring/internal/starred"
)

func TestStarToggleListRemove(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cellring.db")

	out, err := execute(t, "star", "toggle", "--db", db, "?r=30&w=8&s=gQ")
	require.NoError(t, err)
	assert.Equal(t, "starred ?r=30&w=8&g=100&d=10&s=gQ\n", out)

	out, err = execute(t, "star", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "rule 30")
	assert.Contains(t, out, "?r=30&w=8&g=100&d=10&s=gQ")

	// A second toggle of the same configuration unstars it, even when
	// the search string is spelled differently.
	out, err = execute(t, "star", "toggle", "--db", db, "?w=8&r=30&s=gQ")
	require.NoError(t, err)
	assert.Equal(t, "unstarred ?r=30&w=8&g=100&d=10&s=gQ\n", out)

	out, err = execute(t, "star", "list", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "no starred configurations\n", out)
}

func TestStarListJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cellring.db")

	_, err := execute(t, "star", "toggle", "--db", db, "?r=110&w=16&s=AAE")
	require.NoError(t, err)

	out, err := execute(t, "--format", "json", "star", "list", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   []starred.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 110, resp.Data[0].Rule)
	assert.Equal(t, resp.Data[0].Search, resp.Data[0].ID)
}

func TestStarRemove(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cellring.db")

	_, err := execute(t, "star", "toggle", "--db", db, "?r=30&w=8&s=gQ")
	require.NoError(t, err)

	out, err := execute(t, "star", "remove", "--db", db, "?r=30&w=8&g=100&d=10&s=gQ")
	require.NoError(t, err)
	assert.Equal(t, "removed ?r=30&w=8&g=100&d=10&s=gQ\n", out)

	out, err = execute(t, "star", "list", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "no starred configurations\n", out)
}

func TestStarToggleRejectsUnrecognizedSearch(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cellring.db")

	_, err := execute(t, "star", "toggle", "--db", db, "?utm_source=feed")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
