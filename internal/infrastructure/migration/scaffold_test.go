package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spaces", "create field mappings", "create_field_mappings"},
		{"mixed case", "Create-Sync-Runs", "create_sync_runs"},
		{"repeated separators", "add__conflict--columns", "add_conflict_columns"},
		{"digits", "drop legacy v2 refs", "drop_legacy_v2_refs"},
		{"leading and trailing separators", "  trimmed  ", "trimmed"},
		{"punctuation dropped", "alter: sync_runs!", "alter_sync_runs"},
		{"empty", "", ""},
		{"only separators", "-- --", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slugify(tt.in))
		})
	}
}

func TestScaffold(t *testing.T) {
	dir := t.TempDir()

	p, err := Scaffold(dir, "create cross system references")
	require.NoError(t, err)

	assert.Len(t, p.Version, 14)
	assert.Equal(t, "create_cross_system_references", p.Slug)
	assert.Equal(t, filepath.Join(dir, p.Base()+".up.sql"), p.UpPath)
	assert.Equal(t, filepath.Join(dir, p.Base()+".down.sql"), p.DownPath)

	up, err := os.ReadFile(p.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "create cross system references")
	assert.Contains(t, string(up), "schema changes")

	down, err := os.ReadFile(p.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "revert create cross system references")
	assert.Contains(t, string(down), "rollback statements")
}

func TestScaffold_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db", "migrations")

	p, err := Scaffold(dir, "init")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.FileExists(t, p.UpPath)
	assert.FileExists(t, p.DownPath)
}

func TestScaffold_RejectsUnusableName(t *testing.T) {
	_, err := Scaffold(t.TempDir(), "!!!")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	dir := t.TempDir()

	files := []string{
		"20260105120100_create_sync_tables.up.sql",
		"20260105120100_create_sync_tables.down.sql",
		"20260105120000_create_field_mappings.up.sql",
		"20260105120000_create_field_mappings.down.sql",
		"20260105120200_create_bulk_tables.up.sql",
		"20260105120200_create_bulk_tables.down.sql",
		"notes.md",
		".gitkeep",
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- sql"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.up.sql"), 0o755))

	bases, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"20260105120000_create_field_mappings",
		"20260105120100_create_sync_tables",
		"20260105120200_create_bulk_tables",
	}, bases)
}

func TestList_MissingDirectory(t *testing.T) {
	bases, err := List(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, bases)
}
