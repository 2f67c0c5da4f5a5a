package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs one entityctl invocation against a shared in-memory store.
func execute(t *testing.T, a *app, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(a)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--database-url", "memory", "--storage-url", "memory://"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	a := newApp()
	t.Cleanup(a.Close)
	return a
}

func TestTermCommands(t *testing.T) {
	a := newTestApp(t)

	out, stderr, err := execute(t, a, "vocabulary", "create", "tags", "Tags")
	require.NoError(t, err)
	assert.Equal(t, "tags\n", out)
	assert.Contains(t, stderr, "Created vocabulary Tags.")

	out, stderr, err = execute(t, a, "term", "resolve", "tags", "go")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	assert.Len(t, id, 36)
	assert.Contains(t, stderr, "Created new term go.")

	out, stderr, err = execute(t, a, "term", "resolve", "tags", "go")
	require.NoError(t, err)
	assert.Equal(t, id, strings.TrimSpace(out))
	assert.Empty(t, stderr)

	out, _, err = execute(t, a, "term", "id", "tags", "go")
	require.NoError(t, err)
	assert.Equal(t, id, strings.TrimSpace(out))

	out, _, err = execute(t, a, "term", "name", id)
	require.NoError(t, err)
	assert.Equal(t, "go\n", out)

	_, _, err = execute(t, a, "term", "create", "tags", "go")
	assert.Error(t, err)

	_, _, err = execute(t, a, "term", "create", "tags", "rust", "--weight", "2")
	require.NoError(t, err)

	out, _, err = execute(t, a, "term", "list", "tags")
	require.NoError(t, err)
	assert.Contains(t, out, "go")
	assert.Contains(t, out, "rust")

	out, _, err = execute(t, a, "term", "delete", "tags", "go")
	require.NoError(t, err)
	assert.Equal(t, "Deleted term go.\n", out)

	out, _, err = execute(t, a, "term", "delete", "tags", "go")
	require.NoError(t, err)
	assert.Equal(t, "No term named go.\n", out)

	_, _, err = execute(t, a, "term", "id", "tags", "go")
	assert.Error(t, err)

	_, _, err = execute(t, a, "term", "name", "not-a-uuid")
	assert.Error(t, err)
}

func TestFieldAndNodeCommands(t *testing.T) {
	a := newTestApp(t)

	_, stderr, err := execute(t, a, "field", "add", "article", "field_subtitle", "--label", "Subtitle")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Added field Subtitle to article.")

	_, _, err = execute(t, a, "field", "add", "article", "field_count", "--type", "integer")
	require.NoError(t, err)

	_, _, err = execute(t, a, "field", "add", "article", "field_bad", "--type", "float")
	assert.Error(t, err)

	out, _, err := execute(t, a, "field", "require", "article", "field_subtitle")
	require.NoError(t, err)
	assert.Equal(t, "article.field_subtitle required=true\n", out)

	out, _, err = execute(t, a, "field", "list", "article")
	require.NoError(t, err)
	assert.Contains(t, out, "field_subtitle")
	assert.Contains(t, out, "field_count")

	out, _, err = execute(t, a, "node", "create", "--bundle", "article", "--title", "First")
	require.NoError(t, err)
	first := strings.TrimSpace(out)
	out, _, err = execute(t, a, "node", "create", "--bundle", "article", "--title", "Second")
	require.NoError(t, err)
	second := strings.TrimSpace(out)

	out, _, err = execute(t, a, "node", "update", "--id", first+","+second, "--set", "field_subtitle=Hello", "--set", "field_count=3")
	require.NoError(t, err)
	assert.Equal(t, "Updated 2 of 2 node(s).\n", out)

	out, stderr, err = execute(t, a, "node", "update", "--id", first, "--set", "field_missing=x")
	require.NoError(t, err)
	assert.Equal(t, "Updated 0 of 1 node(s).\n", out)
	assert.Contains(t, stderr, "error: Failed to update node "+first+".")

	_, _, err = execute(t, a, "node", "update", "--id", "nope", "--set", "title=x")
	assert.Error(t, err)

	_, stderr, err = execute(t, a, "field", "remove", "article", "field_count")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Removed field field_count from article.")
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]interface{}
		wantErr bool
	}{
		{"string", []string{"title=Hello"}, map[string]interface{}{"title": "Hello"}, false},
		{"number", []string{"field_count=3"}, map[string]interface{}{"field_count": float64(3)}, false},
		{"bool", []string{"status=true"}, map[string]interface{}{"status": true}, false},
		{"list", []string{`field_tags=["a","b"]`}, map[string]interface{}{"field_tags": []interface{}{"a", "b"}}, false},
		{"empty value", []string{"title="}, map[string]interface{}{"title": ""}, false},
		{"value with equals", []string{"title=a=b"}, map[string]interface{}{"title": "a=b"}, false},
		{"missing equals", []string{"title"}, nil, true},
		{"missing name", []string{"=x"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvironmentSettings(t *testing.T) {
	t.Setenv("ENTITY_DATABASE_URL", "memory")
	t.Setenv("ENTITY_STORAGE_URL", "memory://")
	t.Setenv("ENTITY_VERBOSE", "true")

	a := newTestApp(t)
	cmd := NewRootCommand(a)
	cmd.SetArgs([]string{"vocabulary", "list"})
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "memory", a.v.GetString("database-url"))
	assert.True(t, a.v.GetBool("verbose"))
	assert.Contains(t, stdout.String(), "ID")
}

func TestRunExitCode(t *testing.T) {
	dbURL := "sqlite://" + filepath.Join(t.TempDir(), "entity.db")
	storageURL := "file://" + filepath.Join(t.TempDir(), "config")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "success", args: []string{"vocabulary", "create", "tags", "Tags"}, want: 0},
		{name: "failure", args: []string{"term", "id", "missing", "go"}, want: 1},
		{name: "unknown command", args: []string{"bogus"}, want: 1},
	}

	args := os.Args
	t.Cleanup(func() { os.Args = args })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = append([]string{"entityctl", "--database-url", dbURL, "--storage-url", storageURL}, tt.args...)
			assert.Equal(t, tt.want, run())
		})
	}
}
