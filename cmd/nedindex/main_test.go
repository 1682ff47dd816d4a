package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/nedindex/internal/graph/graphtest"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"NEDINDEX_CONFIG", "NEDINDEX_FILE", "NEDINDEX_INDEX_PATH", "NEDINDEX_INDEX_ENGINE", "NEDINDEX_CONTEXT_FIELD"} {
		t.Setenv(key, "")
	}
}

func TestBuildThenQuery(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	graphFile := filepath.Join(dir, "companies.nt")
	indexDir := filepath.Join(dir, "index")
	require.NoError(t, os.WriteFile(graphFile, []byte(graphtest.NTriples()), 0o600))

	out, err := run(t, "build", "--file", graphFile, "--index-dir", indexDir, "--concurrency", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 3 of 3 entities")

	out, err = run(t, "query", "--index-dir", indexDir, "--token", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.\n", out)

	out, err = run(t, "query", "--index-dir", indexDir, "--context", "MSFT and AAPL", "-k", "1", "--scores")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
	assert.Contains(t, out, "\t")

	out, err = run(t, "query", "--index-dir", indexDir, "--token", "doesnotexist")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestQuery_RequiresExactlyOneLookup(t *testing.T) {
	isolateEnv(t)

	_, err := run(t, "query", "--index-dir", t.TempDir())
	assert.Error(t, err)

	_, err = run(t, "query", "--index-dir", t.TempDir(), "--token", "a", "--context", "b")
	assert.Error(t, err)
}

func TestQuery_MissingIndex(t *testing.T) {
	isolateEnv(t)

	_, err := run(t, "query", "--index-dir", filepath.Join(t.TempDir(), "none"), "--token", "AAPL")
	assert.Error(t, err)
}

func TestBuild_MissingFile(t *testing.T) {
	isolateEnv(t)

	_, err := run(t, "build", "--file", filepath.Join(t.TempDir(), "none.nt"), "--index-dir", t.TempDir())
	assert.Error(t, err)
}
