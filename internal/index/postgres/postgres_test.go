package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/nedindex/internal/index"
	"github.com/scrypster/nedindex/pkg/types"
)

// testDSN returns the integration database or skips the test.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set; skipping PostgreSQL integration tests")
	}
	return dsn
}

func testTable(t *testing.T) string {
	return fmt.Sprintf("nedindex_test_%d", time.Now().UnixNano())
}

func TestOpen_RejectsBadTableName(t *testing.T) {
	_, err := Open(context.Background(), "postgres://unused", "candidates; DROP TABLE x")
	assert.ErrorIs(t, err, index.ErrInvalidIndexPath)
}

func TestTSQuery(t *testing.T) {
	assert.Equal(t, "'apple' | 'inc'", tsQuery([]string{"apple", "inc"}))
}

func TestBuildAndSearch(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()
	table := testTable(t)

	w, err := Open(ctx, dsn, table)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = w.DropForTest(context.Background())
		_ = w.Close()
	})

	_, err = w.Search(ctx, index.FieldAliases, "AAPL", 5)
	assert.ErrorIs(t, err, index.ErrNotFinalized)

	require.NoError(t, w.AddDocument(ctx, types.EntityRecord{
		Name: "Apple Inc.", Aliases: "Apple, AAPL, ", Context: "Steve Jobs, iPhone, ",
	}))
	require.NoError(t, w.AddDocument(ctx, types.EntityRecord{
		Name: "Banana Republic", Aliases: "Banana Republic, ", Context: "Gap Inc, ",
	}))
	require.NoError(t, w.Finalize(ctx))
	assert.ErrorIs(t, w.Finalize(ctx), index.ErrFinalized)

	got, err := w.Search(ctx, index.FieldAliases, "AAPL", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple Inc."}, types.Names(got))

	got, err = w.Search(ctx, index.FieldContext, "iphone", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple Inc."}, types.Names(got))

	got, err = w.Search(ctx, index.FieldAliases, "doesnotexist", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = w.Search(ctx, index.FieldAliases, `"broken`, 5)
	assert.ErrorIs(t, err, index.ErrQuerySyntax)

	r, err := OpenExisting(ctx, dsn, table)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, w.BuildID(), r.BuildID())
	assert.Equal(t, 2, r.Count())
}

func TestOpenExisting_Missing(t *testing.T) {
	dsn := testDSN(t)

	_, err := OpenExisting(context.Background(), dsn, testTable(t))
	assert.ErrorIs(t, err, index.ErrInvalidIndexPath)
}
