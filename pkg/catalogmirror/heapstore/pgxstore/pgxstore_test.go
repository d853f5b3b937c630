//go:build integration

package pgxstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/rimdb/rim/pkg/catalogmirror/heapstore/pgxstore"
)

// TestStatsReader_Integration exercises StatsReader against a real
// Postgres instance. Set RIM_POSTGRES_DSN to run it; skipped otherwise,
// the way the teacher's s3 integration test honors LOCALSTACK_ENDPOINT.
func TestStatsReader_Integration(t *testing.T) {
	dsn := os.Getenv("RIM_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RIM_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	reader, err := pgxstore.Open(ctx, dsn, 2)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reader.Close()

	if _, err := reader.ClassRowCount(ctx, "pg_class"); err != nil {
		t.Fatalf("class row count: %v", err)
	}
	if _, err := reader.PageFanout(ctx, "pg_class"); err != nil {
		t.Fatalf("page fanout: %v", err)
	}
	if _, err := reader.IndexCardinality(ctx, "pg_class", "relname"); err != nil {
		t.Fatalf("index cardinality: %v", err)
	}
}
