package storage_test

import (
	"context"
	"os"
	"testing"

	"github.com/MereWhiplash/ikc-search/internal/storage"
)

// Without an Atlas vector index the store falls back to an exact scan,
// which is what a plain mongod exercises here.
func TestMongoDBStorage(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set, skipping MongoDB tests")
	}

	ctx := context.Background()
	store, err := storage.NewMongoDB(ctx, uri, "ikc_test", "ikc_kb_test")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer store.Close()

	exerciseStorage(t, store)
}
