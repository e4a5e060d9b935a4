package repository

import (
	"context"
	"reflect"
	"testing"

	"lingofocus/internal/database"
)

func newTestRepo(t *testing.T) *KVRepository {
	t.Helper()
	db, err := database.Initialize(database.MemoryPath)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return NewKVRepository(db)
}

func TestKVRepositoryGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	value, ok, err := repo.Get(context.Background(), "lingofocus_sets")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok || value != "" {
		t.Errorf("Get() = %q, %v; want empty, false", value, ok)
	}
}

func TestKVRepositorySetManyAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.SetMany(ctx, map[string]string{
		"lingofocus_sets":          "[]",
		"lingofocus_review_counts": `{"a":1}`,
	})
	if err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}
	if err := repo.SetMany(ctx, map[string]string{"lingofocus_review_counts": `{"a":2}`}); err != nil {
		t.Fatalf("SetMany() overwrite error = %v", err)
	}

	value, ok, err := repo.Get(ctx, "lingofocus_review_counts")
	if err != nil || !ok {
		t.Fatalf("Get() = %q, %v, %v", value, ok, err)
	}
	if value != `{"a":2}` {
		t.Errorf("Get() = %s, want overwritten value", value)
	}

	keys, err := repo.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if want := []string{"lingofocus_review_counts", "lingofocus_sets"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}

	if err := repo.Delete(ctx, "lingofocus_sets", "never_written"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := repo.Get(ctx, "lingofocus_sets"); ok {
		t.Error("deleted key still present")
	}
	if _, ok, _ := repo.Get(ctx, "lingofocus_review_counts"); !ok {
		t.Error("untouched key was deleted")
	}
}

func TestUpsertOutsideTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	query := repo.db.Dialect.RewriteQuery(repo.db.Dialect.UpsertKVQuery())
	entries := map[string]string{"lingofocus_settings": `{"revealDelaySeconds":3}`}
	if err := upsert(ctx, repo.db, query, []string{"lingofocus_settings"}, entries); err != nil {
		t.Fatalf("upsert() error = %v", err)
	}

	value, ok, err := repo.Get(ctx, "lingofocus_settings")
	if err != nil || !ok {
		t.Fatalf("Get() = %q, %v, %v", value, ok, err)
	}
	if value != entries["lingofocus_settings"] {
		t.Errorf("Get() = %s, want %s", value, entries["lingofocus_settings"])
	}
}
