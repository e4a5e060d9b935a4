package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"lingofocus/internal/database"
)

// KVRepository stores whole JSON documents under string keys
type KVRepository struct {
	db *database.DB
}

func NewKVRepository(db *database.DB) *KVRepository {
	return &KVRepository{db: db}
}

// Get retrieves a value by key; ok is false when the key has never been written
func (r *KVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	query := r.db.Dialect.RewriteQuery(`SELECT store_value FROM kv_store WHERE store_key = ?`)
	err := r.db.GetContext(ctx, &value, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// SetMany upserts every entry in one transaction
func (r *KVRepository) SetMany(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	query := r.db.Dialect.RewriteQuery(r.db.Dialect.UpsertKVQuery())
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return upsert(ctx, tx, query, keys, entries)
	})
}

// upsert writes entries in key order through q, which may be the pool or a
// transaction
func upsert(ctx context.Context, q database.DBTX, query string, keys []string, entries map[string]string) error {
	for _, k := range keys {
		if _, err := q.ExecContext(ctx, query, k, entries[k]); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

// Delete removes the given keys; missing keys are ignored
func (r *KVRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM kv_store WHERE store_key IN (?)`, keys)
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Dialect.RewriteQuery(query), args...); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

// Keys lists every stored key in order
func (r *KVRepository) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, `SELECT store_key FROM kv_store ORDER BY store_key`); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}
