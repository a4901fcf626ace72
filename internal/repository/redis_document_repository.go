package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisDocumentRepository keeps each document in a hash {body, version}
type RedisDocumentRepository struct {
	rc     *redis.Client
	prefix string
}

// NewRedisDocumentRepository creates a document repository on redis.
// prefix namespaces the keys, e.g. "wander:".
func NewRedisDocumentRepository(rc *redis.Client, prefix string) *RedisDocumentRepository {
	return &RedisDocumentRepository{rc: rc, prefix: prefix}
}

func (r *RedisDocumentRepository) key(k string) string {
	return r.prefix + k
}

// Get reads a document
func (r *RedisDocumentRepository) Get(ctx context.Context, key string) (Document, error) {
	vals, err := r.rc.HMGet(ctx, r.key(key), "body", "version").Result()
	if err != nil {
		return Document{}, fmt.Errorf("failed to get document %s: %w: %w", key, ErrStoreUnavailable, err)
	}
	return decodeRedisDocument(key, vals)
}

func decodeRedisDocument(key string, vals []interface{}) (Document, error) {
	if len(vals) != 2 || vals[0] == nil {
		return Document{}, ErrNotFound
	}
	body, _ := vals[0].(string)
	var version int64
	if s, ok := vals[1].(string); ok {
		if _, err := fmt.Sscan(s, &version); err != nil {
			return Document{}, fmt.Errorf("failed to parse version of %s: %w", key, ErrCorrupt)
		}
	}
	return Document{Body: []byte(body), Version: version}, nil
}

// Exists checks whether a document has ever been created
func (r *RedisDocumentRepository) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rc.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check document %s: %w: %w", key, ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// Create stores the document unless the key already exists; the first writer wins
func (r *RedisDocumentRepository) Create(ctx context.Context, key string, body []byte) (bool, error) {
	k := r.key(key)
	created := false
	err := r.rc.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, k).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, k, "body", string(body), "version", 1)
			return nil
		})
		if err == nil {
			created = true
		}
		return err
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create document %s: %w: %w", key, ErrStoreUnavailable, err)
	}
	return created, nil
}

// Put writes the document with an optimistic version check
func (r *RedisDocumentRepository) Put(ctx context.Context, key string, body []byte, expectedVersion int64) (int64, error) {
	k := r.key(key)
	var newVersion int64
	err := r.rc.Watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.HMGet(ctx, k, "body", "version").Result()
		if err != nil {
			return err
		}
		current, err := decodeRedisDocument(key, vals)
		switch {
		case errors.Is(err, ErrNotFound):
			if expectedVersion != AnyVersion {
				return ErrVersionConflict
			}
		case err != nil:
			return err
		case expectedVersion != AnyVersion && current.Version != expectedVersion:
			return ErrVersionConflict
		}

		newVersion = current.Version + 1
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, k, "body", string(body), "version", newVersion)
			return nil
		})
		return err
	}, k)

	switch {
	case err == nil:
		return newVersion, nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, ErrVersionConflict):
		return 0, fmt.Errorf("failed to put document %s at version %d: %w", key, expectedVersion, ErrVersionConflict)
	case errors.Is(err, ErrCorrupt):
		return 0, err
	}
	return 0, fmt.Errorf("failed to put document %s: %w: %w", key, ErrStoreUnavailable, err)
}
