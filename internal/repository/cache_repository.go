package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"
)

// SchemaVersion tags every cache entry. Entries written by an older
// client shape read back as absent instead of causing a decode fault.
const SchemaVersion = 2

// CacheRepository is the durable client-local key/value store with a
// per-entry TTL. It survives page reloads and serves as the fallback
// when the backend is unreachable; it is never the authority.
type CacheRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewCacheRepository(db *sql.DB, logger *zap.Logger) (*CacheRepository, error) {
	r := &CacheRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
	if err := r.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate cache schema: %w", err)
	}
	return r, nil
}

func (r *CacheRepository) migrate() error {
	_, err := r.db.Exec(`
CREATE TABLE IF NOT EXISTS cache_entries (
  key TEXT PRIMARY KEY,
  schema_version INTEGER NOT NULL,
  payload TEXT NOT NULL,
  written_at INTEGER NOT NULL,
  ttl_seconds INTEGER NOT NULL
);
`)
	return err
}

// Put stores a payload under key with the given TTL. The write replaces
// any previous entry atomically, so readers never observe a partial entry.
func (r *CacheRepository) Put(ctx context.Context, key string, payload any, ttl time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode cache payload: %w", err)
	}

	query := squirrel.Replace("cache_entries").
		Columns("key", "schema_version", "payload", "written_at", "ttl_seconds").
		Values(key, SchemaVersion, string(data), r.now().Unix(), int64(ttl.Seconds()))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// Get loads the payload stored under key into out. It returns false when
// the key is missing, expired, or carries a stale schema version.
// Expired entries are left in place; replacement happens on the next Put.
func (r *CacheRepository) Get(ctx context.Context, key string, out any) (bool, error) {
	query := squirrel.Select("schema_version", "payload", "written_at", "ttl_seconds").
		From("cache_entries").
		Where(squirrel.Eq{"key": key})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	var (
		version    int
		payload    string
		writtenAt  int64
		ttlSeconds int64
	)
	err = r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&version, &payload, &writtenAt, &ttlSeconds)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if version != SchemaVersion {
		r.logger.Warn("Cache entry has stale schema, treating as absent",
			zap.String("key", key),
			zap.Int("entry_version", version),
			zap.Int("schema_version", SchemaVersion),
		)
		return false, nil
	}

	age := r.now().Unix() - writtenAt
	if age >= ttlSeconds {
		return false, nil
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		r.logger.Warn("Cache entry failed to decode, treating as absent",
			zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// Delete removes an entry. Used when a snapshot is known to be wrong,
// not for routine expiry (expiry is lazy).
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	query := squirrel.Delete("cache_entries").Where(squirrel.Eq{"key": key})
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// SnapshotKey builds the cache key for a user's recommendation snapshot.
// batchID is empty for the "latest" view.
func SnapshotKey(userID, batchID string) string {
	if batchID == "" {
		batchID = "latest"
	}
	return fmt.Sprintf("recommendations:%s:%s", userID, batchID)
}
