package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"game-hunter/pkg/models"
)

type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLite opens the cache database. ":memory:" keeps the cache in process.
func NewSQLite(dbPath string, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS searches (
			source TEXT NOT NULL,
			query_key TEXT NOT NULL,
			data TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			PRIMARY KEY (source, query_key)
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached records for source/key. Expired rows are deleted on
// lookup.
func (c *SQLite) Get(ctx context.Context, source, key string) ([]models.PriceRecord, bool) {
	var data string
	var expiresAt int64

	err := c.db.QueryRowContext(ctx,
		`SELECT data, expires_at FROM searches WHERE source = ? AND query_key = ?`,
		source, key,
	).Scan(&data, &expiresAt)
	if err != nil {
		return nil, false
	}

	if c.now().UnixNano() >= expiresAt {
		if _, err := c.db.ExecContext(ctx,
			`DELETE FROM searches WHERE source = ? AND query_key = ?`, source, key,
		); err != nil {
			logrus.WithError(err).WithField("component", "cache").Warnf("Failed to evict %s/%s", source, key)
		}
		return nil, false
	}

	var records []models.PriceRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		logrus.WithError(err).WithField("component", "cache").Warnf("Failed to unmarshal %s/%s", source, key)
		return nil, false
	}

	return records, true
}

func (c *SQLite) Set(ctx context.Context, source, key string, records []models.PriceRecord) {
	data, err := json.Marshal(records)
	if err != nil {
		logrus.WithError(err).WithField("component", "cache").Warnf("Failed to marshal %s/%s", source, key)
		return
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO searches (source, query_key, data, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(source, query_key)
		 DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`,
		source, key, string(data), c.now().Add(c.ttl).UnixNano(),
	)
	if err != nil {
		logrus.WithError(err).WithField("component", "cache").Warnf("Failed to store %s/%s", source, key)
	}
}

func (c *SQLite) Close() error {
	return c.db.Close()
}
