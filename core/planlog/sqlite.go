package planlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists plan records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS plan_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	plan_id TEXT NOT NULL,
	ts INTEGER NOT NULL,
	strategy TEXT NOT NULL,
	record TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS plan_items (
	plan_id TEXT NOT NULL,
	bin_index INTEGER NOT NULL,
	item_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS plan_items_item ON plan_items(item_id);`

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append stores rec and indexes its item IDs in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) (err error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO plan_logs (plan_id, ts, strategy, record) VALUES (?, ?, ?, ?)`,
		rec.PlanID, rec.Timestamp.UnixNano(), rec.Strategy.String(), string(b)); err != nil {
		return err
	}
	for bin, ids := range rec.Routes {
		for _, id := range ids {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO plan_items (plan_id, bin_index, item_id) VALUES (?, ?, ?)`,
				rec.PlanID, bin, id); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// Query returns the matching records ordered by time.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var args []any
	query := `SELECT record FROM plan_logs WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.Strategy != "" {
		query += ` AND strategy = ?`
		args = append(args, q.Strategy.String())
	}
	if q.PlanID != "" {
		query += ` AND plan_id = ?`
		args = append(args, q.PlanID)
	}
	if q.ItemID != "" {
		query += ` AND plan_id IN (SELECT plan_id FROM plan_items WHERE item_id = ?)`
		args = append(args, q.ItemID)
	}
	query += ` ORDER BY ts, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
