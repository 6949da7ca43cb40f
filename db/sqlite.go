package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"iq-spectrogram/utils"
)

type SQLiteClient struct {
	db *sql.DB
}

func NewSQLiteClient(dataSourceName string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error connecting to SQLite: %s", err)
	}

	// a single writer avoids "database is locked" under concurrent uploads
	db.SetMaxOpenConns(1)

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %s", err)
	}

	return &SQLiteClient{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	createBlobsTable := `
    CREATE TABLE IF NOT EXISTS blobs (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        size INTEGER NOT NULL,
        created_at INTEGER NOT NULL,
        data BLOB NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_blobs_created_at ON blobs (created_at);`

	_, err := db.Exec(createBlobsTable)
	return err
}

func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

func (c *SQLiteClient) Store(data []byte, name string) (string, error) {
	id := utils.ContentID(data)
	now := time.Now().UTC().UnixNano()

	_, err := c.db.Exec(
		`INSERT OR IGNORE INTO blobs (id, name, size, created_at, data) VALUES (?, ?, ?, ?, ?)`,
		id, name, len(data), now, data,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert blob: %v", err)
	}
	return id, nil
}

func (c *SQLiteClient) Fetch(id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	var data []byte
	err := c.db.QueryRow(`SELECT data FROM blobs WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *SQLiteClient) Stat(id string) (Blob, bool, error) {
	var (
		blob    Blob
		created int64
	)
	err := c.db.QueryRow(`SELECT id, name, size, created_at FROM blobs WHERE id = ?`, id).
		Scan(&blob.ID, &blob.Name, &blob.Size, &created)
	if err == sql.ErrNoRows {
		return Blob{}, false, nil
	}
	if err != nil {
		return Blob{}, false, err
	}
	blob.CreatedAt = time.Unix(0, created).UTC()
	return blob, true, nil
}

func (c *SQLiteClient) List() ([]Blob, error) {
	rows, err := c.db.Query(`SELECT id, name, size, created_at FROM blobs ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blobs []Blob
	for rows.Next() {
		var (
			blob    Blob
			created int64
		)
		if err := rows.Scan(&blob.ID, &blob.Name, &blob.Size, &created); err != nil {
			return nil, err
		}
		blob.CreatedAt = time.Unix(0, created).UTC()
		blobs = append(blobs, blob)
	}
	return blobs, rows.Err()
}

func (c *SQLiteClient) Delete(id string) error {
	res, err := c.db.Exec(`DELETE FROM blobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (c *SQLiteClient) DeleteAll() error {
	_, err := c.db.Exec(`DELETE FROM blobs`)
	return err
}
