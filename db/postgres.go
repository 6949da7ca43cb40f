package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"iq-spectrogram/utils"
)

type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient connects through the pgx database/sql driver.
func NewPostgresClient(dsn string) (*PostgresClient, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to postgres: %w", err)
	}

	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

func createPostgresTables(db *sql.DB) error {
	createBlobsTable := `
    CREATE TABLE IF NOT EXISTS blobs (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        size BIGINT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL,
        data BYTEA NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_blobs_created_at ON blobs (created_at);`

	if _, err := db.Exec(createBlobsTable); err != nil {
		return fmt.Errorf("creating blobs table: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	return c.db.Close()
}

func (c *PostgresClient) Store(data []byte, name string) (string, error) {
	id := utils.ContentID(data)

	_, err := c.db.Exec(
		`INSERT INTO blobs (id, name, size, created_at, data) VALUES ($1, $2, $3, $4, $5)
         ON CONFLICT (id) DO NOTHING`,
		id, name, int64(len(data)), time.Now().UTC(), data,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert blob: %w", err)
	}
	return id, nil
}

func (c *PostgresClient) Fetch(id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	var data []byte
	err := c.db.QueryRow(`SELECT data FROM blobs WHERE id = $1`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *PostgresClient) Stat(id string) (Blob, bool, error) {
	var blob Blob
	err := c.db.QueryRow(`SELECT id, name, size, created_at FROM blobs WHERE id = $1`, id).
		Scan(&blob.ID, &blob.Name, &blob.Size, &blob.CreatedAt)
	if err == sql.ErrNoRows {
		return Blob{}, false, nil
	}
	if err != nil {
		return Blob{}, false, err
	}
	blob.CreatedAt = blob.CreatedAt.UTC()
	return blob, true, nil
}

func (c *PostgresClient) List() ([]Blob, error) {
	rows, err := c.db.Query(`SELECT id, name, size, created_at FROM blobs ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blobs []Blob
	for rows.Next() {
		var blob Blob
		if err := rows.Scan(&blob.ID, &blob.Name, &blob.Size, &blob.CreatedAt); err != nil {
			return nil, err
		}
		blob.CreatedAt = blob.CreatedAt.UTC()
		blobs = append(blobs, blob)
	}
	return blobs, rows.Err()
}

func (c *PostgresClient) Delete(id string) error {
	res, err := c.db.Exec(`DELETE FROM blobs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (c *PostgresClient) DeleteAll() error {
	_, err := c.db.Exec(`TRUNCATE TABLE blobs`)
	return err
}
