package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"iq-spectrogram/utils"
)

var ErrNotFound = errors.New("blob not found")

// BlobStore persists uploaded recordings by content address.
type BlobStore interface {
	Close() error
	// Store saves data and returns its id. Storing the same bytes again
	// returns the same id and keeps the first name.
	Store(data []byte, name string) (string, error)
	Fetch(id string) ([]byte, error)
	Stat(id string) (Blob, bool, error)
	// List returns all blobs ordered by creation time, then id.
	List() ([]Blob, error)
	Delete(id string) error
	DeleteAll() error
}

type Blob struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewDBClient opens the backend named by DB_TYPE: fs (default), sqlite,
// mongo or postgres.
func NewDBClient() (BlobStore, error) {
	switch strings.ToLower(utils.GetEnv("DB_TYPE", "fs")) {
	case "fs", "file", "":
		return NewFSClient(utils.GetEnv("BLOB_DIR", "blobs"))

	case "sqlite":
		return NewSQLiteClient(utils.GetEnv("SQLITE_PATH", "db.sqlite3"))

	case "mongo", "mongodb":
		uri := utils.GetEnv("MONGO_URI", "mongodb://localhost:27017")
		return NewMongoClient(uri, utils.GetEnv("MONGO_DB", "iq-spectrogram"))

	case "postgres", "postgresql":
		var (
			dbUser  = utils.GetEnv("DB_USER", "postgres")
			dbPass  = utils.GetEnv("DB_PASS", "")
			dbHost  = utils.GetEnv("DB_HOST", "localhost")
			dbPort  = utils.GetEnv("DB_PORT", "5432")
			dbName  = utils.GetEnv("DB_NAME", "postgres")
			sslMode = utils.GetEnv("DB_SSLMODE", "disable")
		)
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPass, dbHost, dbPort, dbName, sslMode)
		return NewPostgresClient(dsn)

	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", utils.GetEnv("DB_TYPE"))
	}
}

func checkID(id string) error {
	if !utils.IsContentID(id) {
		return fmt.Errorf("%w: %q is not a blob id", ErrNotFound, id)
	}
	return nil
}
