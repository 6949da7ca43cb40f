package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
)

// GetEnv returns the value of key, or the first fallback when it is unset or empty.
func GetEnv(key string, fallback ...string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return ""
}

// GetEnvInt is GetEnv for integer settings. An unparsable value yields the fallback.
func GetEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(GetEnv(key))
	if err != nil {
		return fallback
	}
	return v
}

// GetEnvFloat is GetEnv for float settings. An unparsable value yields the fallback.
func GetEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(GetEnv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func CreateFolder(folderPath string) error {
	return os.MkdirAll(folderPath, 0o755)
}

func DeleteFile(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return os.Remove(filePath)
	}
	return nil
}

// MoveFile renames src to dst, falling back to copy+remove when the two
// paths live on different filesystems.
func MoveFile(sourcePath, destinationPath string) error {
	if err := os.Rename(sourcePath, destinationPath); err == nil {
		return nil
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %v", err)
	}
	defer src.Close()

	dst, err := os.Create(destinationPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %v", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy file: %v", err)
	}

	src.Close()
	return os.Remove(sourcePath)
}

// ContentID is the content address of data: lowercase hex SHA-256.
func ContentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsContentID reports whether id looks like a ContentID.
func IsContentID(id string) bool {
	if len(id) != sha256.Size*2 {
		return false
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func FormatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
