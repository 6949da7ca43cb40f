package db

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"iq-spectrogram/utils"
)

const (
	dataExt = ".iq"
	metaExt = ".json"
)

// FSClient keeps each blob as <id>.iq next to an <id>.json metadata file.
type FSClient struct {
	dir string
	mu  sync.Mutex
}

func NewFSClient(dir string) (*FSClient, error) {
	if err := utils.CreateFolder(dir); err != nil {
		return nil, fmt.Errorf("error creating blob dir: %v", err)
	}
	return &FSClient{dir: dir}, nil
}

func (c *FSClient) Close() error {
	return nil
}

func (c *FSClient) dataPath(id string) string {
	return filepath.Join(c.dir, id+dataExt)
}

func (c *FSClient) metaPath(id string) string {
	return filepath.Join(c.dir, id+metaExt)
}

func (c *FSClient) Store(data []byte, name string) (string, error) {
	id := utils.ContentID(data)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.metaPath(id)); err == nil {
		return id, nil
	}

	blob := Blob{ID: id, Name: name, Size: int64(len(data)), CreatedAt: time.Now().UTC()}
	meta, err := json.Marshal(blob)
	if err != nil {
		return "", err
	}

	// write data first so a metadata file always points at complete bytes
	if err := writeAtomic(c.dataPath(id), data); err != nil {
		return "", fmt.Errorf("failed to write blob: %v", err)
	}
	if err := writeAtomic(c.metaPath(id), meta); err != nil {
		os.Remove(c.dataPath(id))
		return "", fmt.Errorf("failed to write blob metadata: %v", err)
	}

	return id, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "tmp_*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return utils.MoveFile(tmpPath, path)
}

func (c *FSClient) Fetch(id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if _, ok, err := c.Stat(id); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	data, err := os.ReadFile(c.dataPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %v", id, err)
	}
	return data, nil
}

func (c *FSClient) Stat(id string) (Blob, bool, error) {
	if !utils.IsContentID(id) {
		return Blob{}, false, nil
	}

	raw, err := os.ReadFile(c.metaPath(id))
	if os.IsNotExist(err) {
		return Blob{}, false, nil
	}
	if err != nil {
		return Blob{}, false, err
	}

	var blob Blob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return Blob{}, false, fmt.Errorf("corrupt metadata for %s: %v", id, err)
	}
	return blob, true, nil
}

func (c *FSClient) List() ([]Blob, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}

	blobs := make([]Blob, 0, len(entries)/2)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metaExt) {
			continue
		}
		blob, ok, err := c.Stat(strings.TrimSuffix(e.Name(), metaExt))
		if err != nil {
			return nil, err
		}
		if ok {
			blobs = append(blobs, blob)
		}
	}

	sortBlobs(blobs)
	return blobs, nil
}

func (c *FSClient) Delete(id string) error {
	if err := checkID(id); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.metaPath(id)); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := utils.DeleteFile(c.metaPath(id)); err != nil {
		return err
	}
	return utils.DeleteFile(c.dataPath(id))
}

func (c *FSClient) DeleteAll() error {
	blobs, err := c.List()
	if err != nil {
		return err
	}
	for _, b := range blobs {
		if err := c.Delete(b.ID); err != nil {
			return err
		}
	}
	return nil
}

func sortBlobs(blobs []Blob) {
	sort.Slice(blobs, func(i, j int) bool {
		if !blobs[i].CreatedAt.Equal(blobs[j].CreatedAt) {
			return blobs[i].CreatedAt.Before(blobs[j].CreatedAt)
		}
		return blobs[i].ID < blobs[j].ID
	})
}
