package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"iq-spectrogram/utils"
)

const bucketName = "blobs"

// MongoClient stores blobs in a GridFS bucket, so recordings larger than
// the 16 MB document limit are chunked by the driver.
type MongoClient struct {
	client *mongo.Client
	bucket *gridfs.Bucket
}

type gridFile struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"filename"`
	Length     int64     `bson:"length"`
	UploadDate time.Time `bson:"uploadDate"`
}

func (f gridFile) blob() Blob {
	return Blob{ID: f.ID, Name: f.Name, Size: f.Length, CreatedAt: f.UploadDate.UTC()}
}

func NewMongoClient(uri, dbName string) (*MongoClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging MongoDB: %v", err)
	}

	bucket, err := gridfs.NewBucket(client.Database(dbName), options.GridFSBucket().SetName(bucketName))
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("error opening GridFS bucket: %v", err)
	}

	return &MongoClient{client: client, bucket: bucket}, nil
}

func (c *MongoClient) Close() error {
	if c.client != nil {
		return c.client.Disconnect(context.Background())
	}
	return nil
}

func (c *MongoClient) Store(data []byte, name string) (string, error) {
	id := utils.ContentID(data)

	if _, ok, err := c.Stat(id); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}

	err := c.bucket.UploadFromStreamWithID(id, name, bytes.NewReader(data))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return "", fmt.Errorf("failed to upload blob: %v", err)
	}
	return id, nil
}

func (c *MongoClient) Fetch(id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := c.bucket.DownloadToStream(id, &buf); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to download blob %s: %v", id, err)
	}
	return buf.Bytes(), nil
}

func (c *MongoClient) find(filter interface{}) ([]gridFile, error) {
	opts := options.GridFSFind().SetSort(bson.D{{Key: "uploadDate", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := c.bucket.Find(filter, opts)
	if err != nil {
		return nil, err
	}

	var files []gridFile
	if err := cursor.All(context.Background(), &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (c *MongoClient) Stat(id string) (Blob, bool, error) {
	files, err := c.find(bson.M{"_id": id})
	if err != nil {
		return Blob{}, false, err
	}
	if len(files) == 0 {
		return Blob{}, false, nil
	}
	return files[0].blob(), true, nil
}

func (c *MongoClient) List() ([]Blob, error) {
	files, err := c.find(bson.D{})
	if err != nil {
		return nil, err
	}

	blobs := make([]Blob, len(files))
	for i, f := range files {
		blobs[i] = f.blob()
	}
	return blobs, nil
}

func (c *MongoClient) Delete(id string) error {
	if err := c.bucket.Delete(id); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}

func (c *MongoClient) DeleteAll() error {
	return c.bucket.Drop()
}
