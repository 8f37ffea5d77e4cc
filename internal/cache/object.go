package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ppiankov/legislens/internal/model"
)

const objectPrefix = "analyses/"

// objectStore is the slice of an S3 bucket the object cache needs
type objectStore interface {
	put(ctx context.Context, name string, data []byte) error
	get(ctx context.Context, name string) ([]byte, bool, error)
	remove(ctx context.Context, name string) error
	list(ctx context.Context, prefix string) ([]string, error)
}

// ObjectCache stores entries as JSON objects in an S3-compatible bucket
type ObjectCache struct {
	store objectStore
	ttl   time.Duration
	now   func() time.Time
}

// NewObjectCache connects to the bucket, creating it when missing
func NewObjectCache(ctx context.Context, cfg model.MinioConfig, ttl time.Duration) (*ObjectCache, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return newObjectCache(&minioStore{client: client, bucket: cfg.Bucket}, ttl), nil
}

func newObjectCache(store objectStore, ttl time.Duration) *ObjectCache {
	return &ObjectCache{store: store, ttl: ttl, now: time.Now}
}

func (c *ObjectCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, found, err := c.store.get(ctx, objectName(key))
	if err != nil || !found {
		return nil, false, err
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		_ = c.store.remove(ctx, objectName(key))
		return nil, false, nil
	}
	if e.expired(c.now()) {
		_ = c.store.remove(ctx, objectName(key))
		return nil, false, nil
	}
	return e.Data, true, nil
}

func (c *ObjectCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	data, err := json.Marshal(newEntry(value, ttl, c.now()))
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	return c.store.put(ctx, objectName(key), data)
}

func (c *ObjectCache) Delete(ctx context.Context, key string) error {
	return c.store.remove(ctx, objectName(key))
}

// Clear removes every cache object under the prefix
func (c *ObjectCache) Clear(ctx context.Context) error {
	names, err := c.store.list(ctx, objectPrefix)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := c.store.remove(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func objectName(key string) string {
	return objectPrefix + key + ".json"
}

type minioStore struct {
	client *minio.Client
	bucket string
}

func (s *minioStore) put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

func (s *minioStore) get(ctx context.Context, name string) ([]byte, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", name, err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}
	return data, true, nil
}

func (s *minioStore) remove(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func (s *minioStore) list(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, obj.Err)
		}
		names = append(names, obj.Key)
	}
	return names, nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
