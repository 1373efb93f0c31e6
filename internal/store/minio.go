package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/covid19datasets/sitrep/pkg/errors"
)

// MinioConfig configures an S3-compatible object store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Region    string
	UseSSL    bool
}

// Minio stores objects in an S3-compatible bucket under an optional prefix.
type Minio struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinio connects to the endpoint and ensures the bucket exists.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	if cfg.Endpoint == "" {
		return nil, errors.NewConfigError("store", "minio endpoint is required", nil)
	}
	if cfg.Bucket == "" {
		return nil, errors.NewConfigError("store", "minio bucket is required", nil)
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.NewConfigError("store", "minio credentials are required", nil)
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.NewConfigError("store", "failed to create minio client", err)
	}

	m := &Minio{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}
	if err := m.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Minio) ensureBucket(ctx context.Context, region string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return errors.WrapIO("stat bucket", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return errors.WrapIO("create bucket", m.bucket, err)
	}
	return nil
}

func (m *Minio) objectName(key string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if m.prefix == "" {
		return key, nil
	}
	return path.Join(m.prefix, key), nil
}

func (m *Minio) location(name string) string {
	return fmt.Sprintf("s3://%s/%s", m.bucket, name)
}

// Get implements Store.
func (m *Minio) Get(ctx context.Context, key string) ([]byte, error) {
	name, err := m.objectName(key)
	if err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.classify("read", key, name, err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, m.classify("read", key, name, err)
	}
	return data, nil
}

// Put implements Store.
func (m *Minio) Put(ctx context.Context, key string, data []byte) error {
	name, err := m.objectName(key)
	if err != nil {
		return err
	}
	_, err = m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(name),
	})
	if err != nil {
		return m.classify("write", key, name, err)
	}
	return nil
}

// List implements Store.
func (m *Minio) List(ctx context.Context, prefix string) ([]string, error) {
	full := prefix
	if m.prefix != "" {
		full = m.prefix + "/" + prefix
	}
	var keys []string
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: full, Recursive: true}) {
		if obj.Err != nil {
			return nil, m.classify("list", prefix, full, obj.Err)
		}
		key := obj.Key
		if m.prefix != "" {
			key = strings.TrimPrefix(key, m.prefix+"/")
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete implements Store.
func (m *Minio) Delete(ctx context.Context, key string) error {
	name, err := m.objectName(key)
	if err != nil {
		return err
	}
	if err := m.client.RemoveObject(ctx, m.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return m.classify("delete", key, name, err)
	}
	return nil
}

func (m *Minio) classify(op, key, name string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
		return errors.NewNotFoundError("object", key)
	case "NoSuchBucket":
		return errors.NewNotFoundError("bucket", m.bucket)
	}
	return errors.WrapIO(op, m.location(name), err)
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".csv":
		return "text/csv"
	case ".parquet":
		return "application/vnd.apache.parquet"
	}
	return "application/octet-stream"
}
