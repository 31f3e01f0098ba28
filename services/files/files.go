// Package filesvc stores uploaded files on the local disk or in a Backblaze B2 bucket.
package filesvc

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/registro/core"
)

var newKeyFunc = func(dir, ext string) string { // mockable
	return path.Join(dir, uuid.New().String()+ext)
}

// NewStorage returns the storage selected by conf.Storage.Backend.
func NewStorage(ctx context.Context, conf *core.Config) (core.FileStorage, error) {
	switch conf.Storage.Backend {
	case "b2":
		return NewB2Storage(ctx, conf.Storage.B2KeyID, conf.Storage.B2AppKey, conf.Storage.B2Bucket)
	case "", "local":
		return NewLocalStorage(conf.Storage.LocalDir, conf.Storage.BaseURL), nil
	default:
		return nil, errors.Errorf("unknown storage backend %q", conf.Storage.Backend)
	}
}

type localStorage struct {
	root    string
	baseURL string
}

var _ core.FileStorage = (*localStorage)(nil)

// NewLocalStorage saves files under root, served at baseURL.
func NewLocalStorage(root, baseURL string) *localStorage {
	return &localStorage{root: root, baseURL: baseURL}
}

func (s *localStorage) Root() string { return s.root }

func (s *localStorage) Save(_ context.Context, dir string, up *core.Upload) (string, error) {
	key := newKeyFunc(dir, up.Ext())
	dest := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload dir")
	}

	src, err := up.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening upload")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", errors.Wrap(err, "writing file")
	}
	if err = dst.Close(); err != nil {
		return "", errors.Wrap(err, "closing file")
	}
	return key, nil
}

func (s *localStorage) URL(key string) string {
	return strings.TrimSuffix(s.baseURL, "/") + "/" + key
}

type b2Storage struct {
	bucket *b2.Bucket
}

var _ core.FileStorage = (*b2Storage)(nil)

func NewB2Storage(ctx context.Context, keyID, appKey, bucketName string) (*b2Storage, error) {
	client, err := b2.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, errors.Wrap(err, "getting b2 bucket")
	}
	return &b2Storage{bucket: bucket}, nil
}

func (s *b2Storage) Save(ctx context.Context, dir string, up *core.Upload) (string, error) {
	key := newKeyFunc(dir, up.Ext())

	src, err := up.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening upload")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer src.Close()

	w := s.bucket.Object(key).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: up.ContentType}))
	if _, err = io.Copy(w, src); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err = w.Close(); err != nil {
		return "", errors.Wrap(err, "closing object writer")
	}
	return key, nil
}

func (s *b2Storage) URL(key string) string {
	return s.bucket.Object(key).URL()
}
