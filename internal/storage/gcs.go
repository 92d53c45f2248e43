package storage

import (
	"context"
	"fmt"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

type GCSOptions struct {
	CredentialsFile string
	BucketName      string
}

// GoogleStorage stores objects in a publicly readable GCS bucket.
type GoogleStorage struct {
	client *storage.Client
	bucket string
}

func NewGoogleStorage(ctx context.Context, opts GCSOptions) (*GoogleStorage, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}
	return &GoogleStorage{client: client, bucket: opts.BucketName}, nil
}

func (s *GoogleStorage) Upload(ctx context.Context, objectPath, contentType string, data []byte) error {
	p, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	w := s.client.Bucket(s.bucket).Object(p).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "write gs://%s/%s", s.bucket, p)
	}
	return errors.Wrapf(w.Close(), "close gs://%s/%s", s.bucket, p)
}

func (s *GoogleStorage) URL(_ context.Context, objectPath string) (string, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "https", Host: "storage.googleapis.com", Path: fmt.Sprintf("/%s/%s", s.bucket, p)}
	return u.String(), nil
}

func (s *GoogleStorage) Delete(ctx context.Context, objectPath string) error {
	p, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(p).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return errors.Wrapf(err, "delete gs://%s/%s", s.bucket, p)
}

func (s *GoogleStorage) Close() error {
	return s.client.Close()
}
