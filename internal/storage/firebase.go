package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"portfolioapi/internal/assetref"
)

const (
	// FirebaseDownloadHost serves objects addressed by download token.
	FirebaseDownloadHost = "https://firebasestorage.googleapis.com"

	downloadTokensKey = "firebaseStorageDownloadTokens"
)

// firebaseStorage implements Storage on the Firebase project's Cloud Storage bucket.
// Retrieval URLs are native Firebase download URLs carrying a per-object download token.
type firebaseStorage struct {
	bucket *gcs.BucketHandle
	name   string
}

// NewFirebase opens the named bucket, or the app's default bucket when bucket is empty.
func NewFirebase(ctx context.Context, app *firebase.App, bucket string) (Storage, error) {
	cli, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("get storage client: %w", err)
	}
	var bh *gcs.BucketHandle
	if bucket == "" {
		bh, err = cli.DefaultBucket()
	} else {
		bh, err = cli.Bucket(bucket)
	}
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	attrs, err := bh.Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	return &firebaseStorage{bucket: bh, name: attrs.Name}, nil
}

func (f *firebaseStorage) Bucket() string { return f.name }

func (f *firebaseStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	token := uuid.NewString()
	meta := make(map[string]string, len(opt.Metadata)+1)
	for k, v := range opt.Metadata {
		meta[k] = v
	}
	meta[downloadTokensKey] = token

	w := f.bucket.Object(key).NewWriter(ctx)
	w.ContentType = opt.ContentType
	w.Metadata = meta
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return ObjectInfo{}, err
	}
	if err := w.Close(); err != nil {
		return ObjectInfo{}, err
	}
	attrs := w.Attrs()
	return ObjectInfo{
		Key:          key,
		URL:          assetref.EncodeURL(FirebaseDownloadHost, f.name, key, token),
		Size:         attrs.Size,
		ETag:         attrs.Etag,
		ContentType:  attrs.ContentType,
		LastModified: attrs.Updated,
		Metadata:     opt.Metadata,
	}, nil
}

func (f *firebaseStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	rc, err := f.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, ObjectInfo{}, err
	}
	return rc, ObjectInfo{
		Key:          key,
		Size:         rc.Attrs.Size,
		ContentType:  rc.Attrs.ContentType,
		LastModified: rc.Attrs.LastModified,
	}, nil
}

func (f *firebaseStorage) Delete(ctx context.Context, key string) error {
	err := f.bucket.Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

// URL returns the token-bearing download URL, minting a token for objects uploaded without one.
func (f *firebaseStorage) URL(ctx context.Context, key string) (string, error) {
	obj := f.bucket.Object(key)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return "", err
	}
	token := firstToken(attrs.Metadata[downloadTokensKey])
	if token == "" {
		token = uuid.NewString()
		meta := attrs.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		meta[downloadTokensKey] = token
		if _, err := obj.Update(ctx, gcs.ObjectAttrsToUpdate{Metadata: meta}); err != nil {
			return "", fmt.Errorf("set download token: %w", err)
		}
	}
	return assetref.EncodeURL(FirebaseDownloadHost, f.name, key, token), nil
}

func (f *firebaseStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	it := f.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ObjectInfo{
			Key:          attrs.Name,
			URL:          assetref.EncodeURL(FirebaseDownloadHost, f.name, attrs.Name, firstToken(attrs.Metadata[downloadTokensKey])),
			Size:         attrs.Size,
			ETag:         attrs.Etag,
			ContentType:  attrs.ContentType,
			LastModified: attrs.Updated,
			Metadata:     attrs.Metadata,
		})
	}
	return out, nil
}

// firstToken picks the first of a comma-separated download token list.
func firstToken(v string) string {
	tok, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(tok)
}
