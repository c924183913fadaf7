package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	supastorage "github.com/supabase-community/storage-go"

	"portfolioapi/internal/assetref"
	"portfolioapi/internal/config"
)

// supabaseStorage implements Storage on a Supabase Storage bucket.
// Objects are served through the API media proxy so URLs follow the decodable layout.
// The storage-go client has no context support; ctx is only checked before each call.
type supabaseStorage struct {
	client        *supastorage.Client
	bucket        string
	publicBaseURL string
}

// NewSupabase creates a Supabase Storage client using the service role key.
func NewSupabase(cfg config.SupabaseConfig, publicBaseURL string) (Storage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("supabase service key is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("supabase bucket is required")
	}
	baseURL := strings.TrimRight(cfg.URL, "/")
	client := supastorage.NewClient(baseURL+"/storage/v1", cfg.ServiceKey, nil)
	return &supabaseStorage{client: client, bucket: cfg.Bucket, publicBaseURL: publicBaseURL}, nil
}

func (s *supabaseStorage) Bucket() string { return s.bucket }

func (s *supabaseStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	contentType := opt.ContentType
	upsert := false
	// storage-go sends the body in one request; count bytes for the returned info.
	cr := &countingReader{r: r}
	if _, err := s.client.UploadFile(s.bucket, key, cr, supastorage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to upload file: %w", err)
	}
	return ObjectInfo{
		Key:          key,
		URL:          assetref.EncodeURL(s.publicBaseURL, s.bucket, key, ""),
		Size:         cr.n,
		ContentType:  contentType,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}, nil
}

func (s *supabaseStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	data, err := s.client.DownloadFile(s.bucket, key)
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s: %v", ErrObjectNotFound, key, err)
	}
	return io.NopCloser(bytes.NewReader(data)), ObjectInfo{
		Key:  key,
		Size: int64(len(data)),
	}, nil
}

func (s *supabaseStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.RemoveFile(s.bucket, []string{key})
	return err
}

func (s *supabaseStorage) URL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}
	return assetref.EncodeURL(s.publicBaseURL, s.bucket, key, ""), nil
}

// List lists one folder level; ingested images live directly under their folder.
func (s *supabaseStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	folder := strings.TrimSuffix(prefix, "/")
	files, err := s.client.ListFiles(s.bucket, folder, supastorage.FileSearchOptions{Limit: 1000})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	out := make([]ObjectInfo, 0, len(files))
	for _, f := range files {
		key := path.Join(folder, f.Name)
		info := ObjectInfo{
			Key: key,
			URL: assetref.EncodeURL(s.publicBaseURL, s.bucket, key, ""),
		}
		if ts, err := time.Parse(time.RFC3339, f.CreatedAt); err == nil {
			info.LastModified = ts
		}
		out = append(out, info)
	}
	return out, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
