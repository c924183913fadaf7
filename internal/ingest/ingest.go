// Package ingest normalizes uploaded images and writes them to the blob store.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"portfolioapi/internal/assetref"
	"portfolioapi/internal/config"
	"portfolioapi/internal/model"
	"portfolioapi/internal/storage"
)

// ErrIngestion wraps every decode, resize or upload failure.
var ErrIngestion = errors.New("image ingestion failed")

// MaxFileBytes caps a single upload.
const MaxFileBytes = 25 << 20

// MaxPixels caps width*height as declared by the image header. A small file can
// declare dimensions whose decoded bitmap would not fit in memory.
const MaxPixels = 50_000_000

var contentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

var defaultExt = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

// File is one user-supplied image.
type File struct {
	Name    string
	Content io.Reader
}

// Ingester bounds image width, re-encodes oversized images and stores the result.
type Ingester struct {
	store    storage.Storage
	log      *zap.Logger
	maxWidth int
	quality  int
	newName  func() string
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger for blobs the ingester fails to clean up.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingester) { in.log = l }
}

// New returns an Ingester writing to store.
func New(store storage.Storage, cfg config.IngestConfig, opts ...Option) *Ingester {
	in := &Ingester{
		store:    store,
		log:      zap.NewNop(),
		maxWidth: cfg.MaxWidth,
		quality:  cfg.Quality,
		newName:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest normalizes f and uploads it under folder/<uuid><ext>.
// The returned URL is guaranteed to decode back to the returned path.
func (in *Ingester) Ingest(ctx context.Context, f File, folder string) (model.AssetRef, error) {
	raw, err := io.ReadAll(io.LimitReader(f.Content, MaxFileBytes+1))
	if err != nil {
		return model.AssetRef{}, fmt.Errorf("%w: read %s: %v", ErrIngestion, f.Name, err)
	}
	if len(raw) == 0 {
		return model.AssetRef{}, fmt.Errorf("%w: %s is empty", ErrIngestion, f.Name)
	}
	if len(raw) > MaxFileBytes {
		return model.AssetRef{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrIngestion, f.Name, MaxFileBytes)
	}

	body, format, converted, err := in.normalize(raw)
	if err != nil {
		return model.AssetRef{}, fmt.Errorf("%w: %s: %v", ErrIngestion, f.Name, err)
	}

	ext := strings.ToLower(path.Ext(f.Name))
	if ext == "" || converted {
		ext = defaultExt[format]
	}
	fileName := in.newName() + ext
	key := path.Join(folder, fileName)

	info, err := in.store.Put(ctx, key, bytes.NewReader(body), storage.PutObjectOptions{
		Size:        int64(len(body)),
		ContentType: contentTypes[format],
	})
	if err != nil {
		return model.AssetRef{}, fmt.Errorf("%w: upload %s: %v", ErrIngestion, key, err)
	}
	if err := assetref.Verify(info.URL, key); err != nil {
		if derr := in.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			in.log.Warn("delete of unverifiable upload failed",
				zap.String("event", "partial_cleanup"),
				zap.String("image_url", info.URL),
				zap.String("storage_path", key),
				zap.Error(derr),
			)
		}
		return model.AssetRef{}, fmt.Errorf("%w: %v", ErrIngestion, err)
	}

	return model.AssetRef{URL: info.URL, Path: key, FileName: fileName}, nil
}

// normalize returns raw unchanged when the image is within bounds, otherwise a
// downscaled re-encoding. converted reports that the output format differs from the input.
func (in *Ingester) normalize(raw []byte) (body []byte, format string, converted bool, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", false, fmt.Errorf("decode config: %w", err)
	}
	if _, ok := contentTypes[format]; !ok {
		return nil, "", false, fmt.Errorf("unsupported format %q", format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", false, fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", false, fmt.Errorf("dimensions %dx%d exceed %d pixels", cfg.Width, cfg.Height, MaxPixels)
	}
	if cfg.Width <= in.maxWidth {
		return raw, format, false, nil
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", false, fmt.Errorf("decode: %w", err)
	}
	dst := scale(src, in.maxWidth)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		// x/image has no WebP encoder; WebP falls through to JPEG.
		converted = format != "jpeg"
		format = "jpeg"
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: in.quality})
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), format, converted, nil
}

// scale resizes src to width, preserving aspect ratio.
func scale(src image.Image, width int) image.Image {
	b := src.Bounds()
	height := (b.Dy()*width + b.Dx()/2) / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
