// Package assetref implements the coupling between a blob's storage path and its retrieval URL.
//
// Retrieval URLs embed the storage path as a single percent-encoded segment between the
// "/o/" marker and the query delimiter, e.g.
//
//	https://host/v0/b/bucket/o/projects%2F9b1d.jpg?alt=media
//
// Deleting a blob depends on decoding the path back, so every URL handed out by a storage
// backend must round-trip through DecodePath.
package assetref

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	pathMarker     = "/o/"
	queryDelimiter = "?"
)

// ErrUndecodable is returned when a URL does not carry a decodable storage path.
var ErrUndecodable = errors.New("url does not encode a storage path")

// EncodeURL builds a retrieval URL for path in bucket under base.
// token is optional and is appended as a download token query parameter.
func EncodeURL(base, bucket, path, token string) string {
	q := url.Values{}
	q.Set("alt", "media")
	if token != "" {
		q.Set("token", token)
	}
	return fmt.Sprintf("%s/v0/b/%s/o/%s?%s",
		strings.TrimRight(base, "/"),
		url.PathEscape(bucket),
		url.PathEscape(path),
		q.Encode(),
	)
}

// DecodePath extracts the storage path from a retrieval URL.
func DecodePath(rawURL string) (string, error) {
	i := strings.Index(rawURL, pathMarker)
	if i < 0 {
		return "", fmt.Errorf("%w: missing %q marker", ErrUndecodable, pathMarker)
	}
	rest := rawURL[i+len(pathMarker):]
	j := strings.Index(rest, queryDelimiter)
	if j < 0 {
		return "", fmt.Errorf("%w: missing query delimiter", ErrUndecodable)
	}
	seg := rest[:j]
	if seg == "" {
		return "", fmt.Errorf("%w: empty path segment", ErrUndecodable)
	}
	p, err := url.PathUnescape(seg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return p, nil
}

// Verify reports whether rawURL decodes back to path.
func Verify(rawURL, path string) error {
	got, err := DecodePath(rawURL)
	if err != nil {
		return err
	}
	if got != path {
		return fmt.Errorf("%w: decoded %q, want %q", ErrUndecodable, got, path)
	}
	return nil
}
