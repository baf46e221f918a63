package storage

import (
	"context"
	"net/url"
	"strings"
)

type PutObjectParams struct {
	Key         string
	Body        []byte
	ContentType string
}

// ObjectStore uploads objects that are later served from PublicURL.
type ObjectStore interface {
	PutObject(ctx context.Context, params PutObjectParams) error
	PublicURL(key string) string
}

// JoinPublicURL appends key to base, path-escaping each key segment. For
// ordinary filenames the result equals base + "/" + key.
func JoinPublicURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.Join(segments, "/")
}
