// Package storagetest provides an in-process S3-compatible bucket for tests.
package storagetest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

type Object struct {
	Body          []byte
	ContentType   string
	Authorization string
}

// Bucket emulates a path-style S3 endpoint (PUT /<bucket>/<key>) and the
// bucket's public domain (GET /public/<key>) on one httptest server.
type Bucket struct {
	server  *httptest.Server
	name    string
	mu      sync.Mutex
	objects map[string]Object
	failPut bool
}

func NewBucket(name string) *Bucket {
	b := &Bucket{name: name, objects: map[string]Object{}}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	return b
}

func (b *Bucket) serve(w http.ResponseWriter, r *http.Request) {
	bucketPrefix := "/" + b.name + "/"
	switch {
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, bucketPrefix):
		b.mu.Lock()
		failPut := b.failPut
		b.mu.Unlock()
		if failPut {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.objects[strings.TrimPrefix(r.URL.Path, bucketPrefix)] = Object{
			Body:          body,
			ContentType:   r.Header.Get("Content-Type"),
			Authorization: r.Header.Get("Authorization"),
		}
		b.mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/public/"):
		b.mu.Lock()
		obj, ok := b.objects[strings.TrimPrefix(r.URL.Path, "/public/")]
		b.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", obj.ContentType)
		_, _ = w.Write(obj.Body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Object returns the stored object under key.
func (b *Bucket) Object(key string) (Object, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[key]
	return obj, ok
}

// Keys lists stored keys in no particular order.
func (b *Bucket) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	return keys
}

// FailPuts makes every following upload answer 403 AccessDenied.
func (b *Bucket) FailPuts() {
	b.mu.Lock()
	b.failPut = true
	b.mu.Unlock()
}

func (b *Bucket) Name() string {
	return b.name
}

func (b *Bucket) Endpoint() string {
	return b.server.URL
}

func (b *Bucket) PublicBase() string {
	return b.server.URL + "/public"
}

func (b *Bucket) Close() {
	b.server.Close()
}
