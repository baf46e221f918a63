package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"basegraph.app/crmrelay/common/id"
	"basegraph.app/crmrelay/internal/domain"
	"basegraph.app/crmrelay/internal/storage"
)

const (
	AttachmentKeyPrefix = "attachments/"
	PlaceholderFilename = "file"
	DefaultContentType  = "application/octet-stream"
)

// DownloadError means the source file could not be fetched.
type DownloadError struct {
	URL        string
	StatusCode int // 0 when no response arrived
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// StorageError means the downloaded file could not be uploaded.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// AttachmentMirror copies a remote file into owned storage and returns where it
// is publicly served.
type AttachmentMirror interface {
	Mirror(ctx context.Context, sourceURL string) (*domain.MirroredAttachment, error)
}

type AttachmentMirrorConfig struct {
	DownloadTimeout time.Duration
	MaxBytes        int64 // 0 disables the cap
	UniqueKeys      bool  // prefix keys with a snowflake ID instead of overwriting same-named files
}

type attachmentMirror struct {
	store      storage.ObjectStore
	httpClient *http.Client
	cfg        AttachmentMirrorConfig
}

func NewAttachmentMirror(store storage.ObjectStore, cfg AttachmentMirrorConfig, httpClient *http.Client) AttachmentMirror {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.DownloadTimeout}
	}
	return &attachmentMirror{
		store:      store,
		httpClient: httpClient,
		cfg:        cfg,
	}
}

func (m *attachmentMirror) Mirror(ctx context.Context, sourceURL string) (*domain.MirroredAttachment, error) {
	body, contentType, err := m.download(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	filename := DeriveFilename(sourceURL)
	key := m.objectKey(filename)

	if err := m.store.PutObject(ctx, storage.PutObjectParams{
		Key:         key,
		Body:        body,
		ContentType: contentType,
	}); err != nil {
		return nil, &StorageError{Key: key, Err: err}
	}

	return &domain.MirroredAttachment{
		SourceURL:   sourceURL,
		Filename:    filename,
		ContentType: contentType,
		Key:         key,
		PublicURL:   m.store.PublicURL(key),
	}, nil
}

func (m *attachmentMirror) download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", &DownloadError{URL: sourceURL, Err: err}
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, "", &DownloadError{URL: sourceURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &DownloadError{URL: sourceURL, StatusCode: resp.StatusCode}
	}

	reader := io.Reader(resp.Body)
	if m.cfg.MaxBytes > 0 {
		reader = io.LimitReader(resp.Body, m.cfg.MaxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", &DownloadError{URL: sourceURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if m.cfg.MaxBytes > 0 && int64(len(body)) > m.cfg.MaxBytes {
		return nil, "", &DownloadError{URL: sourceURL, Err: fmt.Errorf("file exceeds %d bytes", m.cfg.MaxBytes)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}

	return body, contentType, nil
}

func (m *attachmentMirror) objectKey(filename string) string {
	if m.cfg.UniqueKeys {
		return AttachmentKeyPrefix + id.NewString() + "-" + filename
	}
	return AttachmentKeyPrefix + filename
}

// DeriveFilename returns the last segment of sourceURL's path as it appears in
// the URL, ignoring query and fragment, or PlaceholderFilename when that
// segment is empty. Percent-escapes are kept so an encoded "/" cannot split
// the name. The name is not otherwise sanitized.
func DeriveFilename(sourceURL string) string {
	p := sourceURL
	if u, err := url.Parse(sourceURL); err == nil {
		p = u.EscapedPath()
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	name := p[strings.LastIndex(p, "/")+1:]
	if name == "" {
		return PlaceholderFilename
	}
	return name
}
