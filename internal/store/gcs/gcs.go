// Package gcs stores assets in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/naveenspark/stepdeck/internal/platform/logger"
	"github.com/naveenspark/stepdeck/internal/store"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

const (
	sharedPrefix  = "shared"
	uploadTimeout = 2 * time.Minute
)

// Store implements store.AssetStore on a bucket. Asset ids are object
// names of the form <project>/<file>.
type Store struct {
	log         *logger.Logger
	client      *storage.Client
	bucket      string
	publicBase  string
	maxAttempts int
}

var _ store.AssetStore = (*Store)(nil)

// New connects to GCS. When STORAGE_EMULATOR_HOST is set the client talks
// to the emulator without credentials.
func New(ctx context.Context, bucket string, log *logger.Logger, opts ...option.ClientOption) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs.New: bucket name is required")
	}
	publicBase := "https://storage.googleapis.com"
	if host := strings.TrimRight(os.Getenv("STORAGE_EMULATOR_HOST"), "/"); host != "" {
		opts = append(opts, option.WithoutAuthentication())
		if !strings.Contains(host, "://") {
			host = "http://" + host
		}
		publicBase = host
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs.New: %w", err)
	}
	return NewWithClient(client, bucket, publicBase, log), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *storage.Client, bucket, publicBase string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		log:         log.With("component", "store.gcs", "bucket", bucket),
		client:      client,
		bucket:      bucket,
		publicBase:  strings.TrimRight(publicBase, "/"),
		maxAttempts: store.MaxNameAttempts,
	}
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) objectURL(name string) string {
	return s.publicBase + "/" + url.PathEscape(s.bucket) + "/" + (&url.URL{Path: name}).EscapedPath()
}

// UploadAsset writes the blob under a name no other object holds. Each
// attempt is guarded by a does-not-exist precondition so concurrent
// uploaders never overwrite each other.
func (s *Store) UploadAsset(ctx context.Context, blob domain.Blob, suggestedName, projectID string) (domain.AssetRef, error) {
	const op = "gcs.UploadAsset"
	if len(blob.Data) == 0 {
		return domain.AssetRef{}, domain.Invalid(op, "empty asset")
	}
	if projectID == "" {
		projectID = sharedPrefix
	}
	mimeType := blob.MIMEType
	if mimeType == "" {
		mimeType = store.MIMEFromName(suggestedName)
	}
	base := store.SanitizeName(suggestedName, mimeType)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()
	for n := range s.maxAttempts {
		name := projectID + "/" + store.CandidateName(base, n)
		err := s.write(ctx, name, mimeType, blob.Data)
		if isPreconditionFailed(err) {
			continue
		}
		if err != nil {
			return domain.AssetRef{}, domain.Persistence(op, err)
		}
		s.log.Info("asset uploaded", "object", name, "bytes", len(blob.Data))
		return domain.AssetRef{AssetID: name, AssetURL: s.objectURL(name)}, nil
	}
	return domain.AssetRef{}, domain.Persistence(op, fmt.Errorf("no free name for %q after %d attempts", base, s.maxAttempts))
}

func (s *Store) write(ctx context.Context, name, mimeType string, data []byte) error {
	obj := s.client.Bucket(s.bucket).Object(name).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = mimeType
	if _, err := w.Write(data); err != nil {
		w.Close() //nolint:errcheck
		return err
	}
	return w.Close()
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// ResolveAsset downloads an object.
func (s *Store) ResolveAsset(ctx context.Context, id string) (domain.Blob, error) {
	const op = "gcs.ResolveAsset"
	r, err := s.client.Bucket(s.bucket).Object(id).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return domain.Blob{}, domain.NotFound(op, id)
		}
		return domain.Blob{}, domain.Persistence(op, err)
	}
	defer r.Close() //nolint:errcheck
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Blob{}, domain.Persistence(op, err)
	}
	mimeType := r.Attrs.ContentType
	if mimeType == "" {
		mimeType = store.MIMEFromName(id)
	}
	return domain.Blob{Data: data, MIMEType: mimeType}, nil
}

// ListAssets returns the asset ids stored for a project.
func (s *Store) ListAssets(ctx context.Context, projectID string) ([]string, error) {
	if projectID == "" {
		projectID = sharedPrefix
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: projectID + "/"})
	var out []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, domain.Persistence("gcs.ListAssets", err)
		}
		out = append(out, attrs.Name)
	}
}
