// Package store defines the persistence collaborators the runtime talks
// to and the naming rules shared by their implementations.
package store

import (
	"context"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

// MaxNameAttempts bounds the collision suffixes tried by UploadAsset.
const MaxNameAttempts = 50

// ProjectStore persists serialized projects.
type ProjectStore interface {
	// Save writes doc under existingID, or under a new id when existingID
	// is empty. On failure the caller keeps its dirty state.
	Save(ctx context.Context, doc []byte, existingID, title string) (domain.SaveResult, error)
	// Load returns the serialized project, or ErrNotFound.
	Load(ctx context.Context, id string) ([]byte, error)
	List(ctx context.Context) ([]domain.ProjectSummary, error)
	// Delete reports whether a project was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

// AssetStore holds binary assets referenced by elements and backgrounds.
type AssetStore interface {
	UploadAsset(ctx context.Context, blob domain.Blob, suggestedName, projectID string) (domain.AssetRef, error)
	ResolveAsset(ctx context.Context, id string) (domain.Blob, error)
}

// AssetLister is implemented by asset stores that can enumerate a
// project's assets.
type AssetLister interface {
	ListAssets(ctx context.Context, projectID string) ([]string, error)
}

// Backend is a store that serves both projects and assets.
type Backend interface {
	ProjectStore
	AssetStore
}

// SanitizeName reduces a suggested file name to a safe base name and
// gives it an extension matching mimeType when it has none.
func SanitizeName(name, mimeType string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		out = "asset"
	}
	if filepath.Ext(out) == "" {
		if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
			out += preferredExt(exts)
		}
	}
	return out
}

func preferredExt(exts []string) string {
	for _, e := range exts {
		switch e {
		case ".png", ".jpg", ".gif", ".webp", ".bmp", ".svg":
			return e
		}
	}
	return exts[0]
}

// CandidateName returns name for attempt 0 and name_n for attempt n,
// keeping the extension last.
func CandidateName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + strconv.Itoa(n) + ext
}

// MIMEFromName guesses a content type from a file extension.
func MIMEFromName(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "application/octet-stream"
}
