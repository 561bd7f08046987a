// Package local stores projects and assets on disk: an index of rows in
// SQLite and the document bodies and asset blobs as files beside it.
package local

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/naveenspark/stepdeck/internal/platform/logger"
	"github.com/naveenspark/stepdeck/internal/store"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

// sharedFolder holds assets uploaded without a project.
const sharedFolder = "shared"

type projectRow struct {
	ID           string    `gorm:"primaryKey"`
	Title        string    `gorm:"not null"`
	LastModified time.Time `gorm:"not null;index"`
	LastAccessed time.Time
}

func (projectRow) TableName() string { return "projects" }

type assetRow struct {
	ID        string `gorm:"primaryKey"`
	ProjectID string `gorm:"not null;uniqueIndex:idx_asset_name"`
	Name      string `gorm:"not null;uniqueIndex:idx_asset_name"`
	MIMEType  string
	Size      int64
	CreatedAt time.Time
}

func (assetRow) TableName() string { return "assets" }

// Store implements store.Backend on the local file system.
type Store struct {
	log         *logger.Logger
	db          *gorm.DB
	root        string
	now         func() time.Time
	maxAttempts int
}

var (
	_ store.Backend     = (*Store)(nil)
	_ store.AssetLister = (*Store)(nil)
)

// Open creates or opens a store rooted at dir.
func Open(dir string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	for _, sub := range []string{"projects", "assets"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("local.Open: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "stepdeck.db")), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("local.Open: %w", err)
	}
	if err := db.AutoMigrate(&projectRow{}, &assetRow{}); err != nil {
		return nil, fmt.Errorf("local.Open: migrate: %w", err)
	}
	return &Store{
		log:         log.With("component", "store.local", "dir", dir),
		db:          db,
		root:        dir,
		now:         time.Now,
		maxAttempts: store.MaxNameAttempts,
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) projectPath(id string) string {
	return filepath.Join(s.root, "projects", id+".json")
}

func (s *Store) assetPath(projectID, name string) string {
	return filepath.Join(s.root, "assets", projectID, name)
}

// Save writes the document and upserts its index row.
func (s *Store) Save(ctx context.Context, doc []byte, existingID, title string) (domain.SaveResult, error) {
	const op = "local.Save"
	id := existingID
	if id == "" {
		id = uuid.NewString()
	}
	if err := writeFileAtomic(s.projectPath(id), doc); err != nil {
		return domain.SaveResult{}, domain.Persistence(op, err)
	}
	now := s.now().UTC()
	row := projectRow{ID: id, Title: title, LastModified: now, LastAccessed: now}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "last_modified"}),
	}).Create(&row).Error
	if err != nil {
		return domain.SaveResult{}, domain.Persistence(op, err)
	}
	s.log.Info("project saved", "project", id, "bytes", len(doc))
	return domain.SaveResult{ID: id, LastModified: now}, nil
}

// Load reads a project and records the access time.
func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	const op = "local.Load"
	var row projectRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound(op, id)
		}
		return nil, domain.Persistence(op, err)
	}
	data, err := os.ReadFile(s.projectPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NotFound(op, id)
		}
		return nil, domain.Persistence(op, err)
	}
	if err := s.db.WithContext(ctx).Model(&row).Update("last_accessed", s.now().UTC()).Error; err != nil {
		s.log.Warn("access time not recorded", "project", id, "error", err)
	}
	return data, nil
}

// List returns every project, most recently modified first.
func (s *Store) List(ctx context.Context) ([]domain.ProjectSummary, error) {
	var rows []projectRow
	if err := s.db.WithContext(ctx).Order("last_modified desc").Find(&rows).Error; err != nil {
		return nil, domain.Persistence("local.List", err)
	}
	out := make([]domain.ProjectSummary, len(rows))
	for i, r := range rows {
		out[i] = domain.ProjectSummary{ID: r.ID, Title: r.Title, LastModified: r.LastModified, LastAccessed: r.LastAccessed}
	}
	return out, nil
}

// Delete removes a project, its document file and its assets.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	const op = "local.Delete"
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&projectRow{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return tx.Delete(&assetRow{}, "project_id = ?", id).Error
	})
	if err != nil {
		return false, domain.Persistence(op, err)
	}
	if !deleted {
		return false, nil
	}
	if err := os.Remove(s.projectPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("project file not removed", "project", id, "error", err)
	}
	if err := os.RemoveAll(filepath.Join(s.root, "assets", id)); err != nil {
		s.log.Warn("project assets not removed", "project", id, "error", err)
	}
	s.log.Info("project deleted", "project", id)
	return true, nil
}

// UploadAsset stores blob under the suggested name, adding _1, _2 ... on
// a clash with an existing asset of the same project.
func (s *Store) UploadAsset(ctx context.Context, blob domain.Blob, suggestedName, projectID string) (domain.AssetRef, error) {
	const op = "local.UploadAsset"
	if projectID == "" {
		projectID = sharedFolder
	}
	if len(blob.Data) == 0 {
		return domain.AssetRef{}, domain.Invalid(op, "empty asset")
	}
	mimeType := blob.MIMEType
	if mimeType == "" {
		mimeType = store.MIMEFromName(suggestedName)
	}
	base := store.SanitizeName(suggestedName, mimeType)
	if err := os.MkdirAll(filepath.Join(s.root, "assets", projectID), 0o755); err != nil {
		return domain.AssetRef{}, domain.Persistence(op, err)
	}

	for n := range s.maxAttempts {
		row := assetRow{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Name:      store.CandidateName(base, n),
			MIMEType:  mimeType,
			Size:      int64(len(blob.Data)),
			CreatedAt: s.now().UTC(),
		}
		err := s.db.WithContext(ctx).Create(&row).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		if err != nil {
			return domain.AssetRef{}, domain.Persistence(op, err)
		}
		path := s.assetPath(projectID, row.Name)
		if err := writeFileAtomic(path, blob.Data); err != nil {
			s.db.WithContext(ctx).Delete(&row) //nolint:errcheck
			return domain.AssetRef{}, domain.Persistence(op, err)
		}
		s.log.Info("asset uploaded", "asset", row.ID, "name", row.Name, "bytes", row.Size)
		return domain.AssetRef{AssetID: row.ID, AssetURL: fileURL(path)}, nil
	}
	return domain.AssetRef{}, domain.Persistence(op, fmt.Errorf("no free name for %q after %d attempts", base, s.maxAttempts))
}

// ResolveAsset reads an asset by id.
func (s *Store) ResolveAsset(ctx context.Context, id string) (domain.Blob, error) {
	const op = "local.ResolveAsset"
	var row assetRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Blob{}, domain.NotFound(op, id)
		}
		return domain.Blob{}, domain.Persistence(op, err)
	}
	data, err := os.ReadFile(s.assetPath(row.ProjectID, row.Name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Blob{}, domain.NotFound(op, id)
		}
		return domain.Blob{}, domain.Persistence(op, err)
	}
	return domain.Blob{Data: data, MIMEType: row.MIMEType}, nil
}

// ListAssets returns the asset ids of a project in upload order.
func (s *Store) ListAssets(ctx context.Context, projectID string) ([]string, error) {
	if projectID == "" {
		projectID = sharedFolder
	}
	var ids []string
	err := s.db.WithContext(ctx).Model(&assetRow{}).
		Where("project_id = ?", projectID).
		Order("created_at, name").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, domain.Persistence("local.ListAssets", err)
	}
	return ids, nil
}

func fileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// writeFileAtomic writes through a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()     //nolint:errcheck
		os.Remove(name) //nolint:errcheck
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()     //nolint:errcheck
		os.Remove(name) //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name) //nolint:errcheck
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name) //nolint:errcheck
		return err
	}
	return nil
}
