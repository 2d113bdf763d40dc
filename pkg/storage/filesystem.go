package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/openstats/databank/pkg/model"
)

// FileSystemStore implements Store on the local filesystem. Records are JSON
// documents and CSV artifacts are gzip files, laid out as:
//
//	<root>/data-sets/<id>.json
//	<root>/versions/<id>/version.json
//	<root>/versions/<id>/meta.json
//	<root>/versions/<id>/data.csv.gz
//	<root>/preview-tokens/<id>.json
//
// Intended for local development and tests; production deployments use the
// postgres backend.
type FileSystemStore struct {
	rootDir string
}

// NewFileSystemStore creates a new filesystem-backed store
func NewFileSystemStore(rootDir string) (*FileSystemStore, error) {
	for _, dir := range []string{"data-sets", "versions", "preview-tokens"} {
		if err := os.MkdirAll(filepath.Join(rootDir, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}
	return &FileSystemStore{rootDir: rootDir}, nil
}

// CreateDataSet writes a data set record. Used by ingestion tooling and tests.
func (s *FileSystemStore) CreateDataSet(ctx context.Context, ds *model.DataSet) error {
	return s.writeJSON(filepath.Join(s.rootDir, "data-sets", ds.ID+".json"), ds)
}

// GetDataSet implements Store.GetDataSet
func (s *FileSystemStore) GetDataSet(ctx context.Context, id string) (*model.DataSet, error) {
	var ds model.DataSet
	if err := s.readJSON(filepath.Join(s.rootDir, "data-sets", id+".json"), &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// ListDataSets implements Store.ListDataSets
func (s *FileSystemStore) ListDataSets(ctx context.Context) ([]*model.DataSet, error) {
	entries, err := os.ReadDir(filepath.Join(s.rootDir, "data-sets"))
	if err != nil {
		return nil, fmt.Errorf("failed to read data-sets directory: %w", err)
	}

	var dataSets []*model.DataSet
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		var ds model.DataSet
		if err := s.readJSON(filepath.Join(s.rootDir, "data-sets", entry.Name()), &ds); err != nil {
			return nil, fmt.Errorf("failed to read data set %s: %w", entry.Name(), err)
		}
		dataSets = append(dataSets, &ds)
	}
	return dataSets, nil
}

// CreateDataSetVersion writes a version record.
func (s *FileSystemStore) CreateDataSetVersion(ctx context.Context, v *model.DataSetVersion) error {
	dir := filepath.Join(s.rootDir, "versions", v.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create version directory: %w", err)
	}
	return s.writeJSON(filepath.Join(dir, "version.json"), v)
}

// GetDataSetVersionByID implements Store.GetDataSetVersionByID
func (s *FileSystemStore) GetDataSetVersionByID(ctx context.Context, id string) (*model.DataSetVersion, error) {
	var v model.DataSetVersion
	if err := s.readJSON(filepath.Join(s.rootDir, "versions", id, "version.json"), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListDataSetVersions implements Store.ListDataSetVersions
func (s *FileSystemStore) ListDataSetVersions(ctx context.Context, dataSetID string) ([]*model.DataSetVersion, error) {
	entries, err := os.ReadDir(filepath.Join(s.rootDir, "versions"))
	if err != nil {
		return nil, fmt.Errorf("failed to read versions directory: %w", err)
	}

	var versions []*model.DataSetVersion
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		v, err := s.GetDataSetVersionByID(ctx, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read version %s: %w", entry.Name(), err)
		}
		if v.DataSetID == dataSetID {
			versions = append(versions, v)
		}
	}
	return versions, nil
}

// CreatePreviewToken writes a preview token record.
func (s *FileSystemStore) CreatePreviewToken(ctx context.Context, t *model.PreviewToken) error {
	return s.writeJSON(filepath.Join(s.rootDir, "preview-tokens", t.ID+".json"), t)
}

// GetPreviewToken implements Store.GetPreviewToken
func (s *FileSystemStore) GetPreviewToken(ctx context.Context, id string) (*model.PreviewToken, error) {
	var t model.PreviewToken
	if err := s.readJSON(filepath.Join(s.rootDir, "preview-tokens", id+".json"), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// PutVersionMeta writes the catalog metadata for a version.
func (s *FileSystemStore) PutVersionMeta(ctx context.Context, meta *model.VersionMeta) error {
	dir := filepath.Join(s.rootDir, "versions", meta.DataSetVersionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create version directory: %w", err)
	}
	return s.writeJSON(filepath.Join(dir, "meta.json"), meta)
}

// GetVersionMeta implements Store.GetVersionMeta
func (s *FileSystemStore) GetVersionMeta(ctx context.Context, versionID string) (*model.VersionMeta, error) {
	var meta model.VersionMeta
	if err := s.readJSON(filepath.Join(s.rootDir, "versions", versionID, "meta.json"), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// PutCsv gzip-compresses plain CSV content and stores it as the version's
// immutable data artifact.
func (s *FileSystemStore) PutCsv(ctx context.Context, versionID string, csv io.Reader) error {
	dir := filepath.Join(s.rootDir, "versions", versionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create version directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "data.csv.gz"))
	if err != nil {
		return fmt.Errorf("failed to create csv artifact: %w", err)
	}

	gz := gzip.NewWriter(f)
	if _, err := io.Copy(gz, csv); err != nil {
		f.Close()
		return fmt.Errorf("failed to compress csv artifact: %w", err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finish csv artifact: %w", err)
	}
	return f.Close()
}

// OpenCsv implements Store.OpenCsv. The returned stream carries the stored
// gzip bytes as-is; callers decide whether to decompress or pass them
// through.
func (s *FileSystemStore) OpenCsv(ctx context.Context, versionID string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.rootDir, "versions", versionID, "data.csv.gz"))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open csv artifact: %w", err)
	}
	return f, nil
}

// HealthCheck implements Store.HealthCheck
func (s *FileSystemStore) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(s.rootDir); err != nil {
		return fmt.Errorf("storage root unavailable: %w", err)
	}
	return nil
}

// Close implements Store.Close
func (s *FileSystemStore) Close() error {
	return nil
}

func (s *FileSystemStore) writeJSON(path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

func (s *FileSystemStore) readJSON(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return nil
}
