package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstats/databank/pkg/model"
)

func newTestStore(t *testing.T) *FileSystemStore {
	t.Helper()
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestFileSystemStore_DataSets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ds := &model.DataSet{
		ID:                  "ds-1",
		Title:               "Pupil absence",
		Summary:             "Absence rates by school type",
		Status:              model.DataSetStatusPublished,
		LatestLiveVersionID: "v10",
		Created:             time.Now().UTC(),
	}
	require.NoError(t, store.CreateDataSet(ctx, ds))

	got, err := store.GetDataSet(ctx, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, "Pupil absence", got.Title)
	assert.Equal(t, model.DataSetStatusPublished, got.Status)

	_, err = store.GetDataSet(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := store.ListDataSets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFileSystemStore_Versions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, v := range []*model.DataSetVersion{
		{ID: "v10", DataSetID: "ds-1", Number: model.Version{Major: 1}, Status: model.VersionStatusPublished},
		{ID: "v11", DataSetID: "ds-1", Number: model.Version{Major: 1, Minor: 1}, Status: model.VersionStatusDraft},
		{ID: "other", DataSetID: "ds-2", Number: model.Version{Major: 1}, Status: model.VersionStatusPublished},
	} {
		require.NoError(t, store.CreateDataSetVersion(ctx, v))
	}

	got, err := store.GetDataSetVersionByID(ctx, "v11")
	require.NoError(t, err)
	assert.Equal(t, model.VersionStatusDraft, got.Status)

	versions, err := store.ListDataSetVersions(ctx, "ds-1")
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	_, err = store.GetDataSetVersionByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileSystemStore_PreviewTokens(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token := &model.PreviewToken{
		ID:               "tok-1",
		DataSetVersionID: "v11",
		Label:            "analyst preview",
		Created:          time.Now().UTC(),
		Expiry:           time.Now().UTC().Add(24 * time.Hour),
	}
	require.NoError(t, store.CreatePreviewToken(ctx, token))

	got, err := store.GetPreviewToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "v11", got.DataSetVersionID)

	_, err = store.GetPreviewToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileSystemStore_VersionMeta(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	meta := &model.VersionMeta{
		DataSetVersionID: "v10",
		Filters: []model.FilterMeta{
			{ID: "school-type", Column: "school_type", Label: "School type",
				Options: []model.FilterOption{{ID: "opt-1", Label: "Primary"}}},
		},
		Indicators: []model.IndicatorMeta{
			{ID: "sess-auth", Column: "sess_authorised", Label: "Authorised absence sessions"},
		},
		GeographicLevels: []string{"Country", "Region"},
	}
	require.NoError(t, store.PutVersionMeta(ctx, meta))

	got, err := store.GetVersionMeta(ctx, "v10")
	require.NoError(t, err)
	assert.Equal(t, meta.Filters, got.Filters)
	assert.Equal(t, meta.Indicators, got.Indicators)

	_, err = store.GetVersionMeta(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileSystemStore_Csv(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	csv := "time_period,region,value\n2025,North East,41\n"
	require.NoError(t, store.PutCsv(ctx, "v10", strings.NewReader(csv)))

	rc, err := store.OpenCsv(ctx, "v10")
	require.NoError(t, err)
	defer rc.Close()

	// The stored artifact is gzip; decompressing yields the original CSV.
	gz, err := gzip.NewReader(rc)
	require.NoError(t, err)
	decompressed, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, csv, string(decompressed))

	_, err = store.OpenCsv(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
