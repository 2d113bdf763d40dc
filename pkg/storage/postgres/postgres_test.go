package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstats/databank/pkg/model"
	"github.com/openstats/databank/pkg/storage"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &PostgresStore{db: db, config: storage.DefaultConfig()}, mock
}

func dataSetColumns() []string {
	return []string{
		"id", "title", "summary", "status",
		"superseded_by_id", "latest_live_version_id", "latest_draft_version_id",
		"created", "updated",
	}
}

func versionColumns() []string {
	return []string{
		"id", "data_set_id", "major", "minor", "patch", "status",
		"published", "total_results", "meta_summary", "created",
	}
}

func TestGetDataSet(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery("SELECT id, title, summary, status").
		WithArgs("ds-1").
		WillReturnRows(sqlmock.NewRows(dataSetColumns()).
			AddRow("ds-1", "Absence rates", "Termly absence data", model.DataSetStatusPublished,
				"", "v-2", "v-3", now, now))

	ds, err := store.GetDataSet(context.Background(), "ds-1")
	require.NoError(t, err)
	assert.Equal(t, "ds-1", ds.ID)
	assert.Equal(t, "Absence rates", ds.Title)
	assert.Equal(t, model.DataSetStatusPublished, ds.Status)
	assert.Equal(t, "v-2", ds.LatestLiveVersionID)
	assert.Equal(t, "v-3", ds.LatestDraftVersionID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDataSet_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, title, summary, status").
		WithArgs("absent").
		WillReturnRows(sqlmock.NewRows(dataSetColumns()))

	_, err := store.GetDataSet(context.Background(), "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDataSetVersionByID(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	published := now.Add(-24 * time.Hour)

	summary, err := json.Marshal(model.MetaSummary{
		Filters:    []string{"School type"},
		Indicators: []string{"Absence rate"},
		TimePeriodRange: model.TimePeriodRange{
			Start: model.TimePeriodLabel{Code: "AY", Period: "2023/24"},
			End:   model.TimePeriodLabel{Code: "AY", Period: "2024/25"},
		},
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, data_set_id, major, minor, patch, status").
		WithArgs("v-2").
		WillReturnRows(sqlmock.NewRows(versionColumns()).
			AddRow("v-2", "ds-1", 2, 1, 0, model.VersionStatusPublished,
				published, int64(125000), summary, now))

	v, err := store.GetDataSetVersionByID(context.Background(), "v-2")
	require.NoError(t, err)
	assert.Equal(t, "ds-1", v.DataSetID)
	assert.Equal(t, model.Version{Major: 2, Minor: 1}, v.Number)
	require.NotNil(t, v.Published)
	assert.True(t, published.Equal(*v.Published))
	assert.Equal(t, int64(125000), v.TotalResults)
	assert.Equal(t, []string{"School type"}, v.MetaSummary.Filters)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDataSetVersionByID_NullPublished(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, data_set_id, major, minor, patch, status").
		WithArgs("v-draft").
		WillReturnRows(sqlmock.NewRows(versionColumns()).
			AddRow("v-draft", "ds-1", 3, 0, 0, model.VersionStatusDraft,
				nil, int64(0), nil, now))

	v, err := store.GetDataSetVersionByID(context.Background(), "v-draft")
	require.NoError(t, err)
	assert.Nil(t, v.Published)
	assert.Equal(t, model.VersionStatusDraft, v.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDataSetVersions(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM data_set_versions").
		WithArgs("ds-1").
		WillReturnRows(sqlmock.NewRows(versionColumns()).
			AddRow("v-2", "ds-1", 2, 0, 0, model.VersionStatusPublished, now, int64(10), nil, now).
			AddRow("v-1", "ds-1", 1, 0, 0, model.VersionStatusPublished, now, int64(10), nil, now))

	versions, err := store.ListDataSetVersions(context.Background(), "ds-1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "v-2", versions[0].ID)
	assert.Equal(t, "v-1", versions[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPreviewToken(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM preview_tokens").
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data_set_version_id", "label", "created", "expiry"}).
			AddRow("tok-1", "v-draft", "analyst preview", now, now.Add(24*time.Hour)))

	tok, err := store.GetPreviewToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "v-draft", tok.DataSetVersionID)
	assert.Equal(t, "analyst preview", tok.Label)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPreviewToken_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM preview_tokens").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data_set_version_id", "label", "created", "expiry"}))

	_, err := store.GetPreviewToken(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVersionMeta(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("v-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery("FROM filter_metas f").
		WithArgs("v-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "column_name", "label", "hint", "id", "label", "is_aggregate"}).
			AddRow("f-1", "school_type", "School type", "", "o-1", "Primary", false).
			AddRow("f-1", "school_type", "School type", "", "o-2", "Secondary", false).
			AddRow("f-1", "school_type", "School type", "", "o-3", "Total", true))

	mock.ExpectQuery("FROM location_options").
		WithArgs("v-2").
		WillReturnRows(sqlmock.NewRows([]string{"level", "id", "label", "code"}).
			AddRow("country", "l-1", "England", "E92000001").
			AddRow("region", "l-2", "North East", "E12000001").
			AddRow("region", "l-3", "North West", "E12000002"))

	mock.ExpectQuery("FROM indicator_metas").
		WithArgs("v-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "column_name", "label", "unit", "decimal_places"}).
			AddRow("i-1", "sess_overall_percent", "Overall absence rate", "%", 2))

	mock.ExpectQuery("FROM time_period_metas").
		WithArgs("v-2").
		WillReturnRows(sqlmock.NewRows([]string{"code", "period", "label"}).
			AddRow("AY", "2023/24", "Academic year 2023/24"))

	mock.ExpectQuery("FROM geographic_level_metas").
		WithArgs("v-2").
		WillReturnRows(sqlmock.NewRows([]string{"level"}).
			AddRow("country").
			AddRow("region"))

	meta, err := store.GetVersionMeta(context.Background(), "v-2")
	require.NoError(t, err)

	require.Len(t, meta.Filters, 1)
	assert.Equal(t, "School type", meta.Filters[0].Label)
	require.Len(t, meta.Filters[0].Options, 3)
	assert.True(t, meta.Filters[0].Options[2].IsAggregate)

	require.Len(t, meta.Locations, 2)
	assert.Equal(t, "country", meta.Locations[0].Level)
	assert.Len(t, meta.Locations[1].Options, 2)

	require.Len(t, meta.Indicators, 1)
	require.NotNil(t, meta.Indicators[0].DecimalPlaces)
	assert.Equal(t, 2, *meta.Indicators[0].DecimalPlaces)

	require.Len(t, meta.TimePeriods, 1)
	assert.Equal(t, []string{"country", "region"}, meta.GeographicLevels)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVersionMeta_UnknownVersion(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("absent").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := store.GetVersionMeta(context.Background(), "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestL1Cache(t *testing.T) {
	c := newL1Cache(8, time.Minute)

	_, ok := c.getDataSet("ds-1")
	assert.False(t, ok)

	c.setDataSet(&model.DataSet{ID: "ds-1", Title: "Absence rates"})
	ds, ok := c.getDataSet("ds-1")
	require.True(t, ok)
	assert.Equal(t, "Absence rates", ds.Title)

	c.invalidateDataSet("ds-1")
	_, ok = c.getDataSet("ds-1")
	assert.False(t, ok)
}
