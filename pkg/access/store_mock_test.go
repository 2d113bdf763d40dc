package access

import (
	"context"

	"github.com/openstats/databank/pkg/model"
	"github.com/openstats/databank/pkg/storage"
)

// mockStore is an in-memory Store for exercising resolution and access
// decisions without a backing database.
type mockStore struct {
	dataSets map[string]*model.DataSet
	versions map[string]*model.DataSetVersion
	tokens   map[string]*model.PreviewToken

	getDataSetErr   error
	getVersionErr   error
	listVersionsErr error
	getTokenErr     error
}

func newMockStore() *mockStore {
	return &mockStore{
		dataSets: make(map[string]*model.DataSet),
		versions: make(map[string]*model.DataSetVersion),
		tokens:   make(map[string]*model.PreviewToken),
	}
}

func (m *mockStore) GetDataSet(ctx context.Context, id string) (*model.DataSet, error) {
	if m.getDataSetErr != nil {
		return nil, m.getDataSetErr
	}
	ds, ok := m.dataSets[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return ds, nil
}

func (m *mockStore) GetDataSetVersionByID(ctx context.Context, id string) (*model.DataSetVersion, error) {
	if m.getVersionErr != nil {
		return nil, m.getVersionErr
	}
	v, ok := m.versions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func (m *mockStore) ListDataSetVersions(ctx context.Context, dataSetID string) ([]*model.DataSetVersion, error) {
	if m.listVersionsErr != nil {
		return nil, m.listVersionsErr
	}
	var versions []*model.DataSetVersion
	for _, v := range m.versions {
		if v.DataSetID == dataSetID {
			versions = append(versions, v)
		}
	}
	return versions, nil
}

func (m *mockStore) GetPreviewToken(ctx context.Context, id string) (*model.PreviewToken, error) {
	if m.getTokenErr != nil {
		return nil, m.getTokenErr
	}
	t, ok := m.tokens[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return t, nil
}
