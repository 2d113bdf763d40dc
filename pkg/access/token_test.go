package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openstats/databank/pkg/model"
)

func TestTokenValidator_Grants(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	target := &model.DataSetVersion{ID: "version-1", DataSetID: "ds-1"}

	newValidator := func(store *mockStore) *TokenValidator {
		v := NewTokenValidator(store)
		v.now = func() time.Time { return now }
		return v
	}

	t.Run("valid token for exact version", func(t *testing.T) {
		store := newMockStore()
		store.tokens["tok-1"] = &model.PreviewToken{
			ID:               "tok-1",
			DataSetVersionID: "version-1",
			Expiry:           now.Add(24 * time.Hour),
		}
		assert.True(t, newValidator(store).Grants(context.Background(), target, "tok-1"))
	})

	t.Run("no token supplied", func(t *testing.T) {
		store := newMockStore()
		assert.False(t, newValidator(store).Grants(context.Background(), target, ""))
	})

	t.Run("unknown token", func(t *testing.T) {
		store := newMockStore()
		assert.False(t, newValidator(store).Grants(context.Background(), target, "missing"))
	})

	t.Run("token bound to a different version", func(t *testing.T) {
		store := newMockStore()
		store.tokens["tok-1"] = &model.PreviewToken{
			ID:               "tok-1",
			DataSetVersionID: "version-2",
			Expiry:           now.Add(24 * time.Hour),
		}
		assert.False(t, newValidator(store).Grants(context.Background(), target, "tok-1"))
	})

	t.Run("expired token", func(t *testing.T) {
		store := newMockStore()
		store.tokens["tok-1"] = &model.PreviewToken{
			ID:               "tok-1",
			DataSetVersionID: "version-1",
			Expiry:           now.Add(-time.Minute),
		}
		assert.False(t, newValidator(store).Grants(context.Background(), target, "tok-1"))
	})

	t.Run("expiry boundary is exclusive", func(t *testing.T) {
		store := newMockStore()
		store.tokens["tok-1"] = &model.PreviewToken{
			ID:               "tok-1",
			DataSetVersionID: "version-1",
			Expiry:           now,
		}
		assert.False(t, newValidator(store).Grants(context.Background(), target, "tok-1"))
	})

	t.Run("lookup error is a denial", func(t *testing.T) {
		store := newMockStore()
		store.getTokenErr = assert.AnError
		assert.False(t, newValidator(store).Grants(context.Background(), target, "tok-1"))
	})
}
