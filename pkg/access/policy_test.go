package access

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openstats/databank/pkg/model"
)

func TestPubliclyVisible_Exhaustive(t *testing.T) {
	dataSetStatuses := []model.DataSetStatus{
		model.DataSetStatusDraft,
		model.DataSetStatusPublished,
		model.DataSetStatusWithdrawn,
		model.DataSetStatusDeprecated,
	}
	versionStatuses := []model.VersionStatus{
		model.VersionStatusDraft,
		model.VersionStatusProcessing,
		model.VersionStatusFailed,
		model.VersionStatusPublished,
		model.VersionStatusWithdrawn,
		model.VersionStatusDeprecated,
	}

	for _, ds := range dataSetStatuses {
		for _, vs := range versionStatuses {
			t.Run(fmt.Sprintf("%s/%s", ds, vs), func(t *testing.T) {
				want := ds == model.DataSetStatusPublished && vs == model.VersionStatusPublished
				assert.Equal(t, want, PubliclyVisible(ds, vs))
			})
		}
	}
}

func TestPubliclyVisible_UnknownStatuses(t *testing.T) {
	assert.False(t, PubliclyVisible(model.DataSetStatus("Archived"), model.VersionStatusPublished))
	assert.False(t, PubliclyVisible(model.DataSetStatusPublished, model.VersionStatus("Superseded")))
}
