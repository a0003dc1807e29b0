package service

import (
	"testing"

	"freightops/internal/apperr"
	"freightops/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestLoadingProofStageGuard(t *testing.T) {
	cases := []struct {
		stage model.TripStage
		code  string
	}{
		{model.StageRequestReceived, "trip_not_vehicle_assigned"},
		{model.StageQuoted, "trip_not_vehicle_assigned"},
		{model.StageConfirmed, "trip_not_vehicle_assigned"},
		{model.StageVehicleAssigned, ""},
		{model.StageAtLoading, ""},
		{model.StageInTransit, ""},
		{model.StagePODSoftReceived, ""},
		{model.StageClosed, "trip_closed"},
	}
	for _, tc := range cases {
		t.Run(string(tc.stage), func(t *testing.T) {
			err := loadingProofStageGuard(&model.Trip{Stage: tc.stage})
			if tc.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tc.code, apperr.CodeOf(err))
			assert.Equal(t, apperr.KindPrecondition, apperr.KindOf(err))
		})
	}
}

func TestValidateUploadMeta(t *testing.T) {
	assert.NoError(t, validateUploadMeta("proof.jpg", "image/jpeg", 1024))
	assert.NoError(t, validateUploadMeta("proof.pdf", "application/pdf", maxUploadBytes))

	assert.Equal(t, "file_name_required", apperr.CodeOf(validateUploadMeta("   ", "image/png", 10)))
	assert.Equal(t, "file_type_invalid", apperr.CodeOf(validateUploadMeta("proof.bin", "application/octet-stream", 10)))
	assert.Equal(t, "file_size_invalid", apperr.CodeOf(validateUploadMeta("proof.pdf", "application/pdf", 0)))
	assert.Equal(t, "file_size_invalid", apperr.CodeOf(validateUploadMeta("proof.pdf", "application/pdf", maxUploadBytes+1)))
}

func TestWriteAuditRejectsUnencodableDetails(t *testing.T) {
	// Marshal failure must surface before anything touches the transaction so
	// the caller rolls back instead of committing an empty details blob.
	err := writeAudit(nil, nil, model.ActionCreateTrip, model.EntityTrip, "x", map[string]interface{}{
		"callback": func() {},
	})
	assert.ErrorContains(t, err, "failed to encode audit details")
}
