package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageSequence(t *testing.T) {
	stages := Stages()
	require.Len(t, stages, 13)
	assert.Equal(t, StageRequestReceived, stages[0])
	assert.Equal(t, StageClosed, stages[len(stages)-1])

	// Ranks are strictly increasing along the sequence.
	for i := 1; i < len(stages); i++ {
		assert.Greater(t, stages[i].Rank(), stages[i-1].Rank())
	}
}

func TestStageValid(t *testing.T) {
	for _, s := range Stages() {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, TripStage("cancelled").Valid())
	assert.False(t, TripStage("").Valid())
	assert.Equal(t, -1, TripStage("bogus").Rank())
}

func TestStageTerminal(t *testing.T) {
	assert.True(t, StageClosed.Terminal())
	for _, s := range Stages()[:len(Stages())-1] {
		assert.False(t, s.Terminal(), string(s))
	}
}

func TestStageAtLeast(t *testing.T) {
	assert.True(t, StageInTransit.AtLeast(StageVehicleAssigned))
	assert.True(t, StageVehicleAssigned.AtLeast(StageVehicleAssigned))
	assert.False(t, StageConfirmed.AtLeast(StageVehicleAssigned))
	assert.False(t, TripStage("bogus").AtLeast(StageQuoted))
	assert.False(t, StageQuoted.AtLeast(TripStage("bogus")))
}

func TestStagePredecessor(t *testing.T) {
	_, ok := StageRequestReceived.Predecessor()
	assert.False(t, ok, "initial stage has no predecessor")

	stages := Stages()
	for i := 1; i < len(stages); i++ {
		pred, ok := stages[i].Predecessor()
		require.True(t, ok, string(stages[i]))
		assert.Equal(t, stages[i-1], pred)
	}

	_, ok = TripStage("bogus").Predecessor()
	assert.False(t, ok)
}

func TestStagePreconditionCodes(t *testing.T) {
	// Every stage past the first names the error for a skipped transition.
	for _, s := range Stages()[1:] {
		assert.NotEmpty(t, s.PreconditionCode(), string(s))
	}
	assert.Equal(t, "trip_not_advance_paid", StageInTransit.PreconditionCode())
	assert.Equal(t, "trip_not_customer_collected", StageClosed.PreconditionCode())
}
