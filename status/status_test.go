package status

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestItemStatus_CanTransit(t *testing.T) {
	assert.Equal(t, true, PENDING.CanTransit(PROCESSING))
	assert.Equal(t, true, PROCESSING.CanTransit(RETRYING))
	assert.Equal(t, true, RETRYING.CanTransit(PROCESSING))
	assert.Equal(t, true, PROCESSING.CanTransit(ERROR))
	assert.Equal(t, false, PROCESSING.CanTransit(PENDING))
	assert.Equal(t, false, RETRYING.CanTransit(PENDING))
	assert.Equal(t, false, COMPLETED.CanTransit(PROCESSING))
	assert.Equal(t, false, ERROR.CanTransit(RETRYING))
	assert.Equal(t, false, PENDING.CanTransit(COMPLETED))
}

func TestItemStatus_Kinds(t *testing.T) {
	assert.Equal(t, true, COMPLETED.Terminal())
	assert.Equal(t, true, ERROR.Terminal())
	assert.Equal(t, false, RETRYING.Terminal())
	assert.Equal(t, true, RETRYING.InFlight())
	assert.Equal(t, false, PENDING.InFlight())
}

func TestPhase_Before(t *testing.T) {
	assert.Equal(t, true, PhasePreparing.Before(PhaseProcessing))
	assert.Equal(t, true, PhaseProcessing.Before(PhaseCompleted))
	assert.Equal(t, false, PhaseCompleted.Before(PhasePreparing))
	assert.Equal(t, false, Phase("bogus").Before(PhaseCompleted))
}
