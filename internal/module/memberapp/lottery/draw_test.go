package lottery

import (
	"math/rand"
	"testing"

	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseUnit(t *testing.T) {
	units := []PrizeUnit{
		{ID: "PU-1", Name: "gold", Weight: 1},
		{ID: "PU-2", Name: "silver", Weight: 1},
		{ID: "PU-3", Name: "none", Weight: 2, NullResult: true},
	}

	t.Run("picks the first unit for a low draw value", func(t *testing.T) {
		unit, err := chooseUnit(units, 0)
		require.NoError(t, err)
		assert.Equal(t, "PU-1", unit.ID)
	})

	t.Run("picks the last unit for a draw value near one", func(t *testing.T) {
		unit, err := chooseUnit(units, 0.999999)
		require.NoError(t, err)
		assert.Equal(t, "PU-3", unit.ID)
	})

	t.Run("skips units without weight", func(t *testing.T) {
		unit, err := chooseUnit([]PrizeUnit{
			{ID: "PU-1", Weight: 0},
			{ID: "PU-2", Weight: 1},
		}, 0)
		require.NoError(t, err)
		assert.Equal(t, "PU-2", unit.ID)
	})

	t.Run("rejects a pool without drawable weight", func(t *testing.T) {
		_, err := chooseUnit([]PrizeUnit{
			{ID: "PU-1", Weight: 0},
			{ID: "PU-2", Weight: -3},
		}, 0.5)
		require.Error(t, err)
		assert.Equal(t, status.INVALID_INVENTORY, errors.Destruct(err).Status)
	})
}

func TestChooseUnitDistribution(t *testing.T) {
	units := []PrizeUnit{
		{ID: "PU-1", Weight: 1},
		{ID: "PU-2", Weight: 1},
		{ID: "PU-3", Weight: 2},
	}

	rng := rand.New(rand.NewSource(42))
	draws := 100000
	hits := map[string]int{}

	for i := 0; i < draws; i++ {
		unit, err := chooseUnit(units, rng.Float64())
		require.NoError(t, err)
		hits[unit.ID]++
	}

	assert.InDelta(t, 0.25, float64(hits["PU-1"])/float64(draws), 0.01)
	assert.InDelta(t, 0.25, float64(hits["PU-2"])/float64(draws), 0.01)
	assert.InDelta(t, 0.50, float64(hits["PU-3"])/float64(draws), 0.01)
}
