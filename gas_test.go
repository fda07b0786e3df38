package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendGasTiersBaseTable(t *testing.T) {
	tiers := RecommendGasTiers(10.0, ClassifyCongestion(500))

	assert.Equal(t, 10.0, tiers.Slow.PriceGwei)
	assert.Equal(t, 11.0, tiers.Standard.PriceGwei)
	assert.Equal(t, 12.5, tiers.Fast.PriceGwei)
	assert.Equal(t, 15.0, tiers.Rapid.PriceGwei)
}

func TestRecommendGasTiersModerateCongestion(t *testing.T) {
	// Severity 0.5 selects the moderate multiplier table.
	tiers := RecommendGasTiers(10.0, ClassifyCongestion(2000))

	assert.Equal(t, 10.0, tiers.Slow.PriceGwei)
	assert.Equal(t, 11.5, tiers.Standard.PriceGwei)
	assert.Equal(t, 13.5, tiers.Fast.PriceGwei)
	assert.Equal(t, 17.0, tiers.Rapid.PriceGwei)
}

func TestRecommendGasTiersExtremeCongestion(t *testing.T) {
	// baseFee=15, pending=20000: extreme table, rapid doubles the base fee.
	tiers := RecommendGasTiers(15.0, ClassifyCongestion(20000))

	assert.Equal(t, 15.0, tiers.Slow.PriceGwei)
	assert.Equal(t, 18.0, tiers.Standard.PriceGwei)
	assert.Equal(t, 22.5, tiers.Fast.PriceGwei)
	assert.Equal(t, 30.0, tiers.Rapid.PriceGwei)
}

func TestRecommendGasTiersMonotonic(t *testing.T) {
	baseFees := []float64{0, 0.01, 1, 15.7, 100, 842.33}
	pendings := []uint64{0, 500, 2000, 7000, 20000}

	for _, fee := range baseFees {
		for _, pending := range pendings {
			tiers := RecommendGasTiers(fee, ClassifyCongestion(pending))
			require.LessOrEqual(t, tiers.Slow.PriceGwei, tiers.Standard.PriceGwei)
			require.LessOrEqual(t, tiers.Standard.PriceGwei, tiers.Fast.PriceGwei)
			require.LessOrEqual(t, tiers.Fast.PriceGwei, tiers.Rapid.PriceGwei)
		}
	}
}

func TestRecommendGasTiersFallbackFee(t *testing.T) {
	// The fallback constant flows through the same math, no special-casing.
	tiers := RecommendGasTiers(fallbackBaseFeeGwei, ClassifyCongestion(500))
	assert.Equal(t, fallbackBaseFeeGwei, tiers.Slow.PriceGwei)
	assert.Equal(t, 30.0, tiers.Rapid.PriceGwei)
}

func TestRecommendGasTiersIdempotent(t *testing.T) {
	assessment := ClassifyCongestion(7000)
	assert.Equal(t, RecommendGasTiers(33.33, assessment), RecommendGasTiers(33.33, assessment))
}

func TestOptimalGasPrice(t *testing.T) {
	// No congestion, relaxed target: base fee as-is.
	assert.Equal(t, 10.0, OptimalGasPrice(10, 0, 10))
	// Next-block target multiplies by 1.5.
	assert.Equal(t, 15.0, OptimalGasPrice(10, 0, 1))
	// Extreme severity compounds with the speed multiplier.
	assert.Equal(t, 22.5, OptimalGasPrice(10, 1.0, 1))
	// Mid-range target bucket.
	assert.Equal(t, 13.75, OptimalGasPrice(10, 0.5, 4))
}
