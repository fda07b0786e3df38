package main

import "math"

// fallbackBaseFeeGwei is used when the node's latest block carries no
// EIP-1559 base fee or the fee fetch fails.
const fallbackBaseFeeGwei = 20.0

type tierMultipliers struct {
	slow     float64
	standard float64
	fast     float64
	rapid    float64
}

var (
	baseMultipliers     = tierMultipliers{slow: 1.0, standard: 1.1, fast: 1.25, rapid: 1.5}
	moderateMultipliers = tierMultipliers{slow: 1.0, standard: 1.15, fast: 1.35, rapid: 1.7}
	highMultipliers     = tierMultipliers{slow: 1.0, standard: 1.2, fast: 1.5, rapid: 2.0}
)

// RecommendGasTiers derives the four price tiers from the current base fee and
// congestion severity. The multiplier table escalates once severity crosses
// 0.4 and again past 0.7, so prices stay monotone slow <= standard <= fast <=
// rapid for any input.
func RecommendGasTiers(baseFeeGwei float64, assessment CongestionAssessment) GasTierSet {
	m := baseMultipliers
	switch {
	case assessment.SeverityFactor > 0.7:
		m = highMultipliers
	case assessment.SeverityFactor > 0.4:
		m = moderateMultipliers
	}

	return GasTierSet{
		Slow: GasTier{
			PriceGwei:            roundGwei(baseFeeGwei * m.slow),
			ExpectedConfirmation: "5+ minutes",
			Description:          "Economical, may wait several blocks",
			Icon:                 "🐢",
		},
		Standard: GasTier{
			PriceGwei:            roundGwei(baseFeeGwei * m.standard),
			ExpectedConfirmation: "1-3 minutes",
			Description:          "Balanced price for typical transfers",
			Icon:                 "🚶",
		},
		Fast: GasTier{
			PriceGwei:            roundGwei(baseFeeGwei * m.fast),
			ExpectedConfirmation: "30-60 seconds",
			Description:          "Priority inclusion for time-sensitive calls",
			Icon:                 "🚗",
		},
		Rapid: GasTier{
			PriceGwei:            roundGwei(baseFeeGwei * m.rapid),
			ExpectedConfirmation: "under 30 seconds",
			Description:          "Urgent, targets the next block",
			Icon:                 "🚀",
		},
	}
}

// OptimalGasPrice suggests a single price for a desired inclusion target,
// combining a speed multiplier keyed by the target block count with the
// congestion severity.
func OptimalGasPrice(baseFeeGwei, severityFactor float64, targetBlocks int) float64 {
	speed := 1.0
	switch {
	case targetBlocks <= 1:
		speed = 1.5
	case targetBlocks <= 3:
		speed = 1.25
	case targetBlocks <= 5:
		speed = 1.1
	}
	return roundGwei(baseFeeGwei * speed * (1 + severityFactor*0.5))
}

func roundGwei(v float64) float64 {
	return math.Round(v*100) / 100
}
