package main

import (
	"fmt"
	"time"
)

// Network throughput assumptions used for confirmation estimates.
const (
	AvgTxPerBlock = 250
	AvgBlockTime  = 12 * time.Second
)

// Pending-count thresholds separating congestion levels.
const (
	lowPendingMax      = 1000
	moderatePendingMax = 5000
	highPendingMax     = 15000
)

// Congestion levels, ordered.
const (
	CongestionLow      = "low"
	CongestionModerate = "moderate"
	CongestionHigh     = "high"
	CongestionExtreme  = "extreme"
)

type congestionProfile struct {
	level           string
	severity        float64
	description     string
	color           string
	recommendations []string
}

var congestionProfiles = []congestionProfile{
	{
		level:       CongestionLow,
		severity:    0.2,
		description: "Network is quiet, transactions confirm quickly",
		color:       "green",
		recommendations: []string{
			"Good time to transact",
			"The slow tier is sufficient for most transfers",
		},
	},
	{
		level:       CongestionModerate,
		severity:    0.5,
		description: "Normal network activity",
		color:       "yellow",
		recommendations: []string{
			"Standard gas prices should confirm promptly",
			"Avoid overpaying for priority unless time-sensitive",
		},
	},
	{
		level:       CongestionHigh,
		severity:    0.8,
		description: "Network is busy, expect delays",
		color:       "orange",
		recommendations: []string{
			"Expect longer confirmation times",
			"Use the fast tier for time-sensitive transactions",
			"Consider delaying non-urgent transactions",
		},
	},
	{
		level:       CongestionExtreme,
		severity:    1.0,
		description: "Network is heavily congested",
		color:       "red",
		recommendations: []string{
			"Only transact if urgent",
			"Use the rapid tier to avoid transactions getting stuck",
			"Consider waiting for congestion to subside",
		},
	},
}

func profileFor(pending uint64) congestionProfile {
	switch {
	case pending < lowPendingMax:
		return congestionProfiles[0]
	case pending < moderatePendingMax:
		return congestionProfiles[1]
	case pending < highPendingMax:
		return congestionProfiles[2]
	default:
		return congestionProfiles[3]
	}
}

// ClassifyCongestion maps a pending-transaction count onto a congestion
// assessment. Pure; identical input always yields identical output.
func ClassifyCongestion(pending uint64) CongestionAssessment {
	p := profileFor(pending)
	return CongestionAssessment{
		Level:                 p.level,
		SeverityFactor:        p.severity,
		Description:           p.description,
		Color:                 p.color,
		Recommendations:       append([]string(nil), p.recommendations...),
		EstimatedConfirmation: EstimateConfirmationTime(pending),
	}
}

// EstimateConfirmationTime estimates how long a newly submitted transaction
// waits before inclusion, assuming the pool drains at AvgTxPerBlock per block.
func EstimateConfirmationTime(pending uint64) string {
	blocksToWait := float64(pending) / AvgTxPerBlock
	if blocksToWait < 1 {
		blocksToWait = 1
	}
	waitSeconds := blocksToWait * AvgBlockTime.Seconds()

	switch {
	case waitSeconds < 60:
		return fmt.Sprintf("%.0f seconds", waitSeconds)
	case waitSeconds < 3600:
		return fmt.Sprintf("%.1f minutes", waitSeconds/60)
	default:
		return fmt.Sprintf("%.1f hours", waitSeconds/3600)
	}
}
