package main

// PoolStatus is the normalized view of txpool_status for one network.
// Total is always Pending + Queued.
type PoolStatus struct {
	Pending   uint64 `json:"pending"`
	Queued    uint64 `json:"queued"`
	Total     uint64 `json:"total"`
	Timestamp int64  `json:"timestamp"` // epoch ms
	Network   string `json:"network"`
}

// RawTransaction is the node's raw view of a pooled transaction, hex fields
// kept as-is. To is empty for contract creation.
type RawTransaction struct {
	Hash     string `json:"hash"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	GasPrice string `json:"gasPrice"`
	Nonce    string `json:"nonce"`
	Value    string `json:"value"`
	Input    string `json:"input"`
}

// PoolContent mirrors the txpool_content response: sender address -> nonce ->
// transaction, for both pool sides.
type PoolContent struct {
	Pending map[string]map[string]RawTransaction `json:"pending"`
	Queued  map[string]map[string]RawTransaction `json:"queued"`
}

// DecodedFunction is the result of call-data decoding. Parameters is set only
// when the selector is recognized and the input carries the full fixed-size
// parameter block; it is never partially filled.
type DecodedFunction struct {
	Name       string            `json:"name"`
	Signature  string            `json:"signature"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Pool membership tags for classified transactions.
const (
	PoolPending = "pending"
	PoolQueued  = "queued"
	PoolRecent  = "recent"
)

// ClassifiedTransaction is a RawTransaction enriched with decode results and
// human-readable units.
type ClassifiedTransaction struct {
	RawTransaction
	Function     DecodedFunction `json:"function"`
	GasPriceGwei float64         `json:"gas_price_gwei"`
	ValueEth     float64         `json:"value_eth,omitempty"`
	Pool         string          `json:"pool"`
	SeenAt       int64           `json:"seen_at"` // epoch ms
}

type CongestionAssessment struct {
	Level                 string   `json:"level"`
	SeverityFactor        float64  `json:"severity_factor"`
	Description           string   `json:"description"`
	Color                 string   `json:"color"`
	Recommendations       []string `json:"recommendations"`
	EstimatedConfirmation string   `json:"estimated_confirmation"`
}

type GasTier struct {
	PriceGwei            float64 `json:"price_gwei"`
	ExpectedConfirmation string  `json:"expected_confirmation"`
	Description          string  `json:"description"`
	Icon                 string  `json:"icon"`
}

// GasTierSet holds the four recommendation tiers. Prices are non-decreasing
// from Slow to Rapid.
type GasTierSet struct {
	Slow     GasTier `json:"slow"`
	Standard GasTier `json:"standard"`
	Fast     GasTier `json:"fast"`
	Rapid    GasTier `json:"rapid"`
}

// NetworkSnapshot aggregates one network's pool status, congestion assessment
// and gas recommendations at a point in time.
type NetworkSnapshot struct {
	Network     string               `json:"network"`
	Status      PoolStatus           `json:"status"`
	Congestion  CongestionAssessment `json:"congestion"`
	BaseFeeGwei float64              `json:"base_fee_gwei"`
	GasTiers    GasTierSet           `json:"gas_tiers"`
	LastUpdated int64                `json:"last_updated"` // epoch ms
}

type NetworkComparison struct {
	Snapshots         []NetworkSnapshot `json:"snapshots"`
	MostCongested     string            `json:"most_congested"`
	LeastCongested    string            `json:"least_congested"`
	AveragePending    float64           `json:"average_pending"`
	TotalTransactions uint64            `json:"total_transactions"`
	CongestedNetworks []string          `json:"congested_networks"`
	Recommendations   []string          `json:"recommendations"`
}

// FunctionStats aggregates matched transactions per decoded function name.
type FunctionStats struct {
	Count           int     `json:"count"`
	Percentage      float64 `json:"percentage"`
	AvgGasPriceGwei float64 `json:"avg_gas_price_gwei"`
	TotalValueEth   float64 `json:"total_value_eth"`
}

type AnalysisSummary struct {
	TotalAnalyzed   int     `json:"total_analyzed"`
	MatchCount      int     `json:"match_count"`
	Percentage      float64 `json:"percentage"`
	TopFunction     string  `json:"top_function"`
	AvgGasPriceGwei float64 `json:"avg_gas_price_gwei"`
}

// PyusdAnalysis is the converged output shape of both analysis paths
// (privileged pool content and recent-block fallback).
type PyusdAnalysis struct {
	TotalTransactionsScanned int                       `json:"total_transactions_scanned"`
	Matches                  []ClassifiedTransaction   `json:"matches"`
	MatchCount               int                       `json:"match_count"`
	MatchPercentage          float64                   `json:"match_percentage"`
	FunctionDistribution     map[string]*FunctionStats `json:"function_distribution"`
	Summary                  AnalysisSummary           `json:"summary"`
}

// Trend directions for pending-count movement against a history window.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

type TrendReport struct {
	Network        string  `json:"network"`
	Direction      string  `json:"direction"`
	ChangePercent  float64 `json:"change_percent"`
	CurrentPending uint64  `json:"current_pending"`
	WindowAverage  float64 `json:"window_average"`
	Recommendation string  `json:"recommendation"`
}

type MethodAvailability struct {
	SupportsStatus  bool     `json:"supports_status"`
	SupportsContent bool     `json:"supports_content"`
	Errors          []string `json:"errors,omitempty"`
	Recommendations []string `json:"recommendations"`
}

// WSUpdate is the payload broadcast to WebSocket clients on every poll.
type WSUpdate struct {
	Snapshot NetworkSnapshot `json:"snapshot"`
	Trend    TrendReport     `json:"trend"`
}
