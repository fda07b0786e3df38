package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFallbackBlocks = 5
	defaultMaxRetries     = 3
	blockCacheSize        = 64
)

type AnalyzerConfig struct {
	// FallbackBlocks is how many recent blocks the fallback path scans.
	FallbackBlocks int
	// Provider pre-empts privileged calls known to fail for this vendor.
	// Empty means unknown: attempt everything.
	Provider string
	// MaxRetries caps backoff retries around recoverable RPC failures.
	MaxRetries uint64
}

// PoolAnalyzer coordinates pool queries, congestion classification, gas
// recommendations and token-transaction analysis across networks.
type PoolAnalyzer struct {
	clients    map[string]*PoolClient
	cfg        AnalyzerConfig
	blockCache *lru.Cache[string, *rawBlock]
}

func NewPoolAnalyzer(clients map[string]*PoolClient, cfg AnalyzerConfig) *PoolAnalyzer {
	if cfg.FallbackBlocks <= 0 {
		cfg.FallbackBlocks = defaultFallbackBlocks
	}
	cache, _ := lru.New[string, *rawBlock](blockCacheSize)
	return &PoolAnalyzer{clients: clients, cfg: cfg, blockCache: cache}
}

func (a *PoolAnalyzer) Networks() []string {
	names := make([]string, 0, len(a.clients))
	for name := range a.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *PoolAnalyzer) client(network string) (*PoolClient, *ClassifiedError) {
	c, ok := a.clients[network]
	if !ok {
		return nil, validationError("lookup_network", fmt.Sprintf("unknown network %q", network))
	}
	return c, nil
}

// GetNetworkConditions builds a full conditions snapshot for one network.
// Status and base fee are fetched concurrently; a failed base-fee fetch falls
// back to the default constant, a failed status fetch fails the snapshot.
func (a *PoolAnalyzer) GetNetworkConditions(ctx context.Context, network string) (*NetworkSnapshot, error) {
	c, cerr := a.client(network)
	if cerr != nil {
		return nil, cerr
	}

	var (
		status  PoolStatus
		baseFee = fallbackBaseFeeGwei
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return withRetries(gctx, a.cfg.MaxRetries, func() error {
			s, err := c.FetchStatus(gctx)
			if err != nil {
				return err
			}
			status = s
			return nil
		})
	})
	g.Go(func() error {
		fee, err := c.FetchBaseFee(gctx)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"network": network,
				"error":   err,
			}).Warn("Base fee unavailable, using fallback constant")
			return nil
		}
		baseFee = fee
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, wrapOperation("get_network_conditions", network, err)
	}

	assessment := ClassifyCongestion(status.Pending)
	return &NetworkSnapshot{
		Network:     network,
		Status:      status,
		Congestion:  assessment,
		BaseFeeGwei: baseFee,
		GasTiers:    RecommendGasTiers(baseFee, assessment),
		LastUpdated: time.Now().UnixMilli(),
	}, nil
}

// AnalyzeTokenTransactions scans the pool for PYUSD transactions. The
// privileged txpool_content path is tried first (unless the configured
// provider is known not to support it); rpc/rate-limit failures degrade to
// scanning recent blocks.
func (a *PoolAnalyzer) AnalyzeTokenTransactions(ctx context.Context, network string, pendingOnly bool) (*PyusdAnalysis, error) {
	c, cerr := a.client(network)
	if cerr != nil {
		return nil, cerr
	}

	if cap, known := LookupProvider(a.cfg.Provider); known && !cap.SupportsContent {
		logger.WithFields(logrus.Fields{
			"network":  network,
			"provider": a.cfg.Provider,
		}).Info("Provider does not expose txpool_content, scanning recent blocks")
		return a.analyzeRecentBlocks(ctx, c)
	}

	var content *PoolContent
	err := withRetries(ctx, a.cfg.MaxRetries, func() error {
		var ferr error
		content, ferr = c.FetchContent(ctx)
		return ferr
	})
	if err != nil {
		var classified *ClassifiedError
		if errors.As(err, &classified) &&
			(classified.Kind == ErrKindRPC || classified.Kind == ErrKindRateLimit) {
			logger.WithFields(logrus.Fields{
				"network": network,
				"kind":    classified.Kind,
			}).Warn("Pool content unavailable, falling back to recent blocks")
			return a.analyzeRecentBlocks(ctx, c)
		}
		return nil, wrapOperation("analyze_token_transactions", network, err)
	}

	return a.analyzePoolContent(c.network, content, pendingOnly), nil
}

func (a *PoolAnalyzer) analyzePoolContent(network string, content *PoolContent, pendingOnly bool) *PyusdAnalysis {
	total := 0
	var matches []ClassifiedTransaction

	scan := func(pool map[string]map[string]RawTransaction, membership string) {
		for _, byNonce := range pool {
			for _, tx := range byNonce {
				total++
				if !IsTokenTransaction(tx, network) {
					continue
				}
				matches = append(matches, classifyTransaction(tx, DecodeCallData(tx.Input), membership))
			}
		}
	}

	scan(content.Pending, PoolPending)
	if !pendingOnly {
		scan(content.Queued, PoolQueued)
	}

	return buildAnalysis(total, matches)
}

// analyzeRecentBlocks is the fallback path: enumerate the most recent blocks
// and classify their transactions, with best-effort trace enrichment. A block
// or trace failure skips that item, never the whole scan.
func (a *PoolAnalyzer) analyzeRecentBlocks(ctx context.Context, c *PoolClient) (*PyusdAnalysis, error) {
	head, err := c.FetchBlockNumber(ctx)
	if err != nil {
		return nil, wrapOperation("analyze_recent_blocks", c.network, err)
	}

	traceSupported := true
	if cap, known := LookupProvider(a.cfg.Provider); known {
		traceSupported = cap.SupportsTrace
	}

	total := 0
	var matches []ClassifiedTransaction
	for i := 0; i < a.cfg.FallbackBlocks && uint64(i) <= head; i++ {
		number := head - uint64(i)
		block, err := a.fetchBlockCached(ctx, c, number)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"network": c.network,
				"block":   number,
				"error":   err,
			}).Warn("Skipping unreadable block during fallback scan")
			continue
		}
		for _, tx := range block.Transactions {
			total++
			if !IsTokenTransaction(tx, c.network) {
				continue
			}
			decoded := DecodeCallData(tx.Input)
			if traceSupported {
				decoded = a.enrichFromTrace(ctx, c, tx, decoded)
			}
			matches = append(matches, classifyTransaction(tx, decoded, PoolRecent))
		}
	}

	return buildAnalysis(total, matches), nil
}

func (a *PoolAnalyzer) fetchBlockCached(ctx context.Context, c *PoolClient, number uint64) (*rawBlock, error) {
	key := fmt.Sprintf("%s:%d", c.network, number)
	if block, ok := a.blockCache.Get(key); ok {
		return block, nil
	}
	block, err := c.FetchBlock(ctx, number)
	if err != nil {
		return nil, err
	}
	a.blockCache.Add(key, block)
	return block, nil
}

// enrichFromTrace re-decodes through the call tracer's view of the input when
// static decoding came up empty. Trace failures degrade silently to the
// static result.
func (a *PoolAnalyzer) enrichFromTrace(ctx context.Context, c *PoolClient, tx RawTransaction, decoded DecodedFunction) DecodedFunction {
	if decoded.Name != "Unknown" && decoded.Parameters != nil {
		return decoded
	}
	trace, err := c.TraceTransaction(ctx, tx.Hash)
	if err != nil {
		return decoded
	}
	input, ok := trace["input"].(string)
	if !ok || len(input) <= len(tx.Input) {
		return decoded
	}
	if enriched := DecodeCallData(input); enriched.Name != "Unknown" {
		return enriched
	}
	return decoded
}

func classifyTransaction(tx RawTransaction, decoded DecodedFunction, membership string) ClassifiedTransaction {
	return ClassifiedTransaction{
		RawTransaction: tx,
		Function:       decoded,
		GasPriceGwei:   hexWeiToGwei(tx.GasPrice),
		ValueEth:       hexWeiToEth(tx.Value),
		Pool:           membership,
		SeenAt:         time.Now().UnixMilli(),
	}
}

// buildAnalysis converges both paths onto the shared analysis shape.
func buildAnalysis(total int, matches []ClassifiedTransaction) *PyusdAnalysis {
	distribution := make(map[string]*FunctionStats)
	var gasSum float64
	for _, m := range matches {
		stats, ok := distribution[m.Function.Name]
		if !ok {
			stats = &FunctionStats{}
			distribution[m.Function.Name] = stats
		}
		stats.Count++
		stats.AvgGasPriceGwei += m.GasPriceGwei
		stats.TotalValueEth += m.ValueEth
		gasSum += m.GasPriceGwei
	}

	topFunction := ""
	topCount := 0
	names := make([]string, 0, len(distribution))
	for name := range distribution {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		stats := distribution[name]
		stats.Percentage = roundGwei(float64(stats.Count) / float64(len(matches)) * 100)
		stats.AvgGasPriceGwei = roundGwei(stats.AvgGasPriceGwei / float64(stats.Count))
		if stats.Count > topCount {
			topCount = stats.Count
			topFunction = name
		}
	}

	matchPct := 0.0
	avgGas := 0.0
	if total > 0 && len(matches) > 0 {
		matchPct = roundGwei(float64(len(matches)) / float64(total) * 100)
	}
	if len(matches) > 0 {
		avgGas = roundGwei(gasSum / float64(len(matches)))
	}

	if matches == nil {
		matches = []ClassifiedTransaction{}
	}
	return &PyusdAnalysis{
		TotalTransactionsScanned: total,
		Matches:                  matches,
		MatchCount:               len(matches),
		MatchPercentage:          matchPct,
		FunctionDistribution:     distribution,
		Summary: AnalysisSummary{
			TotalAnalyzed:   total,
			MatchCount:      len(matches),
			Percentage:      matchPct,
			TopFunction:     topFunction,
			AvgGasPriceGwei: avgGas,
		},
	}
}

// CompareNetworks snapshots every requested network concurrently and
// aggregates the successes. Individual failures are logged and excluded; the
// comparison fails only when no network could be snapshotted.
func (a *PoolAnalyzer) CompareNetworks(ctx context.Context, networks []string) (*NetworkComparison, error) {
	slots := make([]*NetworkSnapshot, len(networks))
	g, gctx := errgroup.WithContext(ctx)
	for i, network := range networks {
		i, network := i, network
		g.Go(func() error {
			snap, err := a.GetNetworkConditions(gctx, network)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"network": network,
					"error":   err,
				}).Warn("Excluding network from comparison")
				return nil
			}
			slots[i] = snap
			return nil
		})
	}
	_ = g.Wait()

	snapshots := make([]NetworkSnapshot, 0, len(slots))
	for _, snap := range slots {
		if snap != nil {
			snapshots = append(snapshots, *snap)
		}
	}
	if len(snapshots) == 0 {
		return nil, &ClassifiedError{
			Kind:        ErrKindNetwork,
			Message:     "compare_networks: all network snapshots failed",
			Recoverable: true,
			Retry:       &RetryHandle{Operation: "compare_networks", Params: networks},
		}
	}

	return buildComparison(snapshots), nil
}

func buildComparison(snapshots []NetworkSnapshot) *NetworkComparison {
	most, least := snapshots[0], snapshots[0]
	var pendingSum, severitySum float64
	var totalTxs uint64
	var congested []string

	for _, snap := range snapshots {
		if snap.Status.Pending > most.Status.Pending {
			most = snap
		}
		if snap.Status.Pending < least.Status.Pending {
			least = snap
		}
		pendingSum += float64(snap.Status.Pending)
		severitySum += snap.Congestion.SeverityFactor
		totalTxs += snap.Status.Total
		if snap.Status.Pending >= moderatePendingMax {
			congested = append(congested, snap.Network)
		}
	}

	avgPending := pendingSum / float64(len(snapshots))
	meanSeverity := severitySum / float64(len(snapshots))

	recs := []string{
		fmt.Sprintf("%s has the lowest congestion (%d pending transactions)",
			least.Network, least.Status.Pending),
	}
	for _, snap := range snapshots {
		if snap.Congestion.Level == CongestionHigh || snap.Congestion.Level == CongestionExtreme {
			recs = append(recs, fmt.Sprintf("Avoid %s if possible, congestion is %s",
				snap.Network, snap.Congestion.Level))
		}
	}
	if most.Status.Pending-least.Status.Pending > 5000 {
		recs = append(recs, fmt.Sprintf("Congestion varies widely, batch transactions on %s", least.Network))
	}
	if meanSeverity > 0.7 {
		recs = append(recs, "All networks are congested, delay non-urgent transactions")
	} else if meanSeverity < 0.3 {
		recs = append(recs, "Conditions are calm everywhere, good time for batch operations")
	}

	return &NetworkComparison{
		Snapshots:         snapshots,
		MostCongested:     most.Network,
		LeastCongested:    least.Network,
		AveragePending:    avgPending,
		TotalTransactions: totalTxs,
		CongestedNetworks: congested,
		Recommendations:   recs,
	}
}

// DetectTrend compares the current pending count against the average of a
// window of previous statuses. More than a 10% swing either way is reported
// as a trend.
func DetectTrend(current PoolStatus, window []PoolStatus) TrendReport {
	report := TrendReport{
		Network:        current.Network,
		Direction:      TrendStable,
		CurrentPending: current.Pending,
	}
	if len(window) == 0 {
		report.Recommendation = "Not enough history to detect a trend"
		return report
	}

	var sum float64
	for _, s := range window {
		sum += float64(s.Pending)
	}
	avg := sum / float64(len(window))
	report.WindowAverage = avg

	change := 0.0
	if avg > 0 {
		change = (float64(current.Pending) - avg) / avg * 100
	} else if current.Pending > 0 {
		change = 100
	}
	report.ChangePercent = math.Round(change*10) / 10

	switch {
	case change > 10:
		report.Direction = TrendIncreasing
		report.Recommendation = "Congestion is rising, transact soon or raise the gas tier"
	case change < -10:
		report.Direction = TrendDecreasing
		report.Recommendation = "Congestion is easing, waiting may lower fees"
	default:
		report.Recommendation = "Congestion is stable"
	}
	return report
}

// CheckMethodAvailability probes the privileged txpool methods and reports
// what this endpoint actually supports, with guidance for the gaps.
func (a *PoolAnalyzer) CheckMethodAvailability(ctx context.Context, network string) (*MethodAvailability, error) {
	c, cerr := a.client(network)
	if cerr != nil {
		return nil, cerr
	}

	result := &MethodAvailability{}
	if _, err := c.FetchStatus(ctx); err != nil {
		result.Errors = append(result.Errors, err.Error())
	} else {
		result.SupportsStatus = true
	}
	if _, err := c.FetchContent(ctx); err != nil {
		result.Errors = append(result.Errors, err.Error())
	} else {
		result.SupportsContent = true
	}

	switch {
	case result.SupportsStatus && result.SupportsContent:
		result.Recommendations = append(result.Recommendations,
			"Full txpool access available, privileged analysis path enabled")
	case result.SupportsStatus:
		result.Recommendations = append(result.Recommendations,
			"txpool_content is unavailable, token analysis will scan recent blocks")
	default:
		result.Recommendations = append(result.Recommendations,
			"txpool access is unavailable, congestion data will be limited and analysis will scan recent blocks")
	}
	if cap, known := LookupProvider(a.cfg.Provider); known {
		result.Recommendations = append(result.Recommendations, cap.Guidance)
	}
	return result, nil
}
