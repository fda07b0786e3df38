package main

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// trendWindowSize bounds the per-network history used for trend detection.
const trendWindowSize = 20

// DataManager drives the periodic polling loop: it snapshots every configured
// network, maintains the rolling status window behind trend detection, and
// fans updates out to the WebSocket broadcast and snapshot storage.
type DataManager struct {
	analyzer *PoolAnalyzer
	storage  *Storage
	interval time.Duration

	mu      sync.RWMutex
	windows map[string][]PoolStatus
	latest  map[string]*NetworkSnapshot

	onUpdate func(WSUpdate)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDataManager(analyzer *PoolAnalyzer, storage *Storage, interval time.Duration) *DataManager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &DataManager{
		analyzer: analyzer,
		storage:  storage,
		interval: interval,
		windows:  make(map[string][]PoolStatus),
		latest:   make(map[string]*NetworkSnapshot),
		ctx:      ctx,
		cancel:   cancel,
	}

	// Seed trend windows from disk so a restart keeps its history.
	if storage != nil {
		for _, network := range analyzer.Networks() {
			window, err := storage.LoadWindow(network, trendWindowSize)
			if err != nil || len(window) == 0 {
				continue
			}
			m.windows[network] = window
			logger.WithFields(logrus.Fields{
				"network": network,
				"samples": len(window),
			}).Info("Seeded trend window from stored snapshots")
		}
	}
	return m
}

func (m *DataManager) SetUpdateCallback(callback func(WSUpdate)) {
	m.onUpdate = callback
}

func (m *DataManager) Start() {
	if m.storage != nil {
		m.storage.Start()
	}
	for _, network := range m.analyzer.Networks() {
		m.wg.Add(1)
		go m.pollNetwork(network)
	}
}

func (m *DataManager) Stop() {
	m.cancel()
	m.wg.Wait()
	if m.storage != nil {
		m.storage.Stop()
	}
}

func (m *DataManager) pollNetwork(network string) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.pollOnce(network)
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(network)
		}
	}
}

func (m *DataManager) pollOnce(network string) {
	snap, err := m.analyzer.GetNetworkConditions(m.ctx, network)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"network": network,
			"error":   err,
		}).Warn("Snapshot poll failed")
		return
	}

	trend := m.recordSnapshot(snap)

	if m.storage != nil {
		m.storage.SaveSnapshot(snap)
	}
	if m.onUpdate != nil {
		m.onUpdate(WSUpdate{Snapshot: *snap, Trend: trend})
	}
}

// recordSnapshot computes the trend against the existing window, then appends
// the new status to it.
func (m *DataManager) recordSnapshot(snap *NetworkSnapshot) TrendReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	window := m.windows[snap.Network]
	trend := DetectTrend(snap.Status, window)

	window = append(window, snap.Status)
	if len(window) > trendWindowSize {
		window = window[len(window)-trendWindowSize:]
	}
	m.windows[snap.Network] = window
	m.latest[snap.Network] = snap

	return trend
}

// TrendFor reports the current trend for a network from the stored window.
func (m *DataManager) TrendFor(network string) (TrendReport, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.latest[network]
	if !ok {
		return TrendReport{}, false
	}
	window := m.windows[network]
	if len(window) > 0 {
		// The latest status is the last window entry; trend compares it
		// against the rest.
		window = window[:len(window)-1]
	}
	return DetectTrend(snap.Status, window), true
}

// LatestSnapshot returns the most recent snapshot for a network, if any.
func (m *DataManager) LatestSnapshot(network string) (*NetworkSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.latest[network]
	return snap, ok
}
