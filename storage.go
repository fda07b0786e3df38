package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Storage persists network snapshots as JSON files, one per poll. Writes go
// through a buffered queue so a slow disk never blocks the polling loop.
type Storage struct {
	outputDir string
	saveQueue chan *NetworkSnapshot
	wg        sync.WaitGroup
	shutdown  chan struct{}
}

func NewStorage(outputDir string) (*Storage, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Storage{
		outputDir: outputDir,
		saveQueue: make(chan *NetworkSnapshot, 100),
		shutdown:  make(chan struct{}),
	}, nil
}

func (s *Storage) Start() {
	s.wg.Add(1)
	go s.processQueue()
}

func (s *Storage) Stop() {
	close(s.shutdown)
	s.wg.Wait()
}

func (s *Storage) SaveSnapshot(snap *NetworkSnapshot) {
	select {
	case s.saveQueue <- snap:
	default:
		logger.WithField("network", snap.Network).Warn("Snapshot save queue full, dropping snapshot")
	}
}

func (s *Storage) processQueue() {
	defer s.wg.Done()

	for {
		select {
		case <-s.shutdown:
			// Drain the queue before shutting down.
			for len(s.saveQueue) > 0 {
				s.writeSnapshot(<-s.saveQueue)
			}
			return

		case snap := <-s.saveQueue:
			s.writeSnapshot(snap)
		}
	}
}

func (s *Storage) snapshotPath(network string, ts int64) string {
	return filepath.Join(s.outputDir, fmt.Sprintf("snapshot_%s_%d.json", network, ts))
}

func (s *Storage) writeSnapshot(snap *NetworkSnapshot) {
	filename := s.snapshotPath(snap.Network, snap.LastUpdated)

	if _, err := os.Stat(filename); err == nil {
		return
	}

	file, err := os.Create(filename)
	if err != nil {
		logger.WithError(err).Errorf("Failed to create snapshot file for %s", snap.Network)
		return
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(snap); err != nil {
		logger.WithError(err).Errorf("Failed to write snapshot for %s", snap.Network)
		file.Close()
		os.Remove(filename)
		return
	}

	logger.WithFields(logrus.Fields{
		"network": snap.Network,
		"pending": snap.Status.Pending,
		"level":   snap.Congestion.Level,
	}).Info("Snapshot saved")
}

// ListSnapshotTimes returns the stored snapshot timestamps for a network,
// oldest first.
func (s *Storage) ListSnapshotTimes(network string) ([]int64, error) {
	pattern := filepath.Join(s.outputDir, fmt.Sprintf("snapshot_%s_*.json", network))
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	times := make([]int64, 0, len(files))
	for _, file := range files {
		var ts int64
		if _, err := fmt.Sscanf(filepath.Base(file), "snapshot_"+network+"_%d.json", &ts); err != nil {
			continue
		}
		times = append(times, ts)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times, nil
}

// LoadSnapshot reads one stored snapshot back.
func (s *Storage) LoadSnapshot(network string, ts int64) (*NetworkSnapshot, error) {
	file, err := os.Open(s.snapshotPath(network, ts))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap NetworkSnapshot
	if err := json.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// LoadWindow returns up to n most recent stored statuses for a network,
// oldest first, for seeding trend detection after a restart.
func (s *Storage) LoadWindow(network string, n int) ([]PoolStatus, error) {
	times, err := s.ListSnapshotTimes(network)
	if err != nil {
		return nil, err
	}
	if len(times) > n {
		times = times[len(times)-n:]
	}

	window := make([]PoolStatus, 0, len(times))
	for _, ts := range times {
		snap, err := s.LoadSnapshot(network, ts)
		if err != nil {
			continue
		}
		window = append(window, snap.Status)
	}
	return window, nil
}

// LoadLatest returns the most recent stored snapshot for a network.
func (s *Storage) LoadLatest(network string) (*NetworkSnapshot, error) {
	times, err := s.ListSnapshotTimes(network)
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("no snapshots stored for %s", network)
	}
	return s.LoadSnapshot(network, times[len(times)-1])
}
