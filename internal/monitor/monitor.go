package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"marketpipe/internal/repository"
	"marketpipe/internal/service"
)

const (
	FreshnessFresh     = "FRESH"
	FreshnessStale     = "STALE"
	FreshnessVeryStale = "VERY_STALE"
	FreshnessUnknown   = "UNKNOWN"

	StatusRunningNormally = "RUNNING_NORMALLY"
	StatusDegraded        = "DEGRADED"
	StatusDown            = "DOWN"
)

// Monitor derives a point-in-time health report from the ingestor's counters
// and the persisted record set. It never mutates either.
type Monitor struct {
	Store  repository.Repository
	Stats  func() service.IngestStats
	Logger *zap.Logger

	FreshWithin          time.Duration
	StaleWithin          time.Duration
	SuccessRateThreshold float64

	// Now is replaceable in tests; nil means wall clock.
	Now func() time.Time
}

type Snapshot struct {
	Timestamp           time.Time   `json:"timestamp"`
	LastUpdate          *time.Time  `json:"last_update"`
	DataFreshness       Freshness   `json:"data_freshness"`
	MarketStats         MarketStats `json:"market_stats"`
	PipelinePerformance Performance `json:"pipeline_performance"`
	SystemStatus        string      `json:"system_status"`
}

type Freshness struct {
	AgeMinutes *float64 `json:"age_minutes"`
	Status     string   `json:"status"`
}

type MarketStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Resolved int64 `json:"resolved"`
}

type Performance struct {
	TotalFetches      int64  `json:"total_fetches"`
	SuccessfulFetches int64  `json:"successful_fetches"`
	FailedFetches     int64  `json:"failed_fetches"`
	SuccessRate       string `json:"success_rate"`
}

func (m *Monitor) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

// Snapshot assembles the health report. The last-update marker prefers the
// in-memory counters and falls back to the persisted pipeline state so
// freshness survives a process restart. Market rows are never consulted for
// freshness: without a completed cycle the status stays UNKNOWN.
func (m *Monitor) Snapshot(ctx context.Context) (Snapshot, error) {
	now := m.now()
	stats := m.Stats()

	lastUpdate := stats.LastSuccessAt
	if lastUpdate == nil {
		state, err := m.Store.GetPipelineState(ctx, service.StateScopeIngest)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("pipeline state read failed", zap.Error(err))
			}
		} else if state != nil {
			lastUpdate = state.LastSuccessAt
		}
	}

	freshness := Freshness{Status: FreshnessUnknown}
	if lastUpdate != nil {
		age := now.Sub(*lastUpdate)
		minutes := age.Minutes()
		freshness.AgeMinutes = &minutes
		freshness.Status = ClassifyFreshness(age, m.FreshWithin, m.StaleWithin)
	}

	marketStats, err := m.marketStats(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	performance := Performance{
		TotalFetches:      stats.TotalFetches,
		SuccessfulFetches: stats.SuccessfulFetches,
		FailedFetches:     stats.FailedFetches,
		SuccessRate:       FormatSuccessRate(stats.SuccessfulFetches, stats.TotalFetches),
	}

	return Snapshot{
		Timestamp:           now,
		LastUpdate:          lastUpdate,
		DataFreshness:       freshness,
		MarketStats:         marketStats,
		PipelinePerformance: performance,
		SystemStatus:        deriveStatus(freshness.Status, stats.SuccessfulFetches, stats.TotalFetches, m.SuccessRateThreshold),
	}, nil
}

func (m *Monitor) marketStats(ctx context.Context) (MarketStats, error) {
	total, err := m.Store.CountMarkets(ctx, repository.ListMarketsParams{})
	if err != nil {
		return MarketStats{}, err
	}
	yes := true
	active, err := m.Store.CountMarkets(ctx, repository.ListMarketsParams{Active: &yes})
	if err != nil {
		return MarketStats{}, err
	}
	resolved, err := m.Store.CountMarkets(ctx, repository.ListMarketsParams{Resolved: &yes})
	if err != nil {
		return MarketStats{}, err
	}
	return MarketStats{Total: total, Active: active, Resolved: resolved}, nil
}

// ClassifyFreshness is a pure function of the age and the two window bounds.
func ClassifyFreshness(age, freshWithin, staleWithin time.Duration) string {
	switch {
	case age < freshWithin:
		return FreshnessFresh
	case age < staleWithin:
		return FreshnessStale
	default:
		return FreshnessVeryStale
	}
}

// FormatSuccessRate renders the percentage; zero attempts is "N/A", never a
// division fault.
func FormatSuccessRate(successful, total int64) string {
	if total == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(successful)/float64(total))
}

func deriveStatus(freshness string, successful, total int64, threshold float64) string {
	switch freshness {
	case FreshnessVeryStale, FreshnessUnknown:
		return StatusDown
	case FreshnessStale:
		return StatusDegraded
	}
	// FRESH: the rate decides. An undefined rate (no fetches yet, marker
	// restored from persisted state) does not degrade the verdict.
	if total > 0 && 100*float64(successful)/float64(total) < threshold {
		return StatusDegraded
	}
	return StatusRunningNormally
}
