package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"marketpipe/internal/client/polymarket/gamma"
	"marketpipe/internal/models"
	"marketpipe/internal/repository"
)

// StateScopeIngest is the pipeline_state scope used by the ingestion cycle.
const StateScopeIngest = "ingest"

type IngestService struct {
	Store  repository.Repository
	Gamma  *gamma.Client
	Logger *zap.Logger

	Limit      int
	ActiveOnly bool
	Keywords   []string

	// runMu serializes whole cycles regardless of trigger; the cron chain
	// only guards scheduled runs, manual triggers go through here too.
	runMu sync.Mutex

	mu    sync.Mutex
	stats IngestStats
}

// IngestStats are cumulative process-lifetime counters. SuccessfulFetches
// counts full-batch successes only; a cycle with record errors is neither a
// successful nor a failed fetch and lowers the success rate.
type IngestStats struct {
	TotalFetches      int64      `json:"total_fetches"`
	SuccessfulFetches int64      `json:"successful_fetches"`
	FailedFetches     int64      `json:"failed_fetches"`
	MarketsStored     int64      `json:"markets_stored"`
	RecordErrors      int64      `json:"record_errors"`
	LastAttemptAt     *time.Time `json:"last_attempt_at,omitempty"`
	LastSuccessAt     *time.Time `json:"last_success_at,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
}

// CycleResult summarizes one ingestion cycle.
type CycleResult struct {
	Fetched      int           `json:"fetched"`
	Matched      int           `json:"matched"`
	Stored       int           `json:"stored"`
	RecordErrors int           `json:"record_errors"`
	Duration     time.Duration `json:"duration"`
}

// RunCycle executes one fetch-filter-store pass. A failed fetch leaves the
// repository untouched and is reported to the caller; per-record store
// failures are counted and logged but never abort the rest of the batch.
// The last-update marker advances only on full-batch success. A cycle whose
// filter matches nothing is still a successful cycle. Cycles never overlap:
// a concurrent caller blocks until the in-flight cycle finishes.
func (s *IngestService) RunCycle(ctx context.Context) (CycleResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	started := time.Now().UTC()
	result := CycleResult{}

	s.mu.Lock()
	s.stats.TotalFetches++
	s.stats.LastAttemptAt = &started
	s.mu.Unlock()

	var active *bool
	if s.ActiveOnly {
		yes := true
		active = &yes
	}
	listings, err := s.Gamma.GetMarkets(ctx, &gamma.GetMarketsParams{
		Limit:  s.Limit,
		Active: active,
	})
	if err != nil {
		s.mu.Lock()
		s.stats.FailedFetches++
		s.stats.LastError = err.Error()
		s.mu.Unlock()
		s.writeStateError(ctx, started, err)
		if s.Logger != nil {
			s.Logger.Warn("market fetch failed", zap.Error(err))
		}
		result.Duration = time.Since(started)
		return result, err
	}

	result.Fetched = len(listings)
	matched := FilterMarkets(listings, s.Keywords)
	result.Matched = len(matched)

	now := time.Now().UTC()
	points := make([]models.PriceHistory, 0, len(matched))
	for _, listing := range matched {
		record := mapMarket(listing, now)
		if err := s.Store.UpsertMarkets(ctx, []models.Market{record}); err != nil {
			result.RecordErrors++
			if s.Logger != nil {
				s.Logger.Warn("market store failed",
					zap.String("market_id", listing.ID),
					zap.Error(&StoreError{Op: "upsert market", Err: err}))
			}
			continue
		}
		result.Stored++
		if point, ok := mapPricePoint(listing, now); ok {
			points = append(points, point)
		}
	}

	if len(points) > 0 {
		if err := s.Store.InsertPricePoints(ctx, points); err != nil {
			result.RecordErrors += len(points)
			if s.Logger != nil {
				s.Logger.Warn("price history store failed",
					zap.Int("points", len(points)),
					zap.Error(&StoreError{Op: "insert price points", Err: err}))
			}
		}
	}

	fullSuccess := result.RecordErrors == 0

	s.mu.Lock()
	s.stats.MarketsStored += int64(result.Stored)
	s.stats.RecordErrors += int64(result.RecordErrors)
	if fullSuccess {
		s.stats.SuccessfulFetches++
		s.stats.LastSuccessAt = &now
		s.stats.LastError = ""
	}
	snapshot := s.stats
	s.mu.Unlock()

	if fullSuccess {
		s.writeStateSuccess(ctx, started, now, snapshot)
	} else {
		s.writeStateError(ctx, started, &StoreError{
			Op:  "ingestion cycle",
			Err: fmt.Errorf("%d of %d records failed to store", result.RecordErrors, result.Matched),
		})
	}

	result.Duration = time.Since(started)
	if s.Logger != nil {
		s.Logger.Info("ingestion cycle completed",
			zap.Int("fetched", result.Fetched),
			zap.Int("matched", result.Matched),
			zap.Int("stored", result.Stored),
			zap.Int("record_errors", result.RecordErrors),
			zap.Duration("duration", result.Duration))
	}
	return result, nil
}

// Stats returns a copy of the cumulative counters.
func (s *IngestService) Stats() IngestStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// SuccessRate returns the fetch success percentage. ok is false when no
// fetch has been attempted yet.
func (s *IngestService) SuccessRate() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats.TotalFetches == 0 {
		return 0, false
	}
	return 100 * float64(s.stats.SuccessfulFetches) / float64(s.stats.TotalFetches), true
}

func (s *IngestService) writeStateSuccess(ctx context.Context, attemptAt, successAt time.Time, stats IngestStats) {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		statsJSON = nil
	}
	state := &models.PipelineState{
		Scope:         StateScopeIngest,
		LastSuccessAt: &successAt,
		LastAttemptAt: &attemptAt,
		StatsJSON:     datatypes.JSON(statsJSON),
	}
	if err := s.Store.SavePipelineState(ctx, state); err != nil && s.Logger != nil {
		s.Logger.Warn("pipeline state write failed", zap.Error(err))
	}
}

func (s *IngestService) writeStateError(ctx context.Context, attemptAt time.Time, cause error) {
	prev, err := s.Store.GetPipelineState(ctx, StateScopeIngest)
	if err != nil && s.Logger != nil {
		s.Logger.Warn("pipeline state read failed", zap.Error(err))
	}
	message := cause.Error()
	state := &models.PipelineState{
		Scope:         StateScopeIngest,
		LastAttemptAt: &attemptAt,
		LastError:     &message,
	}
	// A failed attempt must not erase the last recorded success.
	if prev != nil {
		state.LastSuccessAt = prev.LastSuccessAt
		state.StatsJSON = prev.StatsJSON
	}
	if err := s.Store.SavePipelineState(ctx, state); err != nil && s.Logger != nil {
		s.Logger.Warn("pipeline state write failed", zap.Error(err))
	}
}

func mapMarket(listing gamma.Market, now time.Time) models.Market {
	record := models.Market{
		MarketID:  listing.ID,
		Question:  listing.Question,
		Volume:    decimal.NewFromFloat(listing.Volume.Float64()),
		Volume24h: decimal.NewFromFloat(listing.Volume24h.Float64()),
		Liquidity: decimal.NewFromFloat(listing.Liquidity.Float64()),
		Active:    listing.Active && !listing.Closed,
		Resolved:  listing.Resolved,
		EndDate:   listing.EndDate.Ptr(),
		UpdatedAt: now,
	}
	if desc := listing.Description; desc != "" {
		record.Description = &desc
	}
	if outcome := listing.Outcome; outcome != "" {
		record.Outcome = &outcome
	}
	if yes, ok := listing.YesPrice(); ok {
		record.YesPrice = &yes
	}
	if no, ok := listing.NoPrice(); ok {
		record.NoPrice = &no
	}
	if len(listing.Raw) > 0 {
		record.RawJSON = datatypes.JSON(listing.Raw)
	}
	return record
}

func mapPricePoint(listing gamma.Market, now time.Time) (models.PriceHistory, bool) {
	yes, yesOK := listing.YesPrice()
	no, noOK := listing.NoPrice()
	if !yesOK || !noOK {
		return models.PriceHistory{}, false
	}
	volume := decimal.NewFromFloat(listing.Volume.Float64())
	return models.PriceHistory{
		MarketID:  listing.ID,
		YesPrice:  yes,
		NoPrice:   no,
		Volume:    &volume,
		Timestamp: now,
	}, true
}
