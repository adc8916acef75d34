package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketpipe/internal/models"
	"marketpipe/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Markets ----------------------------------------------------------------

// UpsertMarkets inserts or refreshes markets keyed by market_id. created_at is
// deliberately absent from the assignment list so it survives re-ingestion;
// updated_at is refreshed on every conflict.
func (s *Store) UpsertMarkets(ctx context.Context, items []models.Market) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	db := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "market_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"question",
			"description",
			"yes_price",
			"no_price",
			"volume",
			"volume_24h",
			"liquidity",
			"active",
			"resolved",
			"outcome",
			"end_date",
			"raw_json",
			"updated_at",
		}),
	})
	return createInBatches(db, items, 200)
}

func (s *Store) GetMarketByMarketID(ctx context.Context, marketID string) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	marketID = strings.TrimSpace(marketID)
	if marketID == "" {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).Model(&models.Market{}).Where("market_id = ?", marketID).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyMarketFilters(s.db.WithContext(ctx).Model(&models.Market{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "updated_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Market
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountMarkets(ctx context.Context, params repository.ListMarketsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyMarketFilters(s.db.WithContext(ctx).Model(&models.Market{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyMarketFilters(query *gorm.DB, params repository.ListMarketsParams) *gorm.DB {
	if params.Active != nil {
		query = query.Where("active = ?", *params.Active)
	}
	if params.Resolved != nil {
		query = query.Where("resolved = ?", *params.Resolved)
	}
	if params.Question != nil && strings.TrimSpace(*params.Question) != "" {
		needle := "%" + strings.TrimSpace(*params.Question) + "%"
		query = query.Where("question LIKE ?", needle)
	}
	return query
}

// --- Trades -----------------------------------------------------------------

func (s *Store) InsertTrade(ctx context.Context, item *models.Trade) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.Status == "" {
		item.Status = models.TradeStatusOpen
	}
	if item.OpenedAt.IsZero() {
		item.OpenedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetTradeByID(ctx context.Context, id uint64) (*models.Trade, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Trade
	err := s.db.WithContext(ctx).Model(&models.Trade{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyTradeFilters(s.db.WithContext(ctx).Model(&models.Trade{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "opened_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Trade
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTrades(ctx context.Context, params repository.ListTradesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyTradeFilters(s.db.WithContext(ctx).Model(&models.Trade{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CloseTrade moves a trade from open to closed with a single conditional
// update. The status predicate makes the transition race-free: a concurrent
// close wins the row and the loser observes zero affected rows.
func (s *Store) CloseTrade(ctx context.Context, id uint64, close repository.TradeClose) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	closedAt := close.ClosedAt
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("id = ?", id).
		Where("status = ?", models.TradeStatusOpen).
		Updates(map[string]any{
			"status":      models.TradeStatusClosed,
			"exit_price":  close.ExitPrice,
			"pnl_usd":     close.PnLUSD,
			"pnl_percent": close.PnLPercent,
			"closed_at":   closedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var total int64
	if err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("id = ?", id).
		Count(&total).Error; err != nil {
		return err
	}
	if total == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrInvalidStateTransition
}

func applyTradeFilters(query *gorm.DB, params repository.ListTradesParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.MarketID != nil && strings.TrimSpace(*params.MarketID) != "" {
		query = query.Where("market_id = ?", strings.TrimSpace(*params.MarketID))
	}
	return query
}

// --- Signals ----------------------------------------------------------------

func (s *Store) InsertSignal(ctx context.Context, item *models.Signal) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListSignals(ctx context.Context, params repository.ListSignalsParams) ([]models.Signal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Signal{})
	if params.Type != nil && strings.TrimSpace(*params.Type) != "" {
		query = query.Where("signal_type = ?", strings.TrimSpace(*params.Type))
	}
	if params.MarketID != nil && strings.TrimSpace(*params.MarketID) != "" {
		query = query.Where("market_id = ?", strings.TrimSpace(*params.MarketID))
	}
	if params.Executed != nil {
		query = query.Where("executed = ?", *params.Executed)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Signal
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkSignalExecuted(ctx context.Context, id uint64, tradeID uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Signal{}).
		Where("id = ?", id).
		Updates(map[string]any{"executed": true, "trade_id": tradeID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// --- Price history ----------------------------------------------------------

func (s *Store) InsertPricePoints(ctx context.Context, items []models.PriceHistory) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return createInBatches(s.db.WithContext(ctx), items, 200)
}

func (s *Store) ListPriceHistory(ctx context.Context, params repository.ListPriceHistoryParams) ([]models.PriceHistory, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.PriceHistory{})
	if params.MarketID != nil && strings.TrimSpace(*params.MarketID) != "" {
		query = query.Where("market_id = ?", strings.TrimSpace(*params.MarketID))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("timestamp >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("timestamp < ?", *params.Until)
	}
	query = applyOrder(query, "timestamp", params.Asc, "timestamp")
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.PriceHistory
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Pipeline state ---------------------------------------------------------

func (s *Store) GetPipelineState(ctx context.Context, scope string) (*models.PipelineState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, nil
	}
	var item models.PipelineState
	err := s.db.WithContext(ctx).Model(&models.PipelineState{}).Where("scope = ?", scope).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SavePipelineState(ctx context.Context, state *models.PipelineState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	if strings.TrimSpace(state.Scope) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_success_at",
			"last_attempt_at",
			"last_error",
			"stats_json",
		}),
	}).Create(state).Error
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := db.CreateInBatches(items[i:end], batchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
