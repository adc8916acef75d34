package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"marketpipe/internal/models"
)

// ErrNotFound is returned by write operations that target a missing row.
// Read operations return (nil, nil) for missing rows instead.
var ErrNotFound = errors.New("repository: record not found")

// ErrInvalidStateTransition is returned when a state change is requested on a
// row that is not in the required source state, e.g. closing a closed trade.
var ErrInvalidStateTransition = errors.New("repository: invalid state transition")

type Repository interface {
	// Markets
	UpsertMarkets(ctx context.Context, items []models.Market) error
	GetMarketByMarketID(ctx context.Context, marketID string) (*models.Market, error)
	ListMarkets(ctx context.Context, params ListMarketsParams) ([]models.Market, error)
	CountMarkets(ctx context.Context, params ListMarketsParams) (int64, error)

	// Trades
	InsertTrade(ctx context.Context, item *models.Trade) error
	GetTradeByID(ctx context.Context, id uint64) (*models.Trade, error)
	ListTrades(ctx context.Context, params ListTradesParams) ([]models.Trade, error)
	CountTrades(ctx context.Context, params ListTradesParams) (int64, error)
	CloseTrade(ctx context.Context, id uint64, close TradeClose) error

	// Signals
	InsertSignal(ctx context.Context, item *models.Signal) error
	ListSignals(ctx context.Context, params ListSignalsParams) ([]models.Signal, error)
	MarkSignalExecuted(ctx context.Context, id uint64, tradeID uint64) error

	// Price history
	InsertPricePoints(ctx context.Context, items []models.PriceHistory) error
	ListPriceHistory(ctx context.Context, params ListPriceHistoryParams) ([]models.PriceHistory, error)

	// Pipeline state
	GetPipelineState(ctx context.Context, scope string) (*models.PipelineState, error)
	SavePipelineState(ctx context.Context, state *models.PipelineState) error
}

type ListMarketsParams struct {
	Limit    int
	Offset   int
	Active   *bool
	Resolved *bool
	Question *string
	OrderBy  string
	Asc      *bool
}

type ListTradesParams struct {
	Limit    int
	Offset   int
	Status   *string
	MarketID *string
	OrderBy  string
	Asc      *bool
}

type ListSignalsParams struct {
	Limit    int
	Offset   int
	Type     *string
	MarketID *string
	Executed *bool
	Since    *time.Time
	OrderBy  string
	Asc      *bool
}

type ListPriceHistoryParams struct {
	Limit    int
	Offset   int
	MarketID *string
	Since    *time.Time
	Until    *time.Time
	Asc      *bool
}

// TradeClose carries the exit values applied when a trade moves open -> closed.
type TradeClose struct {
	ExitPrice  float64
	PnLUSD     decimal.Decimal
	PnLPercent decimal.Decimal
	ClosedAt   time.Time
}
