package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketpipe/internal/models"
	"marketpipe/internal/repository"
)

const (
	TradeSideBuy  = "BUY"
	TradeSideSell = "SELL"

	OutcomeYes = "YES"
	OutcomeNo  = "NO"
)

type TradeService struct {
	Store  repository.Repository
	Logger *zap.Logger
}

type OpenTradeInput struct {
	MarketID     string
	Side         string
	Outcome      string
	EntryPrice   float64
	PositionSize decimal.Decimal
	Confidence   *float64
	Reasoning    *string
	SignalID     *uint64
}

// OpenTrade validates the input, records the trade as open, and links the
// originating signal when one is given.
func (s *TradeService) OpenTrade(ctx context.Context, in OpenTradeInput) (*models.Trade, error) {
	marketID := strings.TrimSpace(in.MarketID)
	if marketID == "" {
		return nil, fmt.Errorf("market_id is required")
	}
	side := strings.ToUpper(strings.TrimSpace(in.Side))
	if side != TradeSideBuy && side != TradeSideSell {
		return nil, fmt.Errorf("side must be BUY or SELL, got %q", in.Side)
	}
	outcome := strings.ToUpper(strings.TrimSpace(in.Outcome))
	if outcome != OutcomeYes && outcome != OutcomeNo {
		return nil, fmt.Errorf("outcome must be YES or NO, got %q", in.Outcome)
	}
	if !in.PositionSize.IsPositive() {
		return nil, fmt.Errorf("position_size must be positive, got %s", in.PositionSize)
	}

	entry := in.EntryPrice
	item := &models.Trade{
		MarketID:     marketID,
		Side:         side,
		Outcome:      outcome,
		EntryPrice:   &entry,
		PositionSize: in.PositionSize,
		Confidence:   in.Confidence,
		Reasoning:    in.Reasoning,
		Status:       models.TradeStatusOpen,
		OpenedAt:     time.Now().UTC(),
	}
	if err := s.Store.InsertTrade(ctx, item); err != nil {
		return nil, &StoreError{Op: "insert trade", Err: err}
	}
	if in.SignalID != nil {
		if err := s.Store.MarkSignalExecuted(ctx, *in.SignalID, item.ID); err != nil && s.Logger != nil {
			s.Logger.Warn("signal link failed",
				zap.Uint64("signal_id", *in.SignalID),
				zap.Uint64("trade_id", item.ID),
				zap.Error(err))
		}
	}
	if s.Logger != nil {
		s.Logger.Info("trade opened",
			zap.Uint64("trade_id", item.ID),
			zap.String("market_id", marketID),
			zap.String("side", side),
			zap.String("outcome", outcome))
	}
	return item, nil
}

// CloseTrade computes PnL from the stored entry and the given exit, then
// applies the open -> closed transition. Closing a trade that is already
// closed surfaces repository.ErrInvalidStateTransition unchanged.
func (s *TradeService) CloseTrade(ctx context.Context, id uint64, exitPrice float64) (*models.Trade, error) {
	item, err := s.Store.GetTradeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, repository.ErrNotFound
	}

	entry := 0.0
	if item.EntryPrice != nil {
		entry = *item.EntryPrice
	}
	pnlUSD, pnlPercent := computePnL(item.Side, entry, exitPrice, item.PositionSize)

	closedAt := time.Now().UTC()
	err = s.Store.CloseTrade(ctx, id, repository.TradeClose{
		ExitPrice:  exitPrice,
		PnLUSD:     pnlUSD,
		PnLPercent: pnlPercent,
		ClosedAt:   closedAt,
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("trade closed",
			zap.Uint64("trade_id", id),
			zap.String("pnl_usd", pnlUSD.String()))
	}
	return s.Store.GetTradeByID(ctx, id)
}

// computePnL treats position_size as the USD stake. A BUY profits when the
// price rises, a SELL when it falls. pnl_percent is relative to the stake.
func computePnL(side string, entry, exit float64, size decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if entry <= 0 {
		return decimal.Zero, decimal.Zero
	}
	move := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(entry)).
		Div(decimal.NewFromFloat(entry))
	if strings.EqualFold(side, TradeSideSell) {
		move = move.Neg()
	}
	pnlUSD := size.Mul(move).Round(10)
	pnlPercent := move.Mul(decimal.NewFromInt(100)).Round(10)
	return pnlUSD, pnlPercent
}
