package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketpipe/internal/repository"
)

func TestComputePnL(t *testing.T) {
	size := decimal.NewFromInt(100)

	pnl, pct := computePnL(TradeSideBuy, 0.40, 0.50, size)
	if pnl.StringFixed(2) != "25.00" {
		t.Fatalf("pnl=%s want 25.00", pnl)
	}
	if pct.StringFixed(2) != "25.00" {
		t.Fatalf("pct=%s want 25.00", pct)
	}

	pnl, _ = computePnL(TradeSideSell, 0.40, 0.50, size)
	if pnl.StringFixed(2) != "-25.00" {
		t.Fatalf("pnl=%s want -25.00", pnl)
	}

	pnl, pct = computePnL(TradeSideBuy, 0, 0.50, size)
	if !pnl.IsZero() || !pct.IsZero() {
		t.Fatalf("zero entry must yield zero pnl, got %s %s", pnl, pct)
	}
}

func TestOpenTrade_Validation(t *testing.T) {
	svc := &TradeService{Store: openTestStore(t), Logger: zap.NewNop()}
	ctx := context.Background()

	cases := []struct {
		name string
		in   OpenTradeInput
	}{
		{"missing market", OpenTradeInput{Side: "BUY", Outcome: "YES", PositionSize: decimal.NewFromInt(1)}},
		{"bad side", OpenTradeInput{MarketID: "m1", Side: "LONG", Outcome: "YES", PositionSize: decimal.NewFromInt(1)}},
		{"bad outcome", OpenTradeInput{MarketID: "m1", Side: "BUY", Outcome: "MAYBE", PositionSize: decimal.NewFromInt(1)}},
		{"zero size", OpenTradeInput{MarketID: "m1", Side: "BUY", Outcome: "YES"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.OpenTrade(ctx, tc.in); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestOpenThenCloseTrade(t *testing.T) {
	store := openTestStore(t)
	svc := &TradeService{Store: store, Logger: zap.NewNop()}
	ctx := context.Background()

	item, err := svc.OpenTrade(ctx, OpenTradeInput{
		MarketID:     "m1",
		Side:         "buy",
		Outcome:      "yes",
		EntryPrice:   0.40,
		PositionSize: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if item.Side != TradeSideBuy || item.Outcome != OutcomeYes {
		t.Fatalf("normalization failed: %+v", item)
	}

	closed, err := svc.CloseTrade(ctx, item.ID, 0.50)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != "closed" || closed.PnLUSD == nil {
		t.Fatalf("closed=%+v", closed)
	}
	if closed.PnLUSD.StringFixed(2) != "25.00" {
		t.Fatalf("pnl=%s want 25.00", closed.PnLUSD)
	}

	if _, err := svc.CloseTrade(ctx, item.ID, 0.60); !errors.Is(err, repository.ErrInvalidStateTransition) {
		t.Fatalf("err=%v want ErrInvalidStateTransition", err)
	}

	if _, err := svc.CloseTrade(ctx, 999, 0.60); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}
