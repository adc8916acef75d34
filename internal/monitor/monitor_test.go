package monitor

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketpipe/internal/models"
	gormrepository "marketpipe/internal/repository/gorm"
	"marketpipe/internal/service"
)

func TestClassifyFreshness(t *testing.T) {
	fresh := 20 * time.Minute
	stale := time.Hour
	cases := []struct {
		age  time.Duration
		want string
	}{
		{8 * time.Second, FreshnessFresh},
		{19 * time.Minute, FreshnessFresh},
		{20 * time.Minute, FreshnessStale},
		{25 * time.Minute, FreshnessStale},
		{time.Hour, FreshnessVeryStale},
		{90 * time.Minute, FreshnessVeryStale},
	}
	for _, tc := range cases {
		if got := ClassifyFreshness(tc.age, fresh, stale); got != tc.want {
			t.Fatalf("age=%s got=%s want=%s", tc.age, got, tc.want)
		}
	}
}

func TestFormatSuccessRate(t *testing.T) {
	if got := FormatSuccessRate(0, 0); got != "N/A" {
		t.Fatalf("got=%q want N/A", got)
	}
	if got := FormatSuccessRate(3, 4); got != "75.0%" {
		t.Fatalf("got=%q want 75.0%%", got)
	}
	if got := FormatSuccessRate(10, 10); got != "100.0%" {
		t.Fatalf("got=%q want 100.0%%", got)
	}
}

func openTestStore(t *testing.T) *gormrepository.Store {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := gdb.AutoMigrate(&models.Market{}, &models.PipelineState{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gormrepository.New(gdb)
}

func TestSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	markets := []models.Market{
		{MarketID: "m1", Question: "q", Active: true, UpdatedAt: now},
		{MarketID: "m2", Question: "q", Active: true, UpdatedAt: now},
		{MarketID: "m3", Question: "q", Resolved: true, UpdatedAt: now},
	}
	if err := store.UpsertMarkets(ctx, markets); err != nil {
		t.Fatalf("seed markets: %v", err)
	}

	lastSuccess := now.Add(-10 * time.Minute)
	m := &Monitor{
		Store: store,
		Stats: func() service.IngestStats {
			return service.IngestStats{
				TotalFetches:      10,
				SuccessfulFetches: 9,
				FailedFetches:     1,
				LastSuccessAt:     &lastSuccess,
			}
		},
		FreshWithin:          20 * time.Minute,
		StaleWithin:          time.Hour,
		SuccessRateThreshold: 80,
		Now:                  func() time.Time { return now },
	}

	snapshot, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.DataFreshness.Status != FreshnessFresh {
		t.Fatalf("freshness=%s", snapshot.DataFreshness.Status)
	}
	if snapshot.DataFreshness.AgeMinutes == nil || *snapshot.DataFreshness.AgeMinutes != 10 {
		t.Fatalf("age=%v", snapshot.DataFreshness.AgeMinutes)
	}
	if snapshot.MarketStats.Total != 3 || snapshot.MarketStats.Active != 2 || snapshot.MarketStats.Resolved != 1 {
		t.Fatalf("market_stats=%+v", snapshot.MarketStats)
	}
	if snapshot.PipelinePerformance.SuccessRate != "90.0%" {
		t.Fatalf("success_rate=%q", snapshot.PipelinePerformance.SuccessRate)
	}
	if snapshot.SystemStatus != StatusRunningNormally {
		t.Fatalf("status=%s", snapshot.SystemStatus)
	}
}

func TestSnapshot_UnknownWithoutAnySuccess(t *testing.T) {
	store := openTestStore(t)
	m := &Monitor{
		Store:                store,
		Stats:                func() service.IngestStats { return service.IngestStats{} },
		FreshWithin:          20 * time.Minute,
		StaleWithin:          time.Hour,
		SuccessRateThreshold: 80,
	}

	snapshot, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.DataFreshness.Status != FreshnessUnknown {
		t.Fatalf("freshness=%s", snapshot.DataFreshness.Status)
	}
	if snapshot.DataFreshness.AgeMinutes != nil {
		t.Fatalf("age must be nil when unknown")
	}
	if snapshot.PipelinePerformance.SuccessRate != "N/A" {
		t.Fatalf("success_rate=%q", snapshot.PipelinePerformance.SuccessRate)
	}
	if snapshot.SystemStatus != StatusDown {
		t.Fatalf("status=%s", snapshot.SystemStatus)
	}
}

func TestSnapshot_MarketRowsAloneStayUnknown(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	// Rows written out of band, no completed cycle behind them.
	markets := []models.Market{
		{MarketID: "m1", Question: "q", Active: true, UpdatedAt: now.Add(-time.Minute)},
	}
	if err := store.UpsertMarkets(ctx, markets); err != nil {
		t.Fatalf("seed markets: %v", err)
	}

	m := &Monitor{
		Store:                store,
		Stats:                func() service.IngestStats { return service.IngestStats{} },
		FreshWithin:          20 * time.Minute,
		StaleWithin:          time.Hour,
		SuccessRateThreshold: 80,
		Now:                  func() time.Time { return now },
	}

	snapshot, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.DataFreshness.Status != FreshnessUnknown {
		t.Fatalf("freshness=%s, market rows must not stand in for a cycle marker", snapshot.DataFreshness.Status)
	}
	if snapshot.DataFreshness.AgeMinutes != nil {
		t.Fatalf("age must be nil when unknown")
	}
	if snapshot.SystemStatus != StatusDown {
		t.Fatalf("status=%s", snapshot.SystemStatus)
	}
	if snapshot.MarketStats.Total != 1 {
		t.Fatalf("market_stats=%+v", snapshot.MarketStats)
	}
}

func TestSnapshot_MarkerSurvivesRestart(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	persisted := now.Add(-30 * time.Minute)
	if err := store.SavePipelineState(ctx, &models.PipelineState{
		Scope:         service.StateScopeIngest,
		LastSuccessAt: &persisted,
	}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	m := &Monitor{
		Store:                store,
		Stats:                func() service.IngestStats { return service.IngestStats{} },
		FreshWithin:          20 * time.Minute,
		StaleWithin:          time.Hour,
		SuccessRateThreshold: 80,
		Now:                  func() time.Time { return now },
	}

	snapshot, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.DataFreshness.Status != FreshnessStale {
		t.Fatalf("freshness=%s, persisted marker should be used", snapshot.DataFreshness.Status)
	}
	if snapshot.SystemStatus != StatusDegraded {
		t.Fatalf("status=%s", snapshot.SystemStatus)
	}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name       string
		freshness  string
		successful int64
		total      int64
		want       string
	}{
		{"fresh healthy", FreshnessFresh, 9, 10, StatusRunningNormally},
		{"fresh low rate", FreshnessFresh, 1, 10, StatusDegraded},
		{"fresh no fetches yet", FreshnessFresh, 0, 0, StatusRunningNormally},
		{"stale", FreshnessStale, 10, 10, StatusDegraded},
		{"very stale", FreshnessVeryStale, 10, 10, StatusDown},
		{"unknown", FreshnessUnknown, 0, 0, StatusDown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveStatus(tc.freshness, tc.successful, tc.total, 80); got != tc.want {
				t.Fatalf("got=%s want=%s", got, tc.want)
			}
		})
	}
}
