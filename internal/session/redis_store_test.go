package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"seatplan/api/internal/seating"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), ttl)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func testRecord() Record {
	chart := seating.NewChart()
	chart.SetAssignment(seating.Coord{Row: 1, Col: 2}, "Maria Lopez")
	chart.SetSeatFlags(seating.Coord{Row: 1, Col: 2}, &seating.SeatFlags{IsPriority: true, Type: seating.FlagIEP})
	now := time.Now().UTC().Truncate(time.Second)
	return Record{
		Chart:     chart.State(),
		Sync:      SyncState{Status: "idle"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	store, err := NewRedisStore("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRedisPutAndGet(t *testing.T) {
	store, s := setupTestRedis(t, time.Hour)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	record := testRecord()

	if err := store.Put(ctx, "chart_abc", record); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "chart_abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Chart.Assignments["1-2"] != "Maria Lopez" {
		t.Errorf("assignments did not survive the round trip: %v", got.Chart.Assignments)
	}
	if got.Chart.Metadata["1-2"].Type != seating.FlagIEP {
		t.Errorf("flags did not survive the round trip: %v", got.Chart.Metadata)
	}
	if got.Sync.Status != "idle" {
		t.Errorf("sync state did not survive the round trip: %+v", got.Sync)
	}
}

func TestRedisGetExpired(t *testing.T) {
	store, s := setupTestRedis(t, time.Minute)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Put(ctx, "chart_old", testRecord()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Fast-forward time in miniredis past the TTL
	s.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "chart_old")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired chart, got %v", err)
	}
}

func TestRedisPutRefreshesTTL(t *testing.T) {
	store, s := setupTestRedis(t, time.Minute)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Put(ctx, "chart_busy", testRecord()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Half the TTL passes, then the chart is written again
	s.FastForward(30 * time.Second)
	if err := store.Put(ctx, "chart_busy", testRecord()); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	// The original deadline passes; the refreshed record must survive
	s.FastForward(45 * time.Second)
	if _, err := store.Get(ctx, "chart_busy"); err != nil {
		t.Errorf("expected the refreshed chart to survive, got %v", err)
	}
}

func TestRedisGetNonExistent(t *testing.T) {
	store, s := setupTestRedis(t, time.Hour)
	defer store.Close()
	defer s.Close()

	_, err := store.Get(context.Background(), "chart_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisDelete(t *testing.T) {
	store, s := setupTestRedis(t, time.Hour)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Put(ctx, "chart_gone", testRecord()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.Delete(ctx, "chart_gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := store.Get(ctx, "chart_gone")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing chart should not error
	if err := store.Delete(ctx, "chart_gone"); err != nil {
		t.Errorf("Delete of a missing chart failed: %v", err)
	}
}

func TestRedisChartIsolation(t *testing.T) {
	store, s := setupTestRedis(t, time.Hour)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	first := testRecord()
	second := testRecord()
	second.Chart.Assignments["1-2"] = "Ben Zhao"

	if err := store.Put(ctx, "chart_1", first); err != nil {
		t.Fatalf("Put chart_1 failed: %v", err)
	}
	if err := store.Put(ctx, "chart_2", second); err != nil {
		t.Fatalf("Put chart_2 failed: %v", err)
	}

	got1, err := store.Get(ctx, "chart_1")
	if err != nil {
		t.Fatalf("Get chart_1 failed: %v", err)
	}
	got2, err := store.Get(ctx, "chart_2")
	if err != nil {
		t.Fatalf("Get chart_2 failed: %v", err)
	}
	if got1.Chart.Assignments["1-2"] != "Maria Lopez" || got2.Chart.Assignments["1-2"] != "Ben Zhao" {
		t.Errorf("charts bled into each other: %v / %v", got1.Chart.Assignments, got2.Chart.Assignments)
	}

	if err := store.Delete(ctx, "chart_1"); err != nil {
		t.Fatalf("Delete chart_1 failed: %v", err)
	}
	if _, err := store.Get(ctx, "chart_2"); err != nil {
		t.Errorf("chart_2 should survive chart_1's deletion, got %v", err)
	}
}
