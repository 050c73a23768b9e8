package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"rentcal/internal/infra/config"
)

const fixturesJSON = `[
  {
    "listing_id": "loft-1",
    "currency": "EUR",
    "price_rule": {"base_cents": 9000, "weekend_cents": 11000, "cleaning_fee_cents": 2000},
    "stay_rules": {"min_stay": 2, "max_stay": 14},
    "house_rules": {"guests_max": 4, "pets_allowed": true},
    "bookings": [{"id": "b-1", "check_in": "2025-05-02", "check_out": "2025-05-04"}],
    "adjustments": [{"date": "2025-05-10", "override_price": 70}, {"date": "2025-05-11", "blocked": true}]
  },
  {"listing_id": "", "currency": "EUR"}
]`

func TestLoadCalendarFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.json")
	if err := os.WriteFile(path, []byte(fixturesJSON), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err := openStores(context.Background(), config.Config{StoreMode: config.StoreMemory})
	if err != nil {
		t.Fatalf("stores: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := loadCalendarFixtures(context.Background(), path, st, logger); err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx := context.Background()
	pc, err := st.rules.PriceRule(ctx, "loft-1")
	if err != nil || pc.BasePricePerNight.Amount != 9000 || pc.BasePricePerNight.Currency != "EUR" {
		t.Fatalf("price rule=%+v err=%v", pc, err)
	}
	bookings, _ := st.bookings.ListByListing(ctx, "loft-1")
	if len(bookings) != 1 {
		t.Fatalf("bookings=%+v", bookings)
	}
	adjustments, _ := st.adjustments.ListByListing(ctx, "loft-1")
	if len(adjustments) != 2 {
		t.Fatalf("adjustments=%+v", adjustments)
	}
}

func TestLoadCalendarFixturesMissingFile(t *testing.T) {
	st, _ := openStores(context.Background(), config.Config{StoreMode: config.StoreMemory})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := loadCalendarFixtures(context.Background(), filepath.Join(t.TempDir(), "none.json"), st, logger); err != nil {
		t.Fatalf("missing file should be skipped: %v", err)
	}
}
