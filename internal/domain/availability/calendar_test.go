package availability

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rentcal/internal/domain/booking"
	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/domain/shared/money"
)

const listingID listings.ListingID = "listing-1"

func usd(amount int64) money.Money { return money.Must(amount, "USD") }

func rng(start, end string) daterange.Range {
	return daterange.Range{Start: daterange.MustParse(start), End: daterange.MustParse(end)}
}

func baseInputs() Inputs {
	return Inputs{
		ListingID: listingID,
		Pricing: &listings.PricingContext{
			BasePricePerNight:        usd(10000),
			BasePricePerNightWeekend: usd(15000),
		},
		Stay:     &listings.StayConstraints{MinStay: 1, MaxStay: 30},
		House:    &listings.HouseRules{GuestsMax: 4},
		Fallback: usd(9000),
		Currency: "USD",
	}
}

func TestAggregateExpandsAndCollapsesBookings(t *testing.T) {
	in := baseInputs()
	in.Bookings = []booking.Booking{
		{ID: "b1", ListingID: listingID, Range: rng("2025-03-01", "2025-03-03")},
		{ID: "b2", ListingID: listingID, Range: rng("2025-03-03", "2025-03-04")},
		{ID: "other", ListingID: "listing-2", Range: rng("2025-03-10", "2025-03-12")},
	}
	m := Aggregate(in)
	got := m.BookedDates()
	want := []daterange.Date{"2025-03-01", "2025-03-02", "2025-03-03", "2025-03-04"}
	if len(got) != len(want) {
		t.Fatalf("booked=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("booked[%d]=%s want=%s", i, got[i], want[i])
		}
	}
	if m.IsBooked("2025-03-10") {
		t.Fatalf("booking of another listing leaked into the model")
	}
}

func TestAggregateNormalizesAdjustmentsAndSkipsMalformed(t *testing.T) {
	in := baseInputs()
	in.Adjustments = []RawAdjustment{
		{Date: "2025-03-05T14:30:00Z", OverridePrice: 210.5},
		{Date: primitive.NewDateTimeFromTime(time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC)), Blocked: true},
		{Date: "2025-03-07", OverridePrice: json.Number("99")},
		{Date: "2025-03-08", OverridePrice: "cheap"},
		{Date: "not-a-date", OverridePrice: 100.0},
		{Date: "2025-03-09", OverridePrice: -5.0},
		{Date: "2025-03-10", OverridePrice: int32(80)},
	}
	m := Aggregate(in)
	if price, ok := m.OverridePrice("2025-03-05"); !ok || price.Amount != 21050 {
		t.Fatalf("2025-03-05 override=%v ok=%v", price, ok)
	}
	if !m.IsBlocked("2025-03-06") {
		t.Fatalf("2025-03-06 should be blocked")
	}
	if price, ok := m.OverridePrice("2025-03-07"); !ok || price.Amount != 9900 {
		t.Fatalf("2025-03-07 override=%v ok=%v", price, ok)
	}
	if price, ok := m.OverridePrice("2025-03-10"); !ok || price.Amount != 8000 {
		t.Fatalf("2025-03-10 override=%v ok=%v", price, ok)
	}
	if len(m.Skipped()) != 3 {
		t.Fatalf("skipped=%d want=3", len(m.Skipped()))
	}
	if _, ok := m.OverridePrice("2025-03-08"); ok {
		t.Fatalf("malformed override must be ignored")
	}
}

func TestAggregateMissingRulesFailOpen(t *testing.T) {
	m := Aggregate(Inputs{
		ListingID: listingID,
		Fallback:  usd(7000),
		Failures:  []Source{SourceAdjustments, SourcePriceRule, SourceStayRules},
	})
	if m.BookingsUnknown() {
		t.Fatalf("bookings did not fail")
	}
	if m.Stay() != listings.DefaultStayConstraints() {
		t.Fatalf("stay=%+v", m.Stay())
	}
	if got := m.NightlyPrice("2025-03-01"); got.Amount != 7000 {
		t.Fatalf("fallback price=%v", got)
	}
	day := m.Day("2025-03-05", "2025-03-01")
	if !day.Selectable() {
		t.Fatalf("missing constraints should not block availability: %+v", day)
	}
}

func TestAggregateBookingsFailureIsNotAvailable(t *testing.T) {
	in := baseInputs()
	in.Failures = []Source{SourceBookings}
	m := Aggregate(in)
	day := m.Day("2025-03-05", "2025-03-01")
	if day.Selectable() || !day.IsUnknown {
		t.Fatalf("dates must not look available when bookings failed to load: %+v", day)
	}
	v := NewValidator(m, "2025-03-01", GuestPolicy)
	var violation *Violation
	if err := v.Selectable("2025-03-05"); !errors.As(err, &violation) || violation.Code != CodeUnknown {
		t.Fatalf("err=%v", err)
	}
}

func TestDaysRecord(t *testing.T) {
	in := baseInputs()
	in.Bookings = []booking.Booking{{ID: "b1", ListingID: listingID, Range: rng("2025-03-03", "2025-03-03")}}
	in.Adjustments = []RawAdjustment{{Date: "2025-03-04", OverridePrice: 50.0, Blocked: true}}
	days := Aggregate(in).Days(rng("2025-02-28", "2025-03-04"), "2025-03-01")
	if len(days) != 5 {
		t.Fatalf("days=%d", len(days))
	}
	if !days[0].IsPast || days[0].Selectable() {
		t.Fatalf("2025-02-28 should be past: %+v", days[0])
	}
	if days[1].IsPast || days[1].EffectivePrice.Amount != 15000 {
		t.Fatalf("today is selectable at weekend price: %+v", days[1])
	}
	if !days[3].IsBooked {
		t.Fatalf("2025-03-03 booked: %+v", days[3])
	}
	if !days[4].IsBlocked || days[4].EffectivePrice.Amount != 5000 {
		t.Fatalf("2025-03-04 blocked with override: %+v", days[4])
	}
}
