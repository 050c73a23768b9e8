package availability

import (
	"sort"

	"rentcal/internal/domain/booking"
	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/pricing"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/domain/shared/money"
)

// Source names one of the independent reads that feed an aggregation.
type Source string

const (
	SourceBookings    Source = "bookings"
	SourceAdjustments Source = "adjustments"
	SourcePriceRule   Source = "price_rule"
	SourceStayRules   Source = "stay_rules"
	SourceHouseRules  Source = "house_rules"
)

// Inputs are the raw collections collected for one listing. A nil Pricing,
// Stay or House means the record is missing; Failures lists the reads that
// errored.
type Inputs struct {
	ListingID   listings.ListingID
	Bookings    []booking.Booking
	Adjustments []RawAdjustment
	Pricing     *listings.PricingContext
	Stay        *listings.StayConstraints
	House       *listings.HouseRules
	Fallback    money.Money
	Currency    string
	Failures    []Source
}

// SkippedAdjustment records a raw adjustment dropped during aggregation.
type SkippedAdjustment struct {
	Raw RawAdjustment
	Err error
}

// Model is the canonical per-listing calendar built by Aggregate. It is never
// patched: a change in any input means building a new Model.
type Model struct {
	listingID       listings.ListingID
	booked          map[daterange.Date]struct{}
	blocked         map[daterange.Date]struct{}
	overrides       map[daterange.Date]money.Money
	pricing         *listings.PricingContext
	stay            listings.StayConstraints
	house           listings.HouseRules
	fallback        money.Money
	bookingsUnknown bool
	failures        []Source
	skipped         []SkippedAdjustment
}

// Aggregate normalizes the inputs into date-keyed lookups. Booking ranges are
// expanded day by day, both ends included; overlapping bookings collapse into
// a single booked marker per date. Malformed adjustments are skipped.
func Aggregate(in Inputs) *Model {
	m := &Model{
		listingID: in.ListingID,
		booked:    make(map[daterange.Date]struct{}),
		blocked:   make(map[daterange.Date]struct{}),
		overrides: make(map[daterange.Date]money.Money),
		stay:      listings.DefaultStayConstraints(),
		house:     listings.DefaultHouseRules(),
		fallback:  in.Fallback,
		failures:  append([]Source(nil), in.Failures...),
	}
	for _, src := range in.Failures {
		if src == SourceBookings {
			m.bookingsUnknown = true
		}
	}
	for _, b := range in.Bookings {
		if b.ListingID != "" && b.ListingID != in.ListingID {
			continue
		}
		for _, d := range b.Range.Expand() {
			m.booked[d] = struct{}{}
		}
	}
	currency := in.Currency
	if currency == "" {
		currency = in.Fallback.Currency
	}
	for _, raw := range in.Adjustments {
		adj, err := ParseAdjustment(in.ListingID, raw, currency)
		if err != nil {
			m.skipped = append(m.skipped, SkippedAdjustment{Raw: raw, Err: err})
			continue
		}
		if adj.Blocked {
			m.blocked[adj.Date] = struct{}{}
		}
		if adj.OverridePrice != nil {
			m.overrides[adj.Date] = *adj.OverridePrice
		}
	}
	if in.Pricing != nil {
		pc := *in.Pricing
		m.pricing = &pc
	}
	if in.Stay != nil {
		m.stay = in.Stay.Normalized()
	}
	if in.House != nil && in.House.Validate() == nil {
		m.house = *in.House
	}
	return m
}

func (m *Model) ListingID() listings.ListingID { return m.listingID }

func (m *Model) IsBooked(d daterange.Date) bool {
	_, ok := m.booked[d]
	return ok
}

func (m *Model) IsBlocked(d daterange.Date) bool {
	_, ok := m.blocked[d]
	return ok
}

// BookingsUnknown reports that bookings could not be loaded, so no date can
// be confirmed as free.
func (m *Model) BookingsUnknown() bool { return m.bookingsUnknown }

func (m *Model) Failures() []Source { return append([]Source(nil), m.failures...) }

func (m *Model) Skipped() []SkippedAdjustment { return append([]SkippedAdjustment(nil), m.skipped...) }

func (m *Model) Stay() listings.StayConstraints { return m.stay }

func (m *Model) House() listings.HouseRules { return m.house }

// Pricing returns a copy of the pricing context, or nil when none was loaded.
func (m *Model) Pricing() *listings.PricingContext {
	if m.pricing == nil {
		return nil
	}
	pc := *m.pricing
	return &pc
}

func (m *Model) OverridePrice(d daterange.Date) (money.Money, bool) {
	price, ok := m.overrides[d]
	return price, ok
}

func (m *Model) NightlyPrice(d daterange.Date) money.Money {
	return pricing.Resolve(d, m.pricing, m.overrides, m.fallback)
}

func (m *Model) BookedDates() []daterange.Date { return sortedKeys(m.booked) }

func (m *Model) BlockedDates() []daterange.Date { return sortedKeys(m.blocked) }

// Day is the canonical per-date record.
type Day struct {
	Date           daterange.Date
	IsBooked       bool
	IsBlocked      bool
	IsPast         bool
	IsUnknown      bool
	EffectivePrice money.Money
}

func (d Day) Selectable() bool {
	return !d.IsBooked && !d.IsBlocked && !d.IsPast && !d.IsUnknown
}

func (m *Model) Day(d daterange.Date, today daterange.Date) Day {
	past := d.Before(today)
	return Day{
		Date:           d,
		IsBooked:       m.IsBooked(d),
		IsBlocked:      m.IsBlocked(d),
		IsPast:         past,
		IsUnknown:      m.bookingsUnknown && !past,
		EffectivePrice: m.NightlyPrice(d),
	}
}

// Days builds records for every date of r.
func (m *Model) Days(r daterange.Range, today daterange.Date) []Day {
	dates := r.Expand()
	out := make([]Day, 0, len(dates))
	for _, d := range dates {
		out = append(out, m.Day(d, today))
	}
	return out
}

func sortedKeys(set map[daterange.Date]struct{}) []daterange.Date {
	out := make([]daterange.Date, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
