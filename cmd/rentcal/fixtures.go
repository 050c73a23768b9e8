package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	domainavailability "rentcal/internal/domain/availability"
	domainbooking "rentcal/internal/domain/booking"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/domain/shared/money"
)

// calendarFixture seeds one listing: its rules, bookings and host
// adjustments. Prices are in minor units except adjustment overrides, which
// are stored as entered by hosts.
type calendarFixture struct {
	ListingID string `json:"listing_id"`
	Currency  string `json:"currency"`
	Price     *struct {
		BaseCents       int64   `json:"base_cents"`
		WeekendCents    int64   `json:"weekend_cents"`
		WeeklyDiscount  float64 `json:"weekly_discount_percent"`
		MonthlyDiscount float64 `json:"monthly_discount_percent"`
		CleaningCents   int64   `json:"cleaning_fee_cents"`
		PetFeeCents     int64   `json:"pet_fee_cents"`
	} `json:"price_rule"`
	Stay *struct {
		MinStay       int `json:"min_stay"`
		MaxStay       int `json:"max_stay"`
		AdvanceNotice int `json:"advance_notice"`
	} `json:"stay_rules"`
	House *struct {
		GuestsMax   int  `json:"guests_max"`
		PetsAllowed bool `json:"pets_allowed"`
	} `json:"house_rules"`
	Bookings []struct {
		ID       string `json:"id"`
		CheckIn  string `json:"check_in"`
		CheckOut string `json:"check_out"`
	} `json:"bookings"`
	Adjustments []struct {
		Date          string   `json:"date"`
		OverridePrice *float64 `json:"override_price"`
		Blocked       bool     `json:"blocked"`
	} `json:"adjustments"`
}

func loadCalendarFixtures(ctx context.Context, path string, st stores, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("calendar fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("calendar fixtures file empty", "path", path)
		return nil
	}
	var fixtures []calendarFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	for _, fx := range fixtures {
		if err := seedFixture(ctx, fx, st); err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ListingID, "error", err)
			continue
		}
		logger.Info("calendar fixture imported", "listing_id", fx.ListingID, "bookings", len(fx.Bookings), "adjustments", len(fx.Adjustments))
	}
	return nil
}

func seedFixture(ctx context.Context, fx calendarFixture, st stores) error {
	id := domainlistings.ListingID(fx.ListingID)
	if id == "" {
		return domainlistings.ErrListingIDMissing
	}
	currency := fx.Currency
	if currency == "" {
		currency = "USD"
	}
	if p := fx.Price; p != nil {
		pc := domainlistings.PricingContext{
			WeeklyDiscountPercent:  p.WeeklyDiscount,
			MonthlyDiscountPercent: p.MonthlyDiscount,
		}
		var err error
		for _, f := range []struct {
			dst   *money.Money
			cents int64
		}{
			{&pc.BasePricePerNight, p.BaseCents},
			{&pc.BasePricePerNightWeekend, p.WeekendCents},
			{&pc.CleaningFee, p.CleaningCents},
			{&pc.PetFee, p.PetFeeCents},
		} {
			if *f.dst, err = money.New(f.cents, currency); err != nil {
				return err
			}
		}
		if err := st.rules.SavePriceRule(ctx, id, pc); err != nil {
			return err
		}
	}
	if s := fx.Stay; s != nil {
		if err := st.rules.SaveStayRules(ctx, id, domainlistings.StayConstraints{MinStay: s.MinStay, MaxStay: s.MaxStay, AdvanceNotice: s.AdvanceNotice}); err != nil {
			return err
		}
	}
	if h := fx.House; h != nil {
		if err := st.rules.SaveHouseRules(ctx, id, domainlistings.HouseRules{GuestsMax: h.GuestsMax, PetsAllowed: h.PetsAllowed}); err != nil {
			return err
		}
	}
	for _, b := range fx.Bookings {
		r, err := parseRange(b.CheckIn, b.CheckOut)
		if err != nil {
			return fmt.Errorf("booking %s: %w", b.ID, err)
		}
		booking, err := domainbooking.New(domainbooking.BookingID(b.ID), id, r)
		if err != nil {
			return err
		}
		if err := st.bookings.Add(ctx, booking); err != nil {
			return err
		}
	}
	for _, a := range fx.Adjustments {
		d, err := daterange.Parse(a.Date)
		if err != nil {
			return fmt.Errorf("adjustment %q: %w", a.Date, err)
		}
		adj := domainavailability.Adjustment{ListingID: id, Date: d, Blocked: a.Blocked}
		if a.OverridePrice != nil {
			price, err := money.FromMajor(*a.OverridePrice, currency)
			if err != nil {
				return err
			}
			adj.OverridePrice = &price
		}
		if err := st.adjustments.Upsert(ctx, adj); err != nil {
			return err
		}
	}
	return nil
}

func parseRange(checkIn, checkOut string) (daterange.Range, error) {
	start, err := daterange.Parse(checkIn)
	if err != nil {
		return daterange.Range{}, err
	}
	end, err := daterange.Parse(checkOut)
	if err != nil {
		return daterange.Range{}, err
	}
	return daterange.New(start, end)
}
