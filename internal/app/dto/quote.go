package dto

import (
	"rentcal/internal/domain/booking"
	"rentcal/internal/domain/pricing"
	"rentcal/internal/domain/shared/daterange"
)

type QuoteLine struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
}

type QuoteNight struct {
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
}

type Guests struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
	Pets     int `json:"pets"`
}

type Quote struct {
	ListingID     string       `json:"listing_id"`
	CheckIn       string       `json:"check_in"`
	CheckOut      string       `json:"check_out"`
	Nights        int          `json:"nights"`
	Currency      string       `json:"currency"`
	NightlyPrices []QuoteNight `json:"nightly_prices"`
	SubtotalCents int64        `json:"subtotal_cents"`
	Fees          []QuoteLine  `json:"fees,omitempty"`
	Discounts     []QuoteLine  `json:"discounts,omitempty"`
	TotalCents    int64        `json:"total_cents"`
	Guests        *Guests      `json:"guests,omitempty"`
}

func MapQuote(listingID string, r daterange.Range, pb pricing.PriceBreakdown) Quote {
	out := Quote{
		ListingID:     listingID,
		CheckIn:       r.Start.String(),
		CheckOut:      r.End.String(),
		Nights:        len(pb.Nights),
		Currency:      pb.Total.Currency,
		NightlyPrices: make([]QuoteNight, 0, len(pb.Nights)),
		SubtotalCents: pb.Subtotal.Amount,
		TotalCents:    pb.Total.Amount,
	}
	for _, n := range pb.Nights {
		out.NightlyPrices = append(out.NightlyPrices, QuoteNight{Date: n.Date.String(), AmountCents: n.Price.Amount})
	}
	for _, f := range pb.Fees {
		out.Fees = append(out.Fees, QuoteLine{Name: f.Name, AmountCents: f.Amount.Amount})
	}
	for _, d := range pb.Discounts {
		out.Discounts = append(out.Discounts, QuoteLine{Name: d.Name, AmountCents: d.Amount.Amount})
	}
	return out
}

func MapGuests(g booking.GuestCount) Guests {
	return Guests{Adults: g.Adults, Children: g.Children, Infants: g.Infants, Pets: g.Pets}
}

func (g Guests) Count() booking.GuestCount {
	return booking.GuestCount{Adults: g.Adults, Children: g.Children, Infants: g.Infants, Pets: g.Pets}
}
