package pricing

import (
	"errors"

	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/domain/shared/money"
)

var (
	ErrNegativeComponent = errors.New("pricing: components cannot be negative unless modeled as discount")
	ErrCurrencyUnset     = errors.New("pricing: currency must be defined")
	ErrNoNights          = errors.New("pricing: stay must be at least one night")
)

const (
	weeklyThresholdNights  = 7
	monthlyThresholdNights = 28
)

// Resolve returns the nightly price for one date. An override for the date
// wins, then the weekend or weekday base of the pricing context. Without a
// context the caller-supplied fallback is returned.
func Resolve(d daterange.Date, pc *listings.PricingContext, overrides map[daterange.Date]money.Money, fallback money.Money) money.Money {
	if price, ok := overrides[d]; ok {
		return price
	}
	if pc == nil {
		return fallback
	}
	if d.IsWeekend() {
		return pc.BasePricePerNightWeekend
	}
	return pc.BasePricePerNight
}

// NightlyPricer resolves a price per date; the availability model implements it.
type NightlyPricer interface {
	NightlyPrice(d daterange.Date) money.Money
}

type Night struct {
	Date  daterange.Date
	Price money.Money
}

type Fee struct {
	Name   string
	Amount money.Money
}

type Discount struct {
	Name   string
	Amount money.Money
}

type PriceBreakdown struct {
	Nights    []Night
	Subtotal  money.Money
	Fees      []Fee
	Discounts []Discount
	Total     money.Money
}

func (p *PriceBreakdown) RecalculateTotal() error {
	if len(p.Nights) == 0 {
		return ErrNoNights
	}
	currency := p.Nights[0].Price.Currency
	if currency == "" {
		return ErrCurrencyUnset
	}
	subtotal := money.Money{Currency: currency}
	for _, night := range p.Nights {
		res, err := subtotal.Add(night.Price)
		if err != nil {
			return err
		}
		subtotal = res
	}
	p.Subtotal = subtotal
	total := subtotal
	for _, fee := range p.Fees {
		if fee.Amount.Amount < 0 {
			return ErrNegativeComponent
		}
		res, err := total.Add(fee.Amount)
		if err != nil {
			return err
		}
		total = res
	}
	for _, discount := range p.Discounts {
		amount := discount.Amount
		if amount.Amount > 0 {
			amount = amount.Neg()
		}
		res, err := total.Add(amount)
		if err != nil {
			return err
		}
		total = res
	}
	if total.Amount < 0 {
		total = money.Money{Amount: 0, Currency: total.Currency}
	}
	p.Total = total
	return nil
}

type QuoteInput struct {
	Range   daterange.Range
	Pricing *listings.PricingContext
	Pets    int
}

// Quote prices every night of the stay through the pricer and applies the
// listing's fees and length-of-stay discounts. The monthly discount replaces
// the weekly one when both apply.
func Quote(pricer NightlyPricer, in QuoteInput) (PriceBreakdown, error) {
	dates := in.Range.StayNights()
	if len(dates) == 0 {
		return PriceBreakdown{}, ErrNoNights
	}
	breakdown := PriceBreakdown{Nights: make([]Night, 0, len(dates))}
	for _, d := range dates {
		breakdown.Nights = append(breakdown.Nights, Night{Date: d, Price: pricer.NightlyPrice(d)})
	}
	if err := breakdown.RecalculateTotal(); err != nil {
		return PriceBreakdown{}, err
	}
	if pc := in.Pricing; pc != nil {
		if pc.CleaningFee.Amount > 0 {
			breakdown.Fees = append(breakdown.Fees, Fee{Name: "cleaning_fee", Amount: pc.CleaningFee})
		}
		if in.Pets > 0 && pc.PetFee.Amount > 0 {
			breakdown.Fees = append(breakdown.Fees, Fee{Name: "pet_fee", Amount: pc.PetFee})
		}
		nights := len(dates)
		switch {
		case nights >= monthlyThresholdNights && pc.MonthlyDiscountPercent > 0:
			breakdown.Discounts = append(breakdown.Discounts, Discount{Name: "monthly_discount", Amount: breakdown.Subtotal.Percent(pc.MonthlyDiscountPercent)})
		case nights >= weeklyThresholdNights && pc.WeeklyDiscountPercent > 0:
			breakdown.Discounts = append(breakdown.Discounts, Discount{Name: "weekly_discount", Amount: breakdown.Subtotal.Percent(pc.WeeklyDiscountPercent)})
		}
	}
	if err := breakdown.RecalculateTotal(); err != nil {
		return PriceBreakdown{}, err
	}
	return breakdown, nil
}
