package listings

import (
	"context"
	"errors"

	"rentcal/internal/domain/shared/money"
)

var (
	ErrRulesNotFound    = errors.New("listings: rules not found")
	ErrNegativeBase     = errors.New("listings: base prices must be non-negative")
	ErrGuestsMax        = errors.New("listings: guests max must be at least 1")
	ErrMinStay          = errors.New("listings: min stay must be at least 1")
	ErrAdvanceNotice    = errors.New("listings: advance notice must be non-negative")
	ErrDiscountPercent  = errors.New("listings: discount percent must be between 0 and 100")
	ErrListingIDMissing = errors.New("listings: listing id is required")
)

type ListingID string

// PricingContext holds the host's rule-based nightly prices and the modifiers
// applied when a stay total is quoted.
type PricingContext struct {
	BasePricePerNight        money.Money
	BasePricePerNightWeekend money.Money
	WeeklyDiscountPercent    float64
	MonthlyDiscountPercent   float64
	CleaningFee              money.Money
	PetFee                   money.Money
}

func (p PricingContext) Validate() error {
	if p.BasePricePerNight.Amount < 0 || p.BasePricePerNightWeekend.Amount < 0 {
		return ErrNegativeBase
	}
	if p.WeeklyDiscountPercent < 0 || p.WeeklyDiscountPercent > 100 {
		return ErrDiscountPercent
	}
	if p.MonthlyDiscountPercent < 0 || p.MonthlyDiscountPercent > 100 {
		return ErrDiscountPercent
	}
	return nil
}

// StayConstraints are the per-listing booking rules. MaxStay of zero means
// the stay length is unbounded.
type StayConstraints struct {
	MinStay       int
	MaxStay       int
	AdvanceNotice int
}

func DefaultStayConstraints() StayConstraints {
	return StayConstraints{MinStay: 1}
}

// Inverted reports a min stay above a bounded max stay. Such rules are
// treated as no stay-length constraint.
func (s StayConstraints) Inverted() bool {
	return s.MaxStay > 0 && s.MinStay > s.MaxStay
}

func (s StayConstraints) Validate() error {
	if s.MinStay < 1 {
		return ErrMinStay
	}
	if s.AdvanceNotice < 0 {
		return ErrAdvanceNotice
	}
	return nil
}

// Normalized clamps out-of-range values instead of rejecting them so that a
// bad record never blocks the calendar.
func (s StayConstraints) Normalized() StayConstraints {
	if s.MinStay < 1 {
		s.MinStay = 1
	}
	if s.MaxStay < 0 {
		s.MaxStay = 0
	}
	if s.AdvanceNotice < 0 {
		s.AdvanceNotice = 0
	}
	return s
}

type HouseRules struct {
	GuestsMax   int
	PetsAllowed bool
}

func DefaultHouseRules() HouseRules {
	return HouseRules{GuestsMax: 1}
}

func (h HouseRules) Validate() error {
	if h.GuestsMax < 1 {
		return ErrGuestsMax
	}
	return nil
}

// RulesQuery is the read side of the document store for per-listing rules.
// Implementations return ErrRulesNotFound when a record does not exist.
type RulesQuery interface {
	PriceRule(ctx context.Context, id ListingID) (PricingContext, error)
	StayRules(ctx context.Context, id ListingID) (StayConstraints, error)
	HouseRules(ctx context.Context, id ListingID) (HouseRules, error)
}

// RulesWriter stores rule records; used by fixtures and admin tooling.
type RulesWriter interface {
	SavePriceRule(ctx context.Context, id ListingID, p PricingContext) error
	SaveStayRules(ctx context.Context, id ListingID, s StayConstraints) error
	SaveHouseRules(ctx context.Context, id ListingID, h HouseRules) error
}
