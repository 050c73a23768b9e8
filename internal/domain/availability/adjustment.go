package availability

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/domain/shared/money"
)

var ErrMalformedOverride = errors.New("availability: override price is not a non-negative number")

// Adjustment is the host's per-date entry: an optional override price and a
// blocked flag. There is at most one adjustment per (listing, date).
type Adjustment struct {
	ListingID     listings.ListingID
	Date          daterange.Date
	OverridePrice *money.Money
	Blocked       bool
}

// RawAdjustment is an adjustment as read from the document store, before
// normalization. Date and OverridePrice keep whatever type the store decoded.
type RawAdjustment struct {
	Date          any
	OverridePrice any
	Blocked       bool
}

// AdjustmentRepository is the document-store collaborator for adjustments.
// Upsert must be keyed on (listing, date) so that saving twice never yields
// two rows for one date.
type AdjustmentRepository interface {
	ListByListing(ctx context.Context, id listings.ListingID) ([]RawAdjustment, error)
	Upsert(ctx context.Context, adj Adjustment) error
}

// ParseAdjustment normalizes one raw record.
func ParseAdjustment(id listings.ListingID, raw RawAdjustment, currency string) (Adjustment, error) {
	d, err := daterange.Normalize(raw.Date)
	if err != nil {
		return Adjustment{}, err
	}
	adj := Adjustment{ListingID: id, Date: d, Blocked: raw.Blocked}
	if raw.OverridePrice == nil {
		return adj, nil
	}
	value, err := numericValue(raw.OverridePrice)
	if err != nil {
		return Adjustment{}, err
	}
	price, err := money.FromMajor(value, currency)
	if err != nil {
		return Adjustment{}, ErrMalformedOverride
	}
	adj.OverridePrice = &price
	return adj, nil
}

func numericValue(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, ErrMalformedOverride
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, ErrMalformedOverride
		}
		return f, nil
	default:
		return 0, ErrMalformedOverride
	}
}
