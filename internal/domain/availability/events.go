package availability

import (
	"time"

	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

type CalendarAdjusted struct {
	ListingID     string         `json:"listing_id"`
	Date          daterange.Date `json:"date"`
	OverrideCents *int64         `json:"override_cents,omitempty"`
	Currency      string         `json:"currency,omitempty"`
	Blocked       bool           `json:"blocked"`
	At            time.Time      `json:"at"`
}

func (e CalendarAdjusted) EventName() string     { return "calendar.adjusted" }
func (e CalendarAdjusted) AggregateID() string   { return e.ListingID }
func (e CalendarAdjusted) OccurredAt() time.Time { return e.At }

func CalendarAdjustedEvent(id listings.ListingID, adj Adjustment, at time.Time) CalendarAdjusted {
	ev := CalendarAdjusted{ListingID: string(id), Date: adj.Date, Blocked: adj.Blocked, At: at.UTC()}
	if adj.OverridePrice != nil {
		cents := adj.OverridePrice.Amount
		ev.OverrideCents = &cents
		ev.Currency = adj.OverridePrice.Currency
	}
	return ev
}
