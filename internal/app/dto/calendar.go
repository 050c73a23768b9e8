package dto

import (
	"rentcal/internal/domain/availability"
	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

type CalendarDay struct {
	Date       string `json:"date"`
	Booked     bool   `json:"booked"`
	Blocked    bool   `json:"blocked"`
	Past       bool   `json:"past"`
	Unknown    bool   `json:"unknown,omitempty"`
	Selectable bool   `json:"selectable"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
}

type StayRules struct {
	MinStay       int `json:"min_stay"`
	MaxStay       int `json:"max_stay"`
	AdvanceNotice int `json:"advance_notice"`
}

type HouseRules struct {
	GuestsMax   int  `json:"guests_max"`
	PetsAllowed bool `json:"pets_allowed"`
}

type Calendar struct {
	ListingID   string        `json:"listing_id"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	Today       string        `json:"today"`
	Days        []CalendarDay `json:"days"`
	Stay        StayRules     `json:"stay_rules"`
	House       HouseRules    `json:"house_rules"`
	Unavailable []string      `json:"unavailable_sources,omitempty"`
	Skipped     int           `json:"skipped_adjustments,omitempty"`
}

func MapCalendar(m *availability.Model, r daterange.Range, today daterange.Date) Calendar {
	if m == nil {
		return Calendar{}
	}
	days := m.Days(r, today)
	out := Calendar{
		ListingID: string(m.ListingID()),
		From:      r.Start.String(),
		To:        r.End.String(),
		Today:     today.String(),
		Days:      make([]CalendarDay, 0, len(days)),
		Stay:      MapStayRules(m.Stay()),
		House:     MapHouseRules(m.House()),
		Skipped:   len(m.Skipped()),
	}
	for _, d := range days {
		out.Days = append(out.Days, CalendarDay{
			Date:       d.Date.String(),
			Booked:     d.IsBooked,
			Blocked:    d.IsBlocked,
			Past:       d.IsPast,
			Unknown:    d.IsUnknown,
			Selectable: d.Selectable(),
			PriceCents: d.EffectivePrice.Amount,
			Currency:   d.EffectivePrice.Currency,
		})
	}
	for _, src := range m.Failures() {
		out.Unavailable = append(out.Unavailable, string(src))
	}
	return out
}

func MapStayRules(s listings.StayConstraints) StayRules {
	return StayRules{MinStay: s.MinStay, MaxStay: s.MaxStay, AdvanceNotice: s.AdvanceNotice}
}

func MapHouseRules(h listings.HouseRules) HouseRules {
	return HouseRules{GuestsMax: h.GuestsMax, PetsAllowed: h.PetsAllowed}
}
