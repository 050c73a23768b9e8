package dto

import (
	"time"

	"rentcal/internal/app/session"
	"rentcal/internal/domain/selection"
)

type Warning struct {
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message"`
	Limit     int       `json:"limit,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Session struct {
	ID          string     `json:"id"`
	ListingID   string     `json:"listing_id"`
	Mode        string     `json:"mode"`
	Today       string     `json:"today"`
	Phase       string     `json:"phase"`
	Start       string     `json:"start,omitempty"`
	End         string     `json:"end,omitempty"`
	Warning     *Warning   `json:"warning,omitempty"`
	Stay        StayRules  `json:"stay_rules"`
	House       HouseRules `json:"house_rules"`
	Unavailable []string   `json:"unavailable_sources,omitempty"`
}

type TapResult struct {
	Outcome string  `json:"outcome"`
	Session Session `json:"session"`
}

type Confirmation struct {
	ListingID string `json:"listing_id"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Nights    int    `json:"nights"`
	Guests    Guests `json:"guests"`
	Quote     *Quote `json:"quote,omitempty"`
}

func MapSession(v session.View) Session {
	out := Session{
		ID:        v.ID,
		ListingID: string(v.ListingID),
		Mode:      string(v.Mode),
		Today:     v.Today.String(),
		Phase:     string(v.Phase),
		Start:     v.State.Start.String(),
		End:       v.State.End.String(),
		Warning:   MapWarning(v.Warning),
		Stay:      MapStayRules(v.Stay),
		House:     MapHouseRules(v.House),
	}
	for _, src := range v.Failures {
		out.Unavailable = append(out.Unavailable, string(src))
	}
	return out
}

func MapWarning(w *selection.Warning) *Warning {
	if w == nil {
		return nil
	}
	out := &Warning{Message: w.Message(), ExpiresAt: w.ExpiresAt}
	if w.Violation != nil {
		out.Code = string(w.Violation.Code)
		out.Limit = w.Violation.Limit
	}
	return out
}

func MapConfirmation(c session.ConfirmedSelection) Confirmation {
	out := Confirmation{
		ListingID: string(c.ListingID),
		Start:     c.Range.Start.String(),
		End:       c.Range.End.String(),
		Nights:    c.Range.Nights(),
		Guests:    MapGuests(c.Guests),
	}
	if c.Quote != nil {
		q := MapQuote(string(c.ListingID), c.Range, *c.Quote)
		out.Quote = &q
	}
	return out
}
