package availability

import (
	"fmt"

	"rentcal/internal/domain/booking"
	"rentcal/internal/domain/shared/daterange"
)

type Code string

const (
	CodePast             Code = "past"
	CodeBooked           Code = "booked"
	CodeBlocked          Code = "blocked"
	CodeUnknown          Code = "unknown"
	CodeInvalidRange     Code = "invalid_range"
	CodeAdvanceNotice    Code = "advance_notice"
	CodeMinStay          Code = "min_stay"
	CodeMaxStay          Code = "max_stay"
	CodeRangeUnavailable Code = "range_unavailable"
	CodeNegativeGuests   Code = "negative_guests"
	CodeNoAdults         Code = "no_adults"
	CodeOverCapacity     Code = "over_capacity"
	CodePetsNotAllowed   Code = "pets_not_allowed"
)

// Violation is a recoverable, user-facing rejection. Limit carries the rule
// value the message cites (days, nights or guests) when there is one.
type Violation struct {
	Code    Code
	Limit   int
	Date    daterange.Date
	Message string
}

func (v *Violation) Error() string { return v.Message }

// Policy picks which rules apply. The guest calendar enforces everything;
// the host pricing editor only needs selectable dates.
type Policy struct {
	EnforceStayRules bool
	AllowSingleDay   bool
}

var (
	GuestPolicy = Policy{EnforceStayRules: true}
	HostPolicy  = Policy{AllowSingleDay: true}
)

// Validator answers selectability and constraint questions against one model
// and one notion of today.
type Validator struct {
	Model  *Model
	Today  daterange.Date
	Policy Policy
}

func NewValidator(m *Model, today daterange.Date, policy Policy) Validator {
	return Validator{Model: m, Today: today, Policy: policy}
}

// Selectable returns nil when the date can be tapped.
func (v Validator) Selectable(d daterange.Date) error {
	day := v.Model.Day(d, v.Today)
	switch {
	case day.IsPast:
		return &Violation{Code: CodePast, Date: d, Message: fmt.Sprintf("%s is in the past", d)}
	case day.IsUnknown:
		return &Violation{Code: CodeUnknown, Date: d, Message: "Availability could not be loaded. Please retry."}
	case day.IsBooked:
		return &Violation{Code: CodeBooked, Date: d, Message: fmt.Sprintf("%s is already booked", d)}
	case day.IsBlocked:
		return &Violation{Code: CodeBlocked, Date: d, Message: fmt.Sprintf("%s is not available", d)}
	}
	return nil
}

// CheckStart applies the advance-notice rule to a new check-in date.
func (v Validator) CheckStart(d daterange.Date) error {
	if !v.Policy.EnforceStayRules {
		return nil
	}
	notice := v.Model.Stay().AdvanceNotice
	if notice <= 0 {
		return nil
	}
	if d.Before(v.Today.AddDays(notice)) {
		return &Violation{
			Code:    CodeAdvanceNotice,
			Limit:   notice,
			Date:    d,
			Message: fmt.Sprintf("Check-in must be at least %d %s from today", notice, plural(notice, "day", "days")),
		}
	}
	return nil
}

// CheckStayLength applies min and max stay to a start < end pair. Inverted
// rules (min above a bounded max) impose no stay-length constraint.
func (v Validator) CheckStayLength(start, end daterange.Date) error {
	if !end.After(start) {
		return &Violation{Code: CodeInvalidRange, Message: "Check-out must be after check-in"}
	}
	if !v.Policy.EnforceStayRules {
		return nil
	}
	stay := v.Model.Stay()
	if stay.Inverted() {
		return nil
	}
	nights := daterange.DaysBetween(start, end)
	if nights < stay.MinStay {
		return &Violation{
			Code:    CodeMinStay,
			Limit:   stay.MinStay,
			Message: fmt.Sprintf("Minimum stay is %d %s", stay.MinStay, plural(stay.MinStay, "night", "nights")),
		}
	}
	if stay.MaxStay > 0 && nights > stay.MaxStay {
		return &Violation{
			Code:    CodeMaxStay,
			Limit:   stay.MaxStay,
			Message: fmt.Sprintf("Maximum stay is %d %s", stay.MaxStay, plural(stay.MaxStay, "night", "nights")),
		}
	}
	return nil
}

// CheckRange validates a candidate pair: stay length first, then every date
// of the inclusive range must be selectable.
func (v Validator) CheckRange(start, end daterange.Date) error {
	if v.Policy.AllowSingleDay && start == end {
		return v.Selectable(start)
	}
	if err := v.CheckStayLength(start, end); err != nil {
		return err
	}
	for _, d := range (daterange.Range{Start: start, End: end}).Expand() {
		if err := v.Selectable(d); err != nil {
			return &Violation{
				Code:    CodeRangeUnavailable,
				Date:    d,
				Message: fmt.Sprintf("The selected dates include %s, which is not available", d),
			}
		}
	}
	return nil
}

// AdmitGuests takes a party received from a client the way the guest picker
// would: negative counters are rejected, then the control-level limits are
// applied. The result still needs CheckGuests.
func (v Validator) AdmitGuests(g booking.GuestCount) (booking.GuestCount, error) {
	if err := checkNonNegative(g); err != nil {
		return booking.GuestCount{}, err
	}
	return g.Clamp(v.Model.House()), nil
}

// CheckGuests validates the party at confirmation time. Pets are not part of
// the capacity count.
func (v Validator) CheckGuests(g booking.GuestCount) error {
	house := v.Model.House()
	if err := checkNonNegative(g); err != nil {
		return err
	}
	if g.Adults < 1 {
		return &Violation{Code: CodeNoAdults, Message: "At least one adult is required"}
	}
	if g.Occupants() > house.GuestsMax {
		return &Violation{
			Code:    CodeOverCapacity,
			Limit:   house.GuestsMax,
			Message: fmt.Sprintf("This place allows up to %d %s (%d selected)", house.GuestsMax, plural(house.GuestsMax, "guest", "guests"), g.Occupants()),
		}
	}
	if g.Pets > 0 && !house.PetsAllowed {
		return &Violation{Code: CodePetsNotAllowed, Message: "Pets are not allowed at this place"}
	}
	return nil
}

// CheckSelection runs every rule that applies to a confirmed range.
func (v Validator) CheckSelection(r daterange.Range) error {
	if err := v.Selectable(r.Start); err != nil {
		return err
	}
	if err := v.CheckStart(r.Start); err != nil {
		return err
	}
	return v.CheckRange(r.Start, r.End)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func checkNonNegative(g booking.GuestCount) error {
	counters := []struct {
		kind  booking.GuestKind
		value int
	}{
		{booking.Adults, g.Adults},
		{booking.Children, g.Children},
		{booking.Infants, g.Infants},
		{booking.Pets, g.Pets},
	}
	for _, c := range counters {
		if c.value < 0 {
			return &Violation{Code: CodeNegativeGuests, Message: fmt.Sprintf("The number of %s cannot be negative", c.kind)}
		}
	}
	return nil
}
