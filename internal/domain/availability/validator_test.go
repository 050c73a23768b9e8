package availability

import (
	"errors"
	"strings"
	"testing"

	"rentcal/internal/domain/booking"
	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

func violationCode(t *testing.T, err error) Code {
	t.Helper()
	if err == nil {
		return ""
	}
	var v *Violation
	if !errors.As(err, &v) {
		t.Fatalf("expected *Violation, got %T: %v", err, err)
	}
	if strings.TrimSpace(v.Message) == "" {
		t.Fatalf("violation %s has no message", v.Code)
	}
	return v.Code
}

func TestBookedDatesNotSelectable(t *testing.T) {
	in := baseInputs()
	in.Bookings = []booking.Booking{
		{ID: "b1", ListingID: listingID, Range: rng("2025-03-10", "2025-03-14")},
		{ID: "b2", ListingID: listingID, Range: rng("2025-03-20", "2025-03-20")},
	}
	v := NewValidator(Aggregate(in), "2025-03-01", GuestPolicy)
	for _, b := range in.Bookings {
		for _, d := range b.Range.Expand() {
			if code := violationCode(t, v.Selectable(d)); code != CodeBooked {
				t.Fatalf("%s: code=%q want=%q", d, code, CodeBooked)
			}
		}
	}
	if err := v.Selectable("2025-03-15"); err != nil {
		t.Fatalf("2025-03-15 should be free: %v", err)
	}
}

func TestSelectablePastAndBlocked(t *testing.T) {
	in := baseInputs()
	in.Adjustments = []RawAdjustment{{Date: "2025-03-05", Blocked: true}}
	v := NewValidator(Aggregate(in), "2025-03-01", GuestPolicy)
	if code := violationCode(t, v.Selectable("2025-02-28")); code != CodePast {
		t.Fatalf("code=%q", code)
	}
	if err := v.Selectable("2025-03-01"); err != nil {
		t.Fatalf("today must be selectable: %v", err)
	}
	if code := violationCode(t, v.Selectable("2025-03-05")); code != CodeBlocked {
		t.Fatalf("code=%q", code)
	}
}

func TestCheckStartAdvanceNotice(t *testing.T) {
	in := baseInputs()
	in.Stay = &listings.StayConstraints{MinStay: 1, MaxStay: 30, AdvanceNotice: 2}
	v := NewValidator(Aggregate(in), "2025-03-01", GuestPolicy)
	err := v.CheckStart("2025-03-02")
	if code := violationCode(t, err); code != CodeAdvanceNotice {
		t.Fatalf("code=%q", code)
	}
	if !strings.Contains(err.Error(), "2 days") {
		t.Fatalf("message should cite the notice: %q", err.Error())
	}
	if err := v.CheckStart("2025-03-03"); err != nil {
		t.Fatalf("2025-03-03 should pass: %v", err)
	}
	host := NewValidator(Aggregate(in), "2025-03-01", HostPolicy)
	if err := host.CheckStart("2025-03-01"); err != nil {
		t.Fatalf("host editor ignores advance notice: %v", err)
	}
}

func TestCheckStayLength(t *testing.T) {
	cases := []struct {
		name  string
		stay  listings.StayConstraints
		start daterange.Date
		end   daterange.Date
		want  Code
	}{
		{"under min", listings.StayConstraints{MinStay: 3, MaxStay: 7}, "2025-03-01", "2025-03-02", CodeMinStay},
		{"at min", listings.StayConstraints{MinStay: 3, MaxStay: 7}, "2025-03-01", "2025-03-04", ""},
		{"at max", listings.StayConstraints{MinStay: 3, MaxStay: 7}, "2025-03-01", "2025-03-08", ""},
		{"over max", listings.StayConstraints{MinStay: 1, MaxStay: 7}, "2025-03-01", "2025-03-10", CodeMaxStay},
		{"unbounded max", listings.StayConstraints{MinStay: 1}, "2025-03-01", "2025-05-01", ""},
		{"inverted is permissive", listings.StayConstraints{MinStay: 10, MaxStay: 2}, "2025-03-01", "2025-03-02", ""},
		{"same day", listings.StayConstraints{MinStay: 1}, "2025-03-01", "2025-03-01", CodeInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInputs()
			stay := tc.stay
			in.Stay = &stay
			v := NewValidator(Aggregate(in), "2025-03-01", GuestPolicy)
			if code := violationCode(t, v.CheckStayLength(tc.start, tc.end)); code != tc.want {
				t.Fatalf("code=%q want=%q", code, tc.want)
			}
		})
	}
}

func TestCheckRangeRejectsBookedNights(t *testing.T) {
	in := baseInputs()
	in.Bookings = []booking.Booking{{ID: "b1", ListingID: listingID, Range: rng("2025-03-05", "2025-03-06")}}
	v := NewValidator(Aggregate(in), "2025-03-01", GuestPolicy)
	if code := violationCode(t, v.CheckRange("2025-03-03", "2025-03-08")); code != CodeRangeUnavailable {
		t.Fatalf("code=%q", code)
	}
	if err := v.CheckRange("2025-03-07", "2025-03-09"); err != nil {
		t.Fatalf("free range rejected: %v", err)
	}
}

func TestCheckGuests(t *testing.T) {
	in := baseInputs()
	in.House = &listings.HouseRules{GuestsMax: 4, PetsAllowed: true}
	v := NewValidator(Aggregate(in), "2025-03-01", GuestPolicy)
	cases := []struct {
		name  string
		count booking.GuestCount
		want  Code
	}{
		{"over capacity", booking.GuestCount{Adults: 3, Children: 2}, CodeOverCapacity},
		{"at capacity", booking.GuestCount{Adults: 3, Children: 1}, ""},
		{"pets excluded", booking.GuestCount{Adults: 4, Pets: 3}, ""},
		{"infants count", booking.GuestCount{Adults: 2, Children: 2, Infants: 1}, CodeOverCapacity},
		{"no adults", booking.GuestCount{Children: 2}, CodeNoAdults},
		{"negative children", booking.GuestCount{Adults: 9, Children: -6}, CodeNegativeGuests},
		{"negative infants", booking.GuestCount{Adults: 2, Infants: -1}, CodeNegativeGuests},
		{"negative pets", booking.GuestCount{Adults: 2, Pets: -1}, CodeNegativeGuests},
		{"negative adults", booking.GuestCount{Adults: -1, Children: 3}, CodeNegativeGuests},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := violationCode(t, v.CheckGuests(tc.count)); code != tc.want {
				t.Fatalf("code=%q want=%q", code, tc.want)
			}
		})
	}

	in.House = &listings.HouseRules{GuestsMax: 4}
	noPets := NewValidator(Aggregate(in), "2025-03-01", GuestPolicy)
	if code := violationCode(t, noPets.CheckGuests(booking.GuestCount{Adults: 1, Pets: 1})); code != CodePetsNotAllowed {
		t.Fatalf("code=%q", code)
	}
}

func TestAdmitGuests(t *testing.T) {
	in := baseInputs()
	in.House = &listings.HouseRules{GuestsMax: 4}
	v := NewValidator(Aggregate(in), "2025-03-01", GuestPolicy)

	_, err := v.AdmitGuests(booking.GuestCount{Adults: 9, Children: -6})
	if code := violationCode(t, err); code != CodeNegativeGuests {
		t.Fatalf("code=%q", code)
	}
	got, err := v.AdmitGuests(booking.GuestCount{Adults: 2, Pets: 2})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if got.Pets != 0 || got.Adults != 2 {
		t.Fatalf("pets must be clamped when not allowed: %+v", got)
	}
	if err := v.CheckGuests(got); err != nil {
		t.Fatalf("clamped party rejected: %v", err)
	}
}
