// Package session keeps interactive calendar sessions: one freshly loaded
// availability model and one selection machine per open calendar.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"rentcal/internal/domain/availability"
	"rentcal/internal/domain/booking"
	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/pricing"
	"rentcal/internal/domain/selection"
	"rentcal/internal/domain/shared/daterange"
)

var ErrUnknownMode = errors.New("session: unknown mode")

// Mode picks the calendar flavour: guests book stays, hosts edit dates.
type Mode string

const (
	ModeGuest Mode = "guest"
	ModeHost  Mode = "host"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case "", ModeGuest:
		return ModeGuest, nil
	case ModeHost:
		return ModeHost, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
}

func (m Mode) Policy() availability.Policy {
	if m == ModeHost {
		return availability.HostPolicy
	}
	return availability.GuestPolicy
}

// ConfirmedSelection is what a session hands to booking or to the host
// adjustment flow. Quote is nil when the range has no nights.
type ConfirmedSelection struct {
	ListingID listings.ListingID
	Range     daterange.Range
	Guests    booking.GuestCount
	Quote     *pricing.PriceBreakdown
}

// View is a read-only snapshot of a session.
type View struct {
	ID         string
	ListingID  listings.ListingID
	Mode       Mode
	Today      daterange.Date
	Phase      selection.Phase
	State      selection.State
	Warning    *selection.Warning
	Stay       listings.StayConstraints
	House      listings.HouseRules
	Failures   []availability.Source
	Generation uint64
	OpenedAt   time.Time
}

type Session struct {
	id         string
	clientKey  string
	listingID  listings.ListingID
	mode       Mode
	generation uint64
	openedAt   time.Time
	today      daterange.Date

	mu        sync.Mutex
	model     *availability.Model
	validator availability.Validator
	machine   *selection.Machine
}

func newSession(id, clientKey string, mode Mode, gen uint64, model *availability.Model, now time.Time, warningTTL time.Duration) *Session {
	today := daterange.FromTime(now)
	policy := mode.Policy()
	v := availability.NewValidator(model, today, policy)
	machine := selection.New(v, selection.WithWarningTTL(warningTTL), selection.WithSingleDayConfirm(policy.AllowSingleDay))
	return &Session{
		id:         id,
		clientKey:  clientKey,
		listingID:  model.ListingID(),
		mode:       mode,
		generation: gen,
		openedAt:   now,
		today:      today,
		model:      model,
		validator:  v,
		machine:    machine,
	}
}

func (s *Session) ID() string                        { return s.id }
func (s *Session) ListingID() listings.ListingID     { return s.listingID }
func (s *Session) Mode() Mode                        { return s.mode }
func (s *Session) Model() *availability.Model        { return s.model }
func (s *Session) Validator() availability.Validator { return s.validator }

// Tap forwards a date tap to the selection machine.
func (s *Session) Tap(d daterange.Date, now time.Time) selection.Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Tap(d, now)
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machine.Reset()
}

func (s *Session) View(now time.Time) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.machine.State()
	return View{
		ID:         s.id,
		ListingID:  s.listingID,
		Mode:       s.mode,
		Today:      s.today,
		Phase:      state.Phase(),
		State:      state,
		Warning:    s.machine.Warning(now),
		Stay:       s.model.Stay(),
		House:      s.model.House(),
		Failures:   s.model.Failures(),
		Generation: s.generation,
		OpenedAt:   s.openedAt,
	}
}

// Confirm validates the selection and the party and prices the stay. A
// failure leaves the selection as it was so the caller can fix and retry.
func (s *Session) Confirm(guests booking.GuestCount) (ConfirmedSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.machine.Confirm()
	if err != nil {
		return ConfirmedSelection{}, err
	}
	if err := s.validator.CheckSelection(r); err != nil {
		return ConfirmedSelection{}, err
	}
	out := ConfirmedSelection{ListingID: s.listingID, Range: r}
	if s.mode == ModeGuest {
		guests, err = s.validator.AdmitGuests(guests)
		if err != nil {
			return ConfirmedSelection{}, err
		}
		if err := s.validator.CheckGuests(guests); err != nil {
			return ConfirmedSelection{}, err
		}
		out.Guests = guests
	}
	if r.Nights() > 0 {
		quote, err := pricing.Quote(s.model, pricing.QuoteInput{Range: r, Pricing: s.model.Pricing(), Pets: guests.Pets})
		if err != nil {
			return ConfirmedSelection{}, err
		}
		out.Quote = &quote
	}
	return out, nil
}
