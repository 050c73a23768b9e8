// Package selection drives the two-tap date-range gesture of the calendar.
package selection

import (
	"errors"
	"time"

	"rentcal/internal/domain/availability"
	"rentcal/internal/domain/shared/daterange"
)

var ErrNothingToConfirm = errors.New("selection: no complete range selected")

const DefaultWarningTTL = 3 * time.Second

type Phase string

const (
	Empty         Phase = "empty"
	StartSelected Phase = "start_selected"
	RangeSelected Phase = "range_selected"
)

// State is the ephemeral selection. End is only set in RangeSelected.
type State struct {
	Start daterange.Date
	End   daterange.Date
}

func (s State) Phase() Phase {
	switch {
	case s.Start.IsZero():
		return Empty
	case s.End.IsZero():
		return StartSelected
	default:
		return RangeSelected
	}
}

// Warning is a transient message shown after a rejected tap.
type Warning struct {
	Violation *availability.Violation
	ExpiresAt time.Time
}

func (w Warning) Message() string {
	if w.Violation == nil {
		return ""
	}
	return w.Violation.Message
}

type Outcome string

const (
	OutcomeIgnored  Outcome = "ignored"
	OutcomeAdvanced Outcome = "advanced"
	OutcomeRebased  Outcome = "rebased"
	OutcomeRejected Outcome = "rejected"
)

// Transition describes what a single tap did.
type Transition struct {
	From    State
	To      State
	Outcome Outcome
	Warning *Warning
}

// Checker is the subset of the validator the machine consults.
type Checker interface {
	Selectable(d daterange.Date) error
	CheckStart(d daterange.Date) error
	CheckRange(start, end daterange.Date) error
}

// Machine holds one selection. It is not safe for concurrent use; callers
// serialize taps per session.
type Machine struct {
	checker     Checker
	allowSingle bool
	warningTTL  time.Duration
	state       State
	warning     *Warning
}

type Option func(*Machine)

func WithWarningTTL(ttl time.Duration) Option {
	return func(m *Machine) {
		if ttl > 0 {
			m.warningTTL = ttl
		}
	}
}

// WithSingleDayConfirm lets Confirm accept a lone start date as a one-day range.
func WithSingleDayConfirm(allow bool) Option {
	return func(m *Machine) { m.allowSingle = allow }
}

func New(checker Checker, opts ...Option) *Machine {
	m := &Machine{checker: checker, warningTTL: DefaultWarningTTL}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State { return m.state }

// Warning returns the last warning while it has not expired.
func (m *Machine) Warning(now time.Time) *Warning {
	if m.warning == nil || !now.Before(m.warning.ExpiresAt) {
		return nil
	}
	w := *m.warning
	return &w
}

// Tap applies a tap on d. Taps on disabled dates change nothing.
func (m *Machine) Tap(d daterange.Date, now time.Time) Transition {
	from := m.state
	if err := m.checker.Selectable(d); err != nil {
		return Transition{From: from, To: from, Outcome: OutcomeIgnored}
	}
	switch from.Phase() {
	case StartSelected:
		if !d.After(from.Start) {
			return m.begin(d, from, OutcomeRebased, now)
		}
		if err := m.checker.CheckRange(from.Start, d); err != nil {
			return m.reject(from, err, now)
		}
		m.state = State{Start: from.Start, End: d}
		m.warning = nil
		return Transition{From: from, To: m.state, Outcome: OutcomeAdvanced}
	default:
		return m.begin(d, from, OutcomeAdvanced, now)
	}
}

// begin starts a new selection at d after the advance-notice check.
func (m *Machine) begin(d daterange.Date, from State, outcome Outcome, now time.Time) Transition {
	if err := m.checker.CheckStart(d); err != nil {
		return m.reject(from, err, now)
	}
	m.state = State{Start: d}
	m.warning = nil
	return Transition{From: from, To: m.state, Outcome: outcome}
}

func (m *Machine) reject(from State, err error, now time.Time) Transition {
	var violation *availability.Violation
	if !errors.As(err, &violation) {
		violation = &availability.Violation{Message: err.Error()}
	}
	m.warning = &Warning{Violation: violation, ExpiresAt: now.Add(m.warningTTL)}
	w := *m.warning
	return Transition{From: from, To: from, Outcome: OutcomeRejected, Warning: &w}
}

// Confirm hands the selected range to the caller. The machine keeps its state
// so that a failed submission can be retried.
func (m *Machine) Confirm() (daterange.Range, error) {
	switch m.state.Phase() {
	case RangeSelected:
		return daterange.Range{Start: m.state.Start, End: m.state.End}, nil
	case StartSelected:
		if m.allowSingle {
			return daterange.Range{Start: m.state.Start, End: m.state.Start}, nil
		}
	}
	return daterange.Range{}, ErrNothingToConfirm
}

// Reset discards the selection.
func (m *Machine) Reset() {
	m.state = State{}
	m.warning = nil
}
