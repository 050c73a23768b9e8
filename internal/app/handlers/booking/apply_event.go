package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"rentcal/internal/app/commands"
	domainbooking "rentcal/internal/domain/booking"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

const applyBookingEventKey = "booking.apply_event"

const (
	EventConfirmed = "booking.confirmed"
	EventCancelled = "booking.cancelled"
)

var (
	ErrUnsupportedEvent = errors.New("booking: unsupported event type")
	ErrEventIDRequired  = errors.New("booking: event id required")
)

// Inbox deduplicates consumed events. Forget releases an id whose apply
// failed so a redelivery is processed again.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// ApplyBookingEventCommand mirrors a booking lifecycle event from the booking
// service into the local booking store the calendar reads.
type ApplyBookingEventCommand struct {
	EventID   string
	Type      string
	BookingID string
	ListingID string
	CheckIn   string
	CheckOut  string
}

func (c ApplyBookingEventCommand) Key() string { return applyBookingEventKey }

func (c ApplyBookingEventCommand) Validate() error {
	if strings.TrimSpace(c.EventID) == "" {
		return ErrEventIDRequired
	}
	if strings.TrimSpace(c.BookingID) == "" {
		return domainbooking.ErrIDRequired
	}
	switch eventBase(c.Type) {
	case EventConfirmed, EventCancelled:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedEvent, c.Type)
}

type ApplyResult struct {
	Duplicate bool
}

type ApplyBookingEventHandler struct {
	Ledger domainbooking.Ledger
	Inbox  Inbox
	Logger *slog.Logger
}

func (h *ApplyBookingEventHandler) Handle(ctx context.Context, cmd ApplyBookingEventCommand) (ApplyResult, error) {
	var apply func() error
	switch eventBase(cmd.Type) {
	case EventConfirmed:
		start, err := daterange.Normalize(cmd.CheckIn)
		if err != nil {
			return ApplyResult{}, err
		}
		end, err := daterange.Normalize(cmd.CheckOut)
		if err != nil {
			return ApplyResult{}, err
		}
		b, err := domainbooking.New(domainbooking.BookingID(cmd.BookingID), domainlistings.ListingID(cmd.ListingID), daterange.Range{Start: start, End: end})
		if err != nil {
			return ApplyResult{}, err
		}
		apply = func() error { return h.Ledger.Add(ctx, b) }
	case EventCancelled:
		apply = func() error { return h.Ledger.Remove(ctx, domainbooking.BookingID(cmd.BookingID)) }
	default:
		return ApplyResult{}, fmt.Errorf("%w: %q", ErrUnsupportedEvent, cmd.Type)
	}

	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, cmd.EventID)
		if err != nil {
			return ApplyResult{}, err
		}
		if seen {
			h.logger().DebugContext(ctx, "duplicate booking event skipped", "event_id", cmd.EventID)
			return ApplyResult{Duplicate: true}, nil
		}
	}
	if err := apply(); err != nil {
		if h.Inbox != nil {
			if ferr := h.Inbox.Forget(ctx, cmd.EventID); ferr != nil {
				h.logger().ErrorContext(ctx, "inbox release failed", "event_id", cmd.EventID, "error", ferr)
			}
		}
		return ApplyResult{}, err
	}
	h.logger().InfoContext(ctx, "booking event applied", "event_id", cmd.EventID, "type", cmd.Type, "booking_id", cmd.BookingID, "listing_id", cmd.ListingID)
	return ApplyResult{}, nil
}

func (h *ApplyBookingEventHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// eventBase strips a version suffix such as ".v1".
func eventBase(t string) string {
	if idx := strings.LastIndex(t, ".v"); idx > 0 {
		return t[:idx]
	}
	return t
}

var _ commands.Handler[ApplyBookingEventCommand, ApplyResult] = (*ApplyBookingEventHandler)(nil)
