package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/handlers/booking"
	"rentcal/internal/app/middleware"
)

// cloudEvent is the envelope the outbox workers of both services publish.
type cloudEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type bookingEventData struct {
	BookingID string `json:"booking_id"`
	ListingID string `json:"listing_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
}

// BookingEventHandler turns booking lifecycle events into
// ApplyBookingEventCommand dispatches. Events the calendar does not care
// about and undecodable messages are acknowledged and dropped.
type BookingEventHandler struct {
	Bus    commands.Bus
	Logger *slog.Logger
}

func (h *BookingEventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		h.logger().WarnContext(ctx, "dropping undecodable booking event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if !relevant(evt.Type) {
		return nil
	}
	var data bookingEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		h.logger().WarnContext(ctx, "dropping booking event with bad data", "event_id", evt.ID, "error", err)
		return nil
	}
	cmd := booking.ApplyBookingEventCommand{
		EventID:   evt.ID,
		Type:      evt.Type,
		BookingID: data.BookingID,
		ListingID: data.ListingID,
		CheckIn:   data.CheckIn,
		CheckOut:  data.CheckOut,
	}
	_, err := commands.Dispatch[booking.ApplyBookingEventCommand, booking.ApplyResult](ctx, h.Bus, cmd)
	var verr *middleware.ErrValidation
	if errors.As(err, &verr) {
		h.logger().WarnContext(ctx, "dropping invalid booking event", "event_id", evt.ID, "error", err)
		return nil
	}
	return err
}

func (h *BookingEventHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func relevant(eventType string) bool {
	return strings.HasPrefix(eventType, booking.EventConfirmed) || strings.HasPrefix(eventType, booking.EventCancelled)
}
