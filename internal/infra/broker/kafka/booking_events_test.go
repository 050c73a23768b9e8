package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/handlers/booking"
	"rentcal/internal/app/middleware"
	"rentcal/internal/infra/storage/memory"
)

func newBus(store *memory.BookingStore) commands.Bus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[booking.ApplyBookingEventCommand, booking.ApplyResult](bus, booking.ApplyBookingEventCommand{}.Key(),
		&booking.ApplyBookingEventHandler{Ledger: store, Inbox: memory.NewInbox()})
	return middleware.ChainCommands(bus, middleware.Validation(middleware.SelfValidator{}))
}

func message(value string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{Topic: "booking.events.v1", Value: []byte(value)}
}

func TestBookingEventHandlerAppliesConfirmedAndCancelled(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBookingStore()
	h := &BookingEventHandler{Bus: newBus(store)}

	confirmed := `{"specversion":"1.0","id":"evt-1","type":"booking.confirmed.v1","data":{"booking_id":"b-1","listing_id":"listing-1","check_in":"2025-03-10T00:00:00Z","check_out":"2025-03-12"}}`
	if err := h.Handle(ctx, message(confirmed)); err != nil {
		t.Fatalf("confirmed: %v", err)
	}
	if err := h.Handle(ctx, message(confirmed)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	items, _ := store.ListByListing(ctx, "listing-1")
	if len(items) != 1 || items[0].Range.Start != "2025-03-10" {
		t.Fatalf("bookings=%+v", items)
	}

	cancelled := `{"id":"evt-2","type":"booking.cancelled.v1","data":{"booking_id":"b-1","listing_id":"listing-1"}}`
	if err := h.Handle(ctx, message(cancelled)); err != nil {
		t.Fatalf("cancelled: %v", err)
	}
	items, _ = store.ListByListing(ctx, "listing-1")
	if len(items) != 0 {
		t.Fatalf("bookings=%+v", items)
	}
}

func TestBookingEventHandlerDropsIrrelevantAndMalformed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBookingStore()
	h := &BookingEventHandler{Bus: newBus(store)}
	cases := []string{
		`not json`,
		`{"id":"evt-3","type":"booking.requested.v1","data":{"booking_id":"b-2"}}`,
		`{"id":"evt-4","type":"booking.confirmed.v1","data":"oops"}`,
		`{"id":"","type":"booking.confirmed.v1","data":{"booking_id":"b-2"}}`,
	}
	for _, raw := range cases {
		if err := h.Handle(ctx, message(raw)); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
	}
	items, _ := store.ListByListing(ctx, "listing-1")
	if len(items) != 0 {
		t.Fatalf("bookings=%+v", items)
	}
}

type failingBus struct{}

func (failingBus) Dispatch(context.Context, commands.Command) (any, error) {
	return nil, errors.New("mongo unavailable")
}

func TestBookingEventHandlerReturnsStoreErrors(t *testing.T) {
	h := &BookingEventHandler{Bus: failingBus{}}
	raw := `{"id":"evt-1","type":"booking.cancelled.v1","data":{"booking_id":"b-1"}}`
	if err := h.Handle(context.Background(), message(raw)); err == nil {
		t.Fatalf("expected error to leave message unmarked")
	}
}
