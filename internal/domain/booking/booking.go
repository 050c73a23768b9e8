package booking

import (
	"context"
	"errors"
	"strings"

	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

var (
	ErrBookingNotFound = errors.New("booking: not found")
	ErrIDRequired      = errors.New("booking: id required")
)

type BookingID string

// Booking is an existing reservation covering Range, both ends included.
// The calendar never mutates bookings.
type Booking struct {
	ID        BookingID
	ListingID listings.ListingID
	Range     daterange.Range
}

func New(id BookingID, listingID listings.ListingID, r daterange.Range) (Booking, error) {
	if strings.TrimSpace(string(id)) == "" {
		return Booking{}, ErrIDRequired
	}
	if strings.TrimSpace(string(listingID)) == "" {
		return Booking{}, listings.ErrListingIDMissing
	}
	if err := r.Validate(); err != nil {
		return Booking{}, err
	}
	return Booking{ID: id, ListingID: listingID, Range: r}, nil
}

type Repository interface {
	ListByListing(ctx context.Context, id listings.ListingID) ([]Booking, error)
}

// Ledger is the write side used by the booking-event consumer.
type Ledger interface {
	Add(ctx context.Context, b Booking) error
	Remove(ctx context.Context, id BookingID) error
}
