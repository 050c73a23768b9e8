package memory

import (
	"context"
	"sort"
	"sync"

	domainbooking "rentcal/internal/domain/booking"
	domainlistings "rentcal/internal/domain/listings"
)

// BookingStore keeps confirmed bookings in memory.
type BookingStore struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]domainbooking.Booking
}

func NewBookingStore() *BookingStore {
	return &BookingStore{items: make(map[domainbooking.BookingID]domainbooking.Booking)}
}

func (s *BookingStore) ListByListing(ctx context.Context, id domainlistings.ListingID) ([]domainbooking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainbooking.Booking, 0)
	for _, b := range s.items {
		if b.ListingID == id {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Range.Start != out[j].Range.Start {
			return out[i].Range.Start < out[j].Range.Start
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Add stores or replaces a booking.
func (s *BookingStore) Add(ctx context.Context, b domainbooking.Booking) error {
	if b.ID == "" {
		return domainbooking.ErrIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[b.ID] = b
	return nil
}

// Remove deletes a booking. Removing an unknown booking is not an error.
func (s *BookingStore) Remove(ctx context.Context, id domainbooking.BookingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

var (
	_ domainbooking.Repository = (*BookingStore)(nil)
	_ domainbooking.Ledger     = (*BookingStore)(nil)
)
