package memory

import (
	"context"
	"sync"

	domainlistings "rentcal/internal/domain/listings"
)

// RulesStore holds price, stay and house rules per listing.
type RulesStore struct {
	mu    sync.RWMutex
	price map[domainlistings.ListingID]domainlistings.PricingContext
	stay  map[domainlistings.ListingID]domainlistings.StayConstraints
	house map[domainlistings.ListingID]domainlistings.HouseRules
}

func NewRulesStore() *RulesStore {
	return &RulesStore{
		price: make(map[domainlistings.ListingID]domainlistings.PricingContext),
		stay:  make(map[domainlistings.ListingID]domainlistings.StayConstraints),
		house: make(map[domainlistings.ListingID]domainlistings.HouseRules),
	}
}

func (s *RulesStore) PriceRule(ctx context.Context, id domainlistings.ListingID) (domainlistings.PricingContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pc, ok := s.price[id]
	if !ok {
		return domainlistings.PricingContext{}, domainlistings.ErrRulesNotFound
	}
	return pc, nil
}

func (s *RulesStore) StayRules(ctx context.Context, id domainlistings.ListingID) (domainlistings.StayConstraints, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stay, ok := s.stay[id]
	if !ok {
		return domainlistings.StayConstraints{}, domainlistings.ErrRulesNotFound
	}
	return stay, nil
}

func (s *RulesStore) HouseRules(ctx context.Context, id domainlistings.ListingID) (domainlistings.HouseRules, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	house, ok := s.house[id]
	if !ok {
		return domainlistings.HouseRules{}, domainlistings.ErrRulesNotFound
	}
	return house, nil
}

func (s *RulesStore) SavePriceRule(ctx context.Context, id domainlistings.ListingID, p domainlistings.PricingContext) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price[id] = p
	return nil
}

func (s *RulesStore) SaveStayRules(ctx context.Context, id domainlistings.ListingID, stay domainlistings.StayConstraints) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stay[id] = stay
	return nil
}

func (s *RulesStore) SaveHouseRules(ctx context.Context, id domainlistings.ListingID, h domainlistings.HouseRules) error {
	if err := h.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.house[id] = h
	return nil
}

var (
	_ domainlistings.RulesQuery  = (*RulesStore)(nil)
	_ domainlistings.RulesWriter = (*RulesStore)(nil)
)
