package memory

import (
	"context"
	"sort"
	"sync"

	domainavailability "rentcal/internal/domain/availability"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

type adjustmentKey struct {
	listing domainlistings.ListingID
	date    daterange.Date
}

// adjustmentDoc mirrors the stored document: the override is kept in major
// units the way the document store holds it.
type adjustmentDoc struct {
	date     daterange.Date
	override *float64
	blocked  bool
}

// AdjustmentStore keeps host date adjustments keyed by (listing, date).
type AdjustmentStore struct {
	mu    sync.RWMutex
	items map[adjustmentKey]adjustmentDoc
	raw   map[domainlistings.ListingID][]domainavailability.RawAdjustment
}

func NewAdjustmentStore() *AdjustmentStore {
	return &AdjustmentStore{
		items: make(map[adjustmentKey]adjustmentDoc),
		raw:   make(map[domainlistings.ListingID][]domainavailability.RawAdjustment),
	}
}

func (s *AdjustmentStore) ListByListing(ctx context.Context, id domainlistings.ListingID) ([]domainavailability.RawAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]adjustmentDoc, 0)
	for key, doc := range s.items {
		if key.listing == id {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].date < docs[j].date })
	out := make([]domainavailability.RawAdjustment, 0, len(docs)+len(s.raw[id]))
	for _, doc := range docs {
		raw := domainavailability.RawAdjustment{Date: string(doc.date), Blocked: doc.blocked}
		if doc.override != nil {
			raw.OverridePrice = *doc.override
		}
		out = append(out, raw)
	}
	out = append(out, s.raw[id]...)
	return out, nil
}

// Upsert writes the adjustment for its (listing, date) key, replacing any
// previous entry for that key.
func (s *AdjustmentStore) Upsert(ctx context.Context, adj domainavailability.Adjustment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := adjustmentDoc{date: adj.Date, blocked: adj.Blocked}
	if adj.OverridePrice != nil {
		major := adj.OverridePrice.Major()
		doc.override = &major
	}
	key := adjustmentKey{listing: adj.ListingID, date: adj.Date}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.items[key]; ok && sameAdjustment(prev, doc) {
		return nil
	}
	s.items[key] = doc
	return nil
}

// SeedRaw appends raw records as they might come from an imported dataset,
// malformed ones included.
func (s *AdjustmentStore) SeedRaw(id domainlistings.ListingID, raws ...domainavailability.RawAdjustment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[id] = append(s.raw[id], raws...)
}

func (s *AdjustmentStore) Count(id domainlistings.ListingID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for key := range s.items {
		if key.listing == id {
			n++
		}
	}
	return n
}

func sameAdjustment(a, b adjustmentDoc) bool {
	if a.blocked != b.blocked || (a.override == nil) != (b.override == nil) {
		return false
	}
	return a.override == nil || *a.override == *b.override
}

var _ domainavailability.AdjustmentRepository = (*AdjustmentStore)(nil)
