package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rentcal/internal/domain/availability"
	"rentcal/internal/domain/booking"
	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/selection"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/domain/shared/money"
	"rentcal/internal/infra/storage/memory"
)

const listingID listings.ListingID = "listing-1"

var now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type stores struct {
	bookings    *memory.BookingStore
	adjustments *memory.AdjustmentStore
	rules       *memory.RulesStore
}

func newStores(t *testing.T) stores {
	t.Helper()
	ctx := context.Background()
	s := stores{
		bookings:    memory.NewBookingStore(),
		adjustments: memory.NewAdjustmentStore(),
		rules:       memory.NewRulesStore(),
	}
	if err := s.rules.SavePriceRule(ctx, listingID, listings.PricingContext{
		BasePricePerNight:        money.Must(10000, "USD"),
		BasePricePerNightWeekend: money.Must(15000, "USD"),
		CleaningFee:              money.Must(2500, "USD"),
	}); err != nil {
		t.Fatalf("save price rule: %v", err)
	}
	if err := s.rules.SaveStayRules(ctx, listingID, listings.StayConstraints{MinStay: 2, MaxStay: 10}); err != nil {
		t.Fatalf("save stay rules: %v", err)
	}
	if err := s.rules.SaveHouseRules(ctx, listingID, listings.HouseRules{GuestsMax: 3}); err != nil {
		t.Fatalf("save house rules: %v", err)
	}
	b, _ := booking.New("b1", listingID, daterange.Range{Start: "2025-03-10", End: "2025-03-12"})
	if err := s.bookings.Add(ctx, b); err != nil {
		t.Fatalf("add booking: %v", err)
	}
	return s
}

func (s stores) loader() *Loader {
	return &Loader{
		Bookings:     s.bookings,
		Adjustments:  s.adjustments,
		Rules:        s.rules,
		FetchTimeout: time.Second,
		Fallback:     money.Must(9000, "USD"),
		Currency:     "USD",
	}
}

type failingAdjustments struct{}

func (failingAdjustments) ListByListing(context.Context, listings.ListingID) ([]availability.RawAdjustment, error) {
	return nil, errors.New("connection reset")
}

func (failingAdjustments) Upsert(context.Context, availability.Adjustment) error {
	return errors.New("connection reset")
}

type hangingBookings struct{}

func (hangingBookings) ListByListing(ctx context.Context, _ listings.ListingID) ([]booking.Booking, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestLoaderJoinsAllReads(t *testing.T) {
	s := newStores(t)
	s.adjustments.SeedRaw(listingID, availability.RawAdjustment{Date: "2025-03-05", OverridePrice: 80.0})
	model, err := s.loader().Load(context.Background(), listingID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !model.IsBooked("2025-03-11") {
		t.Fatalf("booking missing from model")
	}
	if price := model.NightlyPrice("2025-03-05"); price.Amount != 8000 {
		t.Fatalf("override price=%v", price)
	}
	if model.Stay().MinStay != 2 || model.House().GuestsMax != 3 {
		t.Fatalf("rules not loaded: %+v %+v", model.Stay(), model.House())
	}
	if len(model.Failures()) != 0 {
		t.Fatalf("failures=%v", model.Failures())
	}
}

func TestLoaderRecordsFailuresAndMissingRules(t *testing.T) {
	s := newStores(t)
	l := s.loader()
	l.Adjustments = failingAdjustments{}
	model, err := l.Load(context.Background(), "listing-without-rules")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	failures := model.Failures()
	if len(failures) != 1 || failures[0] != availability.SourceAdjustments {
		t.Fatalf("failures=%v", failures)
	}
	if model.Stay() != listings.DefaultStayConstraints() {
		t.Fatalf("missing rules should fall back to defaults: %+v", model.Stay())
	}
	if price := model.NightlyPrice("2025-03-04"); price.Amount != 9000 {
		t.Fatalf("fallback price=%v", price)
	}
}

func TestLoaderTimesOutSlowRead(t *testing.T) {
	s := newStores(t)
	l := s.loader()
	l.Bookings = hangingBookings{}
	l.FetchTimeout = 20 * time.Millisecond
	model, err := l.Load(context.Background(), listingID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !model.BookingsUnknown() {
		t.Fatalf("timed out bookings read must mark availability unknown")
	}
	if model.Day("2025-03-05", "2025-03-01").Selectable() {
		t.Fatalf("dates must not be selectable without bookings")
	}
}

func TestSessionGuestFlow(t *testing.T) {
	s := newStores(t)
	m := NewManager(s.loader(), 3*time.Second, nil)
	m.Now = func() time.Time { return now }
	sess, err := m.Open(context.Background(), OpenRequest{ClientKey: "tab-1", ListingID: listingID})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if tr := sess.Tap("2025-03-03", now); tr.Outcome != selection.OutcomeAdvanced {
		t.Fatalf("first tap: %+v", tr)
	}
	if tr := sess.Tap("2025-03-06", now); tr.Outcome != selection.OutcomeAdvanced {
		t.Fatalf("second tap: %+v", tr)
	}

	_, err = sess.Confirm(booking.GuestCount{Adults: 2, Children: 2})
	var v *availability.Violation
	if !errors.As(err, &v) || v.Code != availability.CodeOverCapacity {
		t.Fatalf("expected over capacity, got %v", err)
	}
	if view := sess.View(now); view.Phase != selection.RangeSelected {
		t.Fatalf("failed confirm must keep the range: %+v", view)
	}

	_, err = sess.Confirm(booking.GuestCount{Adults: 9, Children: -6})
	if !errors.As(err, &v) || v.Code != availability.CodeNegativeGuests {
		t.Fatalf("expected negative guests, got %v", err)
	}

	confirmed, err := sess.Confirm(booking.GuestCount{Adults: 2, Pets: 1})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Guests.Pets != 0 {
		t.Fatalf("pets must be clamped on a listing without pets: %+v", confirmed.Guests)
	}
	if confirmed.Range.Nights() != 3 || confirmed.Quote == nil {
		t.Fatalf("confirmed=%+v", confirmed)
	}
	// Mon, Tue, Wed at weekday price plus cleaning fee.
	if confirmed.Quote.Total.Amount != 3*10000+2500 {
		t.Fatalf("total=%v", confirmed.Quote.Total)
	}
}

func TestHostSessionConfirmsSingleDay(t *testing.T) {
	s := newStores(t)
	m := NewManager(s.loader(), 0, nil)
	m.Now = func() time.Time { return now }
	sess, err := m.Open(context.Background(), OpenRequest{ClientKey: "host", ListingID: listingID, Mode: ModeHost})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sess.Tap("2025-03-04", now)
	confirmed, err := sess.Confirm(booking.GuestCount{})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Range.Start != "2025-03-04" || confirmed.Range.End != "2025-03-04" || confirmed.Quote != nil {
		t.Fatalf("confirmed=%+v", confirmed)
	}
}

type gatedLoader struct {
	inner   ModelLoader
	mu      sync.Mutex
	calls   int
	gate    chan struct{}
	started chan struct{}
}

func (g *gatedLoader) Load(ctx context.Context, id listings.ListingID) (*availability.Model, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if first {
		close(g.started)
		<-g.gate
	}
	return g.inner.Load(ctx, id)
}

func TestManagerDiscardsStaleLoad(t *testing.T) {
	s := newStores(t)
	loader := &gatedLoader{inner: s.loader(), gate: make(chan struct{}), started: make(chan struct{})}
	m := NewManager(loader, 0, nil)

	type result struct {
		sess *Session
		err  error
	}
	done := make(chan result, 1)
	go func() {
		sess, err := m.Open(context.Background(), OpenRequest{ClientKey: "tab-1", ListingID: listingID})
		done <- result{sess, err}
	}()
	<-loader.started

	fresh, err := m.Open(context.Background(), OpenRequest{ClientKey: "tab-1", ListingID: "listing-2"})
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	close(loader.gate)
	stale := <-done
	if !errors.Is(stale.err, ErrStaleSession) {
		t.Fatalf("expected stale session, got %v", stale.err)
	}
	got, err := m.Get(fresh.ID())
	if err != nil || got.ListingID() != "listing-2" {
		t.Fatalf("current session=%v err=%v", got, err)
	}
	if m.Len() != 1 {
		t.Fatalf("sessions=%d", m.Len())
	}
}

func TestManagerCloseAndCancel(t *testing.T) {
	s := newStores(t)
	m := NewManager(s.loader(), 0, nil)
	sess, err := m.Open(context.Background(), OpenRequest{ClientKey: "tab-1", ListingID: listingID})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Close(sess.ID()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := m.Get(sess.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("closed session still reachable: %v", err)
	}
	if err := m.Close(sess.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("double close: %v", err)
	}

	sess, _ = m.Open(context.Background(), OpenRequest{ClientKey: "tab-1", ListingID: listingID})
	m.Cancel("tab-1")
	if _, err := m.Get(sess.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("cancelled session still reachable: %v", err)
	}
	if _, err := m.Open(context.Background(), OpenRequest{ListingID: listingID}); !errors.Is(err, ErrClientRequired) {
		t.Fatalf("expected client key error, got %v", err)
	}
}
