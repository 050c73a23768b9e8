package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	availabilityapp "rentcal/internal/app/handlers/availability"
	"rentcal/internal/app/middleware"
	"rentcal/internal/app/queries"
	"rentcal/internal/app/session"
	domainbooking "rentcal/internal/domain/booking"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/domain/shared/money"
	"rentcal/internal/infra/obs"
	"rentcal/internal/infra/storage/memory"
)

const listingID = "listing-1"

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type testServer struct {
	router      *gin.Engine
	adjustments *memory.AdjustmentStore
	outbox      *memory.Outbox
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	bookings := memory.NewBookingStore()
	adjustments := memory.NewAdjustmentStore()
	rules := memory.NewRulesStore()
	box := memory.NewOutbox()
	if err := rules.SavePriceRule(ctx, listingID, domainlistings.PricingContext{
		BasePricePerNight:        money.Must(10000, "USD"),
		BasePricePerNightWeekend: money.Must(15000, "USD"),
		CleaningFee:              money.Must(2500, "USD"),
	}); err != nil {
		t.Fatalf("price rule: %v", err)
	}
	if err := rules.SaveStayRules(ctx, listingID, domainlistings.StayConstraints{MinStay: 2, MaxStay: 10}); err != nil {
		t.Fatalf("stay rules: %v", err)
	}
	if err := rules.SaveHouseRules(ctx, listingID, domainlistings.HouseRules{GuestsMax: 3}); err != nil {
		t.Fatalf("house rules: %v", err)
	}
	b, _ := domainbooking.New("b1", listingID, daterange.Range{Start: "2025-03-10", End: "2025-03-12"})
	if err := bookings.Add(ctx, b); err != nil {
		t.Fatalf("booking: %v", err)
	}
	loader := &session.Loader{
		Bookings:    bookings,
		Adjustments: adjustments,
		Rules:       rules,
		Fallback:    money.Must(9000, "USD"),
		Currency:    "USD",
	}

	qbus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.GetCalendarQuery, dto.Calendar](qbus, availabilityapp.GetCalendarQuery{}.Key(), &availabilityapp.GetCalendarHandler{Loader: loader, Now: clock})
	queries.RegisterHandler[availabilityapp.QuoteStayQuery, dto.Quote](qbus, availabilityapp.QuoteStayQuery{}.Key(), &availabilityapp.QuoteStayHandler{Loader: loader, Now: clock})
	cbus := commands.NewInMemoryBus()
	commands.RegisterHandler[availabilityapp.SaveAdjustmentsCommand, dto.AdjustmentsSaved](cbus, availabilityapp.SaveAdjustmentsCommand{}.Key(),
		&availabilityapp.SaveAdjustmentsHandler{Adjustments: adjustments, Outbox: box, Currency: "USD", Now: clock})

	manager := session.NewManager(loader, 3*time.Second, nil)
	manager.Now = clock
	handlers := Handlers{
		Availability: AvailabilityHandler{Queries: middleware.ChainQueries(qbus, middleware.QueryValidation(middleware.SelfValidator{}))},
		Sessions:     SessionHandler{Sessions: manager, Now: clock},
		HostCalendar: HostCalendarHandler{Commands: middleware.ChainCommands(cbus,
			middleware.Idempotency(memory.NewIdempotencyStore(), nil, time.Hour),
			middleware.OutboxFlush(box),
			middleware.Validation(middleware.SelfValidator{}),
		)},
	}
	return testServer{
		router:      NewRouter(obs.Middleware{}, obs.HealthHandlers{}, handlers),
		adjustments: adjustments,
		outbox:      box,
	}
}

func (s testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func TestCalendarEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/listings/listing-1/calendar?from=2025-03-08&to=2025-03-12", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	cal := decode[dto.Calendar](t, rec)
	if len(cal.Days) != 5 {
		t.Fatalf("days=%d", len(cal.Days))
	}
	if cal.Days[0].PriceCents != 15000 || cal.Days[2].PriceCents != 10000 {
		t.Fatalf("prices=%+v", cal.Days)
	}
	if !cal.Days[2].Booked || cal.Days[2].Selectable || !cal.Days[1].Selectable {
		t.Fatalf("days=%+v", cal.Days)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/listings/listing-1/calendar?from=2025-03-12&to=2025-03-08", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted window status=%d", rec.Code)
	}
}

func TestQuoteEndpoint(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"priced", map[string]any{"check_in": "2025-03-03", "check_out": "2025-03-06", "guests": map[string]int{"adults": 2}}, http.StatusOK, ""},
		{"too short", map[string]any{"check_in": "2025-03-03", "check_out": "2025-03-04", "guests": map[string]int{"adults": 2}}, http.StatusUnprocessableEntity, "min_stay"},
		{"across booking", map[string]any{"check_in": "2025-03-08", "check_out": "2025-03-13", "guests": map[string]int{"adults": 2}}, http.StatusUnprocessableEntity, "range_unavailable"},
		{"bad date", map[string]any{"check_in": "03/03/2025", "check_out": "2025-03-06"}, http.StatusBadRequest, ""},
		{"missing field", map[string]any{"check_in": "2025-03-03"}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/listings/listing-1/quote", tt.body, nil)
			if rec.Code != tt.status {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
			if tt.status == http.StatusOK {
				q := decode[dto.Quote](t, rec)
				if q.TotalCents != 32500 || q.Nights != 3 {
					t.Fatalf("quote=%+v", q)
				}
			}
			if tt.code != "" {
				if body := decode[errorResponse](t, rec); body.Code != tt.code {
					t.Fatalf("code=%s", body.Code)
				}
			}
		})
	}
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/calendar-sessions", map[string]string{"listing_id": listingID}, map[string]string{clientKeyHeader: "tab-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open status=%d body=%s", rec.Code, rec.Body.String())
	}
	sess := decode[dto.Session](t, rec)
	base := "/api/v1/calendar-sessions/" + sess.ID

	rec = s.do(t, http.MethodPost, base+"/taps", map[string]string{"date": "2025-03-03"}, nil)
	if tap := decode[dto.TapResult](t, rec); tap.Outcome != "advanced" || tap.Session.Start != "2025-03-03" {
		t.Fatalf("first tap=%+v", tap)
	}
	rec = s.do(t, http.MethodPost, base+"/taps", map[string]string{"date": "2025-03-04"}, nil)
	tap := decode[dto.TapResult](t, rec)
	if tap.Outcome != "rejected" || tap.Session.Warning == nil || tap.Session.Warning.Code != "min_stay" {
		t.Fatalf("short tap=%+v", tap)
	}
	rec = s.do(t, http.MethodPost, base+"/taps", map[string]string{"date": "2025-03-06"}, nil)
	if tap := decode[dto.TapResult](t, rec); tap.Outcome != "advanced" || tap.Session.Phase != "range_selected" {
		t.Fatalf("second tap=%+v", tap)
	}

	rec = s.do(t, http.MethodPost, base+"/confirm", map[string]any{"guests": map[string]int{"adults": 3, "children": 1}}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("over capacity status=%d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, base+"/confirm", map[string]any{"guests": map[string]int{"adults": 2}}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status=%d body=%s", rec.Code, rec.Body.String())
	}
	confirmed := decode[dto.Confirmation](t, rec)
	if confirmed.Nights != 3 || confirmed.Quote == nil || confirmed.Quote.TotalCents != 32500 {
		t.Fatalf("confirmation=%+v", confirmed)
	}

	if rec = s.do(t, http.MethodDelete, base, nil, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rec.Code)
	}
	if rec = s.do(t, http.MethodGet, base, nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/api/v1/calendar-sessions", map[string]string{"listing_id": listingID}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("open without client key status=%d", rec.Code)
	}
}

func TestSaveAdjustmentsEndpointReplaysByIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"from": "2025-03-20", "to": "2025-03-22", "override_price": 80.5}
	headers := map[string]string{"Idempotency-Key": "save-1"}

	rec := s.do(t, http.MethodPut, "/api/v1/host/listings/listing-1/adjustments", body, headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	saved := decode[dto.AdjustmentsSaved](t, rec)
	if len(saved.Saved) != 3 || saved.Saved[0] != "2025-03-20" {
		t.Fatalf("saved=%+v", saved)
	}
	if len(s.outbox.Pending()) != 3 {
		t.Fatalf("events=%d", len(s.outbox.Pending()))
	}

	rec = s.do(t, http.MethodPut, "/api/v1/host/listings/listing-1/adjustments", body, headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("replay status=%d", rec.Code)
	}
	if len(s.outbox.Pending()) != 3 || s.adjustments.Count(listingID) != 3 {
		t.Fatalf("replay must not write again: events=%d rows=%d", len(s.outbox.Pending()), s.adjustments.Count(listingID))
	}

	rec = s.do(t, http.MethodGet, "/api/v1/listings/listing-1/calendar?from=2025-03-20&to=2025-03-20", nil, nil)
	if cal := decode[dto.Calendar](t, rec); cal.Days[0].PriceCents != 8050 {
		t.Fatalf("override not visible: %+v", cal.Days)
	}

	rec = s.do(t, http.MethodPut, "/api/v1/host/listings/listing-1/adjustments", map[string]any{"blocked": true}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty save status=%d", rec.Code)
	}
	rec = s.do(t, http.MethodPut, "/api/v1/host/listings/listing-1/adjustments", map[string]any{"from": "2025-01-01", "to": "2124-12-31", "blocked": true}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized save status=%d", rec.Code)
	}
	if s.adjustments.Count(listingID) != 3 {
		t.Fatalf("oversized save wrote rows: %d", s.adjustments.Count(listingID))
	}
}
