package availability

import (
	"context"
	"strings"
	"time"

	"rentcal/internal/app/dto"
	"rentcal/internal/app/queries"
	"rentcal/internal/app/session"
	domainavailability "rentcal/internal/domain/availability"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/pricing"
	"rentcal/internal/domain/shared/daterange"
)

const quoteStayKey = "availability.quote"

// QuoteStayQuery prices a stay without an interactive session. The range is
// checked with the same rules the guest calendar applies.
type QuoteStayQuery struct {
	ListingID string
	CheckIn   string
	CheckOut  string
	Guests    dto.Guests
}

func (q QuoteStayQuery) Key() string { return quoteStayKey }

func (q QuoteStayQuery) Validate() error {
	if strings.TrimSpace(q.ListingID) == "" {
		return domainlistings.ErrListingIDMissing
	}
	_, err := q.stayRange()
	return err
}

func (q QuoteStayQuery) stayRange() (daterange.Range, error) {
	start, err := daterange.Parse(q.CheckIn)
	if err != nil {
		return daterange.Range{}, err
	}
	end, err := daterange.Parse(q.CheckOut)
	if err != nil {
		return daterange.Range{}, err
	}
	return daterange.New(start, end)
}

type QuoteStayHandler struct {
	Loader session.ModelLoader
	Now    func() time.Time
}

func (h *QuoteStayHandler) Handle(ctx context.Context, q QuoteStayQuery) (dto.Quote, error) {
	r, err := q.stayRange()
	if err != nil {
		return dto.Quote{}, err
	}
	model, err := h.Loader.Load(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Quote{}, err
	}
	v := domainavailability.NewValidator(model, daterange.FromTime(now(h.Now)), domainavailability.GuestPolicy)
	if err := v.CheckSelection(r); err != nil {
		return dto.Quote{}, err
	}
	guests, err := v.AdmitGuests(q.Guests.Count())
	if err != nil {
		return dto.Quote{}, err
	}
	if err := v.CheckGuests(guests); err != nil {
		return dto.Quote{}, err
	}
	pb, err := pricing.Quote(model, pricing.QuoteInput{Range: r, Pricing: model.Pricing(), Pets: guests.Pets})
	if err != nil {
		return dto.Quote{}, err
	}
	out := dto.MapQuote(q.ListingID, r, pb)
	admitted := dto.MapGuests(guests)
	out.Guests = &admitted
	return out, nil
}

var _ queries.Handler[QuoteStayQuery, dto.Quote] = (*QuoteStayHandler)(nil)
