package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rentcal/internal/domain/availability"
	"rentcal/internal/domain/booking"
	"rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/money"
)

const DefaultFetchTimeout = 5 * time.Second

// ModelLoader builds a fresh availability model for one listing.
type ModelLoader interface {
	Load(ctx context.Context, id listings.ListingID) (*availability.Model, error)
}

// Loader reads the five collections a calendar needs and aggregates them.
// All reads run concurrently and are joined before aggregation; a failing
// read is logged and recorded on the model instead of failing the load.
type Loader struct {
	Bookings     booking.Repository
	Adjustments  availability.AdjustmentRepository
	Rules        listings.RulesQuery
	FetchTimeout time.Duration
	Fallback     money.Money
	Currency     string
	Logger       *slog.Logger
}

func (l *Loader) Load(ctx context.Context, id listings.ListingID) (*availability.Model, error) {
	if id == "" {
		return nil, listings.ErrListingIDMissing
	}
	in := availability.Inputs{ListingID: id, Fallback: l.Fallback, Currency: l.Currency}
	var (
		mu       sync.Mutex
		failures []availability.Source
		g        errgroup.Group
	)
	fail := func(src availability.Source, err error) {
		mu.Lock()
		failures = append(failures, src)
		mu.Unlock()
		l.logger().WarnContext(ctx, "calendar read failed", "listing_id", id, "source", src, "error", err)
	}

	g.Go(func() error {
		fetchCtx, cancel := l.fetchContext(ctx)
		defer cancel()
		items, err := l.Bookings.ListByListing(fetchCtx, id)
		if err != nil {
			fail(availability.SourceBookings, err)
			return nil
		}
		in.Bookings = items
		return nil
	})
	g.Go(func() error {
		fetchCtx, cancel := l.fetchContext(ctx)
		defer cancel()
		items, err := l.Adjustments.ListByListing(fetchCtx, id)
		if err != nil {
			fail(availability.SourceAdjustments, err)
			return nil
		}
		in.Adjustments = items
		return nil
	})
	g.Go(func() error {
		fetchCtx, cancel := l.fetchContext(ctx)
		defer cancel()
		pc, err := l.Rules.PriceRule(fetchCtx, id)
		switch {
		case errors.Is(err, listings.ErrRulesNotFound):
		case err != nil:
			fail(availability.SourcePriceRule, err)
		default:
			in.Pricing = &pc
		}
		return nil
	})
	g.Go(func() error {
		fetchCtx, cancel := l.fetchContext(ctx)
		defer cancel()
		stay, err := l.Rules.StayRules(fetchCtx, id)
		switch {
		case errors.Is(err, listings.ErrRulesNotFound):
		case err != nil:
			fail(availability.SourceStayRules, err)
		default:
			in.Stay = &stay
		}
		return nil
	})
	g.Go(func() error {
		fetchCtx, cancel := l.fetchContext(ctx)
		defer cancel()
		house, err := l.Rules.HouseRules(fetchCtx, id)
		switch {
		case errors.Is(err, listings.ErrRulesNotFound):
		case err != nil:
			fail(availability.SourceHouseRules, err)
		default:
			in.House = &house
		}
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in.Failures = failures
	model := availability.Aggregate(in)
	for _, skipped := range model.Skipped() {
		l.logger().WarnContext(ctx, "adjustment skipped", "listing_id", id, "date", skipped.Raw.Date, "error", skipped.Err)
	}
	return model, nil
}

func (l *Loader) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := l.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
