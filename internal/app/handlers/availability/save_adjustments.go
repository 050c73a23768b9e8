package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	"rentcal/internal/app/outbox"
	domainavailability "rentcal/internal/domain/availability"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/domain/shared/events"
	"rentcal/internal/domain/shared/money"
)

const (
	saveAdjustmentsKey = "availability.save_adjustments"

	DefaultSaveConcurrency = 4
)

var (
	ErrNoDates = errors.New("availability: no dates to adjust")
	// ErrDatesAndRange is returned when a command names both explicit dates and a range.
	ErrDatesAndRange = errors.New("availability: give either dates or a range")
	// ErrTooManyDates is returned when one save would touch more than
	// MaxCalendarDays dates.
	ErrTooManyDates = errors.New("availability: too many dates in one save")
)

// AdjustmentEntry sets one date explicitly. OverridePrice is in major units.
type AdjustmentEntry struct {
	Date          string
	OverridePrice *float64
	Blocked       bool
}

// SaveAdjustmentsCommand writes host overrides and blocks. Either Dates or
// From/To select the dates that receive OverridePrice and Blocked; Entries
// add per-date values. When a date appears more than once the last entry
// wins.
type SaveAdjustmentsCommand struct {
	ListingID     string
	Dates         []string
	From          string
	To            string
	OverridePrice *float64
	Blocked       bool
	Entries       []AdjustmentEntry
	RequestKey    string
}

func (c SaveAdjustmentsCommand) Key() string { return saveAdjustmentsKey }

func (c SaveAdjustmentsCommand) IdempotencyKey() string { return c.RequestKey }

func (c SaveAdjustmentsCommand) ResultPrototype() any { return &dto.AdjustmentsSaved{} }

func (c SaveAdjustmentsCommand) Validate() error {
	if strings.TrimSpace(c.ListingID) == "" {
		return domainlistings.ErrListingIDMissing
	}
	if len(c.Dates) > 0 && (c.From != "" || c.To != "") {
		return ErrDatesAndRange
	}
	if (c.From == "") != (c.To == "") {
		return daterange.ErrInvalidRange
	}
	if c.OverridePrice != nil && *c.OverridePrice < 0 {
		return money.ErrInvalidAmount
	}
	for _, e := range c.Entries {
		if e.OverridePrice != nil && *e.OverridePrice < 0 {
			return money.ErrInvalidAmount
		}
	}
	total := len(c.Dates) + len(c.Entries)
	if c.From != "" {
		days, err := rangeDays(c.From, c.To)
		if err != nil {
			return err
		}
		total += days
	}
	if total > MaxCalendarDays {
		return ErrTooManyDates
	}
	return nil
}

func rangeDays(from, to string) (int, error) {
	start, err := daterange.Parse(from)
	if err != nil {
		return 0, err
	}
	end, err := daterange.Parse(to)
	if err != nil {
		return 0, err
	}
	r, err := daterange.New(start, end)
	if err != nil {
		return 0, err
	}
	return r.Nights() + 1, nil
}

// SaveError reports the dates whose upsert failed. Other dates of the same
// save were written and stay written.
type SaveError struct {
	Failed []daterange.Date
	Err    error
}

func (e *SaveError) Error() string {
	dates := make([]string, 0, len(e.Failed))
	for _, d := range e.Failed {
		dates = append(dates, d.String())
	}
	return fmt.Sprintf("availability: could not save %s: %v", strings.Join(dates, ", "), e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

type SaveAdjustmentsHandler struct {
	Adjustments domainavailability.AdjustmentRepository
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Currency    string
	Concurrency int
	Now         func() time.Time
	Logger      *slog.Logger
}

func (h *SaveAdjustmentsHandler) Handle(ctx context.Context, cmd SaveAdjustmentsCommand) (dto.AdjustmentsSaved, error) {
	id := domainlistings.ListingID(cmd.ListingID)
	adjustments, err := h.plan(id, cmd)
	if err != nil {
		return dto.AdjustmentsSaved{}, err
	}

	var (
		mu       sync.Mutex
		failed   = make(map[daterange.Date]struct{})
		firstErr error
		g        errgroup.Group
	)
	g.SetLimit(h.concurrency())
	for _, adj := range adjustments {
		g.Go(func() error {
			if err := h.Adjustments.Upsert(ctx, adj); err != nil {
				mu.Lock()
				failed[adj.Date] = struct{}{}
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				h.logger().WarnContext(ctx, "adjustment upsert failed", "listing_id", id, "date", adj.Date, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	var (
		recorder events.EventRecorder
		saved    []string
		missing  []daterange.Date
	)
	at := now(h.Now)
	for _, adj := range adjustments {
		if _, ok := failed[adj.Date]; ok {
			missing = append(missing, adj.Date)
			continue
		}
		saved = append(saved, adj.Date.String())
		recorder.Record(domainavailability.CalendarAdjustedEvent(id, adj, at))
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, recorder.PendingEvents()); err != nil {
		return dto.AdjustmentsSaved{}, err
	}
	if len(missing) > 0 {
		return dto.AdjustmentsSaved{}, &SaveError{Failed: missing, Err: firstErr}
	}
	h.logger().InfoContext(ctx, "adjustments saved", "listing_id", id, "dates", len(saved))
	return dto.AdjustmentsSaved{ListingID: cmd.ListingID, Saved: saved}, nil
}

// plan expands the command into one adjustment per distinct date.
func (h *SaveAdjustmentsHandler) plan(id domainlistings.ListingID, cmd SaveAdjustmentsCommand) ([]domainavailability.Adjustment, error) {
	total := len(cmd.Dates) + len(cmd.Entries)
	if cmd.From != "" {
		days, err := rangeDays(cmd.From, cmd.To)
		if err != nil {
			return nil, err
		}
		total += days
	}
	if total > MaxCalendarDays {
		return nil, ErrTooManyDates
	}
	entries := make([]AdjustmentEntry, 0, total)
	for _, raw := range cmd.Dates {
		entries = append(entries, AdjustmentEntry{Date: raw, OverridePrice: cmd.OverridePrice, Blocked: cmd.Blocked})
	}
	if cmd.From != "" {
		dates, err := daterange.DatesInRange(cmd.From, cmd.To)
		if err != nil {
			return nil, err
		}
		for _, d := range dates {
			entries = append(entries, AdjustmentEntry{Date: d.String(), OverridePrice: cmd.OverridePrice, Blocked: cmd.Blocked})
		}
	}
	entries = append(entries, cmd.Entries...)
	if len(entries) == 0 {
		return nil, ErrNoDates
	}

	byDate := make(map[daterange.Date]domainavailability.Adjustment, len(entries))
	for _, e := range entries {
		d, err := daterange.Parse(e.Date)
		if err != nil {
			return nil, err
		}
		adj := domainavailability.Adjustment{ListingID: id, Date: d, Blocked: e.Blocked}
		if e.OverridePrice != nil {
			price, err := money.FromMajor(*e.OverridePrice, h.currency())
			if err != nil {
				return nil, err
			}
			adj.OverridePrice = &price
		}
		byDate[d] = adj
	}
	out := make([]domainavailability.Adjustment, 0, len(byDate))
	for _, adj := range byDate {
		out = append(out, adj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (h *SaveAdjustmentsHandler) concurrency() int {
	if h.Concurrency > 0 {
		return h.Concurrency
	}
	return DefaultSaveConcurrency
}

func (h *SaveAdjustmentsHandler) currency() string {
	if h.Currency != "" {
		return h.Currency
	}
	return "USD"
}

func (h *SaveAdjustmentsHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[SaveAdjustmentsCommand, dto.AdjustmentsSaved] = (*SaveAdjustmentsHandler)(nil)
