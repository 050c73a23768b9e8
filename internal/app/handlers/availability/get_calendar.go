package availability

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentcal/internal/app/dto"
	"rentcal/internal/app/queries"
	"rentcal/internal/app/session"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

const (
	getCalendarKey = "availability.calendar"

	// MaxCalendarDays caps the window a single calendar query may span.
	MaxCalendarDays = 366
	defaultWindow   = 90
)

var ErrWindowTooLarge = errors.New("availability: calendar window too large")

// GetCalendarQuery asks for per-date records of one listing. From and To are
// optional dates; an empty From means today and an empty To covers the
// default window.
type GetCalendarQuery struct {
	ListingID string
	From      string
	To        string
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

func (q GetCalendarQuery) Validate() error {
	if strings.TrimSpace(q.ListingID) == "" {
		return domainlistings.ErrListingIDMissing
	}
	for _, raw := range []string{q.From, q.To} {
		if raw == "" {
			continue
		}
		if _, err := daterange.Parse(raw); err != nil {
			return err
		}
	}
	return nil
}

type GetCalendarHandler struct {
	Loader session.ModelLoader
	Now    func() time.Time
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	today := daterange.FromTime(now(h.Now))
	window, err := calendarWindow(q.From, q.To, today)
	if err != nil {
		return dto.Calendar{}, err
	}
	model, err := h.Loader.Load(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(model, window, today), nil
}

func calendarWindow(from, to string, today daterange.Date) (daterange.Range, error) {
	start := today
	if from != "" {
		d, err := daterange.Parse(from)
		if err != nil {
			return daterange.Range{}, err
		}
		start = d
	}
	end := start.AddDays(defaultWindow - 1)
	if to != "" {
		d, err := daterange.Parse(to)
		if err != nil {
			return daterange.Range{}, err
		}
		end = d
	}
	r, err := daterange.New(start, end)
	if err != nil {
		return daterange.Range{}, err
	}
	if r.Nights()+1 > MaxCalendarDays {
		return daterange.Range{}, ErrWindowTooLarge
	}
	return r, nil
}

func now(clock func() time.Time) time.Time {
	if clock != nil {
		return clock()
	}
	return time.Now().UTC()
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
