package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	availabilityapp "rentcal/internal/app/handlers/availability"
	"rentcal/internal/app/middleware"
	"rentcal/internal/app/session"
	domainavailability "rentcal/internal/domain/availability"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/selection"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/domain/shared/money"
)

type errorResponse struct {
	Error       string   `json:"error"`
	Code        string   `json:"code,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	Date        string   `json:"date,omitempty"`
	FailedDates []string `json:"failed_dates,omitempty"`
}

func statusFor(err error) int {
	var (
		violation  *domainavailability.Violation
		validation *middleware.ErrValidation
		saveErr    *availabilityapp.SaveError
	)
	switch {
	case errors.As(err, &violation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &saveErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrStaleSession),
		errors.Is(err, selection.ErrNothingToConfirm),
		errors.Is(err, middleware.ErrIdempotencyKeyReused):
		return http.StatusConflict
	case errors.As(err, &validation),
		errors.Is(err, daterange.ErrInvalidDate),
		errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, domainlistings.ErrListingIDMissing),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, session.ErrClientRequired),
		errors.Is(err, session.ErrUnknownMode),
		errors.Is(err, availabilityapp.ErrWindowTooLarge),
		errors.Is(err, availabilityapp.ErrNoDates),
		errors.Is(err, availabilityapp.ErrTooManyDates),
		errors.Is(err, availabilityapp.ErrDatesAndRange):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}
	var violation *domainavailability.Violation
	if errors.As(err, &violation) {
		body.Error = violation.Message
		body.Code = string(violation.Code)
		body.Limit = violation.Limit
		body.Date = violation.Date.String()
	}
	var saveErr *availabilityapp.SaveError
	if errors.As(err, &saveErr) {
		for _, d := range saveErr.Failed {
			body.FailedDates = append(body.FailedDates, d.String())
		}
	}
	if logger != nil && status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "request failed", "status", status, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, body)
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}
