package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	availabilityapp "rentcal/internal/app/handlers/availability"
)

type HostCalendarHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type adjustmentEntryRequest struct {
	Date          string   `json:"date"`
	OverridePrice *float64 `json:"override_price"`
	Blocked       bool     `json:"blocked"`
}

type saveAdjustmentsRequest struct {
	Dates         []string                 `json:"dates"`
	From          string                   `json:"from"`
	To            string                   `json:"to"`
	OverridePrice *float64                 `json:"override_price"`
	Blocked       bool                     `json:"blocked"`
	Entries       []adjustmentEntryRequest `json:"entries"`
}

// SaveAdjustments upserts overrides and blocks for the listing. Retries with
// the same Idempotency-Key replay the first successful result.
func (h HostCalendarHandler) SaveAdjustments(c *gin.Context) {
	var req saveAdjustmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cmd := availabilityapp.SaveAdjustmentsCommand{
		ListingID:     strings.TrimSpace(c.Param("id")),
		Dates:         req.Dates,
		From:          req.From,
		To:            req.To,
		OverridePrice: req.OverridePrice,
		Blocked:       req.Blocked,
		RequestKey:    strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	}
	for _, e := range req.Entries {
		cmd.Entries = append(cmd.Entries, availabilityapp.AdjustmentEntry{Date: e.Date, OverridePrice: e.OverridePrice, Blocked: e.Blocked})
	}
	result, err := commands.Dispatch[availabilityapp.SaveAdjustmentsCommand, dto.AdjustmentsSaved](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostCalendarHTTP = HostCalendarHandler{}
