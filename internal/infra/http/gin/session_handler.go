package ginserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"rentcal/internal/app/dto"
	"rentcal/internal/app/session"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

const clientKeyHeader = "X-Client-Key"

// SessionHandler exposes the interactive calendar: open a session for a
// listing, tap dates, and confirm the selected range.
type SessionHandler struct {
	Sessions *session.Manager
	Now      func() time.Time
	Logger   *slog.Logger
}

type openSessionRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
	Mode      string `json:"mode"`
	ClientKey string `json:"client_key"`
}

type tapRequest struct {
	Date string `json:"date" binding:"required"`
}

type confirmRequest struct {
	Guests dto.Guests `json:"guests"`
}

func (h SessionHandler) Open(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	mode, err := session.ParseMode(strings.TrimSpace(req.Mode))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	clientKey := c.GetHeader(clientKeyHeader)
	if clientKey == "" {
		clientKey = req.ClientKey
	}
	sess, err := h.Sessions.Open(c.Request.Context(), session.OpenRequest{
		ClientKey: clientKey,
		ListingID: domainlistings.ListingID(strings.TrimSpace(req.ListingID)),
		Mode:      mode,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("Location", "/api/v1/calendar-sessions/"+sess.ID())
	c.JSON(http.StatusCreated, dto.MapSession(sess.View(h.now())))
}

func (h SessionHandler) Get(c *gin.Context) {
	sess, err := h.Sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapSession(sess.View(h.now())))
}

func (h SessionHandler) Tap(c *gin.Context) {
	var req tapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	d, err := daterange.Parse(req.Date)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	sess, err := h.Sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	now := h.now()
	tr := sess.Tap(d, now)
	c.JSON(http.StatusOK, dto.TapResult{Outcome: string(tr.Outcome), Session: dto.MapSession(sess.View(now))})
}

func (h SessionHandler) Confirm(c *gin.Context) {
	var req confirmRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	sess, err := h.Sessions.Get(c.Param("sid"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	confirmed, err := sess.Confirm(req.Guests.Count())
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapConfirmation(confirmed))
}

func (h SessionHandler) Close(c *gin.Context) {
	if err := h.Sessions.Close(c.Param("sid")); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h SessionHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

var _ SessionHTTP = SessionHandler{}
