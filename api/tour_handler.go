package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"homeflow/tour"
)

// TourService is the slice of tour.Service the handler needs.
type TourService interface {
	Request(ctx context.Context, params tour.RequestParams) (tour.Tour, error)
	Book(ctx context.Context, params tour.BookParams) (tour.Tour, error)
	Confirm(ctx context.Context, tourID string, confirmedTime time.Time) (tour.Tour, error)
	Cancel(ctx context.Context, tourID, actorID string) (tour.Tour, error)
	Complete(ctx context.Context, tourID string) (tour.Tour, error)
}

// TourHandler serves the tour lifecycle.
type TourHandler struct {
	Tours TourService
}

func (h *TourHandler) Request(c *gin.Context) {
	var req struct {
		PropertyID    string      `json:"property_id"`
		ProposedTimes []time.Time `json:"proposed_times"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "Malformed tour payload."})
		return
	}
	t, err := h.Tours.Request(c.Request.Context(), tour.RequestParams{
		PropertyID:    req.PropertyID,
		RenterID:      CallerID(c),
		ProposedTimes: req.ProposedTimes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tourJSON(t))
}

func (h *TourHandler) Book(c *gin.Context) {
	var req struct {
		PropertyID     string   `json:"property_id"`
		RequestedDate  string   `json:"requested_date"`
		RequestedTime  string   `json:"requested_time"`
		Message        string   `json:"message"`
		ParticipantIDs []string `json:"participant_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "Malformed booking payload."})
		return
	}
	t, err := h.Tours.Book(c.Request.Context(), tour.BookParams{
		PropertyID:     req.PropertyID,
		RenterID:       CallerID(c),
		RequestedDate:  req.RequestedDate,
		RequestedTime:  req.RequestedTime,
		Message:        req.Message,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tourJSON(t))
}

func (h *TourHandler) Confirm(c *gin.Context) {
	var req struct {
		ConfirmedTime time.Time `json:"confirmed_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "Malformed confirmation payload."})
		return
	}
	t, err := h.Tours.Confirm(c.Request.Context(), c.Param("id"), req.ConfirmedTime)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tourJSON(t))
}

func (h *TourHandler) Cancel(c *gin.Context) {
	t, err := h.Tours.Cancel(c.Request.Context(), c.Param("id"), CallerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tourJSON(t))
}

func (h *TourHandler) Complete(c *gin.Context) {
	t, err := h.Tours.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tourJSON(t))
}

func tourJSON(t tour.Tour) gin.H {
	return gin.H{
		"id":             t.ID,
		"property_id":    t.PropertyID,
		"renter_id":      t.RenterID,
		"agent_id":       t.AgentID,
		"status":         t.Status,
		"proposed_times": t.ProposedTimes,
		"confirmed_time": t.ConfirmedTime,
		"note":           t.Note,
	}
}
