package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"homeflow/geo"
	"homeflow/property"
	"homeflow/verification"
)

// PropertyStore is the slice of property.Repository the handler needs.
type PropertyStore interface {
	Create(ctx context.Context, params property.CreateParams) (property.Property, error)
	GetByID(ctx context.Context, id string) (property.Property, error)
	ListByLister(ctx context.Context, listerID string, limit int) ([]property.Property, error)
	IncrementViews(ctx context.Context, id string) error
}

// VerificationService is the slice of verification.Service the handler needs.
type VerificationService interface {
	Submit(ctx context.Context, propertyID, verifierID string, sub verification.Submission) (verification.Evidence, error)
	Finalize(ctx context.Context, propertyID string) error
}

// SocialService is the slice of social.Service the handler needs.
type SocialService interface {
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	Like(ctx context.Context, userID, propertyID string) error
	Unlike(ctx context.Context, userID, propertyID string) error
}

// PropertyHandler serves listings, verification, and the social edges on
// listings and users.
type PropertyHandler struct {
	Properties   PropertyStore
	Verification VerificationService
	Social       SocialService
}

func (h *PropertyHandler) Create(c *gin.Context) {
	var req struct {
		Title     string  `json:"title"`
		Address   string  `json:"address"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "Malformed property payload."})
		return
	}
	p, err := h.Properties.Create(c.Request.Context(), property.CreateParams{
		ListerID:  CallerID(c),
		Title:     req.Title,
		Address:   req.Address,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, propertyJSON(p))
}

// Get returns one listing and counts the view.
func (h *PropertyHandler) Get(c *gin.Context) {
	p, err := h.Properties.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.Properties.IncrementViews(c.Request.Context(), p.ID); err != nil {
		writeError(c, err)
		return
	}
	p.ViewsCount++
	c.JSON(http.StatusOK, propertyJSON(p))
}

func (h *PropertyHandler) ListMine(c *gin.Context) {
	props, err := h.Properties.ListByLister(c.Request.Context(), CallerID(c), 50)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(props))
	for _, p := range props {
		out = append(out, propertyJSON(p))
	}
	c.JSON(http.StatusOK, gin.H{"properties": out})
}

func propertyJSON(p property.Property) gin.H {
	return gin.H{
		"id":                  p.ID,
		"lister_id":           p.ListerID,
		"title":               p.Title,
		"address":             p.Address,
		"latitude":            p.Latitude,
		"longitude":           p.Longitude,
		"verification_status": p.VerificationStatus,
		"verifier_id":         p.VerifierID,
		"likes_count":         p.LikesCount,
		"views_count":         p.ViewsCount,
	}
}

func (h *PropertyHandler) SubmitVerification(c *gin.Context) {
	var req struct {
		PhotoURLs  []string  `json:"photo_urls"`
		Latitude   float64   `json:"latitude"`
		Longitude  float64   `json:"longitude"`
		Accuracy   float64   `json:"accuracy"`
		CapturedAt time.Time `json:"captured_at"`
		Notes      string    `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "Malformed verification payload."})
		return
	}
	ev, err := h.Verification.Submit(c.Request.Context(), c.Param("id"), CallerID(c), verification.Submission{
		PhotoURLs:  req.PhotoURLs,
		Location:   geo.Point{Latitude: req.Latitude, Longitude: req.Longitude},
		Accuracy:   req.Accuracy,
		CapturedAt: req.CapturedAt,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":          ev.ID,
		"property_id": ev.PropertyID,
		"verifier_id": ev.VerifierID,
		"captured_at": ev.CapturedAt,
	})
}

func (h *PropertyHandler) FinalizeVerification(c *gin.Context) {
	if err := h.Verification.Finalize(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

func (h *PropertyHandler) Like(c *gin.Context) {
	if err := h.Social.Like(c.Request.Context(), CallerID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PropertyHandler) Unlike(c *gin.Context) {
	if err := h.Social.Unlike(c.Request.Context(), CallerID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PropertyHandler) Follow(c *gin.Context) {
	if err := h.Social.Follow(c.Request.Context(), CallerID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PropertyHandler) Unfollow(c *gin.Context) {
	if err := h.Social.Unfollow(c.Request.Context(), CallerID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
