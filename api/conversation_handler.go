package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"homeflow/conversation"
	"homeflow/deal"
)

// ConversationService is the slice of conversation.Service the handler needs.
type ConversationService interface {
	FindOrCreate(ctx context.Context, propertyID, userA, userB string, seed *conversation.SeedMessage) (conversation.Conversation, bool, error)
	AppendMessage(ctx context.Context, conversationID, senderID string, content conversation.Content) (conversation.Message, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]conversation.Conversation, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]conversation.Message, error)
}

// DealService is the slice of deal.Service the handler needs.
type DealService interface {
	RecordPayment(ctx context.Context, conversationID, payerID string) (deal.Summary, error)
	SignAgreement(ctx context.Context, conversationID, actorID string) (deal.Summary, error)
}

// ConversationHandler serves threads, messages, and the deal flow anchored to
// a conversation.
type ConversationHandler struct {
	Conversations ConversationService
	Deals         DealService
}

func (h *ConversationHandler) FindOrCreate(c *gin.Context) {
	var req struct {
		PropertyID string                `json:"property_id"`
		OtherID    string                `json:"other_id"`
		Seed       *conversation.Content `json:"seed,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "Malformed conversation payload."})
		return
	}

	callerID := CallerID(c)
	var seed *conversation.SeedMessage
	if req.Seed != nil {
		seed = &conversation.SeedMessage{SenderID: callerID, Content: *req.Seed}
	}

	conv, created, err := h.Conversations.FindOrCreate(c.Request.Context(), req.PropertyID, callerID, req.OtherID, seed)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, conversationJSON(conv))
}

func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.Conversations.ListForUser(c.Request.Context(), CallerID(c), 50)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(convs))
	for _, conv := range convs {
		out = append(out, conversationJSON(conv))
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

func (h *ConversationHandler) ListMessages(c *gin.Context) {
	msgs, err := h.Conversations.ListMessages(c.Request.Context(), c.Param("id"), 100)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageJSON(m))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (h *ConversationHandler) SendMessage(c *gin.Context) {
	var content conversation.Content
	if err := c.ShouldBindJSON(&content); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "Malformed message payload."})
		return
	}
	msg, err := h.Conversations.AppendMessage(c.Request.Context(), c.Param("id"), CallerID(c), content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageJSON(msg))
}

func (h *ConversationHandler) RecordPayment(c *gin.Context) {
	summary, err := h.Deals.RecordPayment(c.Request.Context(), c.Param("id"), CallerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dealJSON(summary))
}

func (h *ConversationHandler) SignAgreement(c *gin.Context) {
	summary, err := h.Deals.SignAgreement(c.Request.Context(), c.Param("id"), CallerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dealJSON(summary))
}

func conversationJSON(conv conversation.Conversation) gin.H {
	participants := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		participants = append(participants, p.UserID)
	}
	return gin.H{
		"id":           conv.ID,
		"property_id":  conv.PropertyID,
		"team_id":      conv.TeamID,
		"deal_status":  conv.DealStatus,
		"participants": participants,
		"created_at":   conv.CreatedAt,
		"updated_at":   conv.UpdatedAt,
	}
}

func messageJSON(m conversation.Message) gin.H {
	return gin.H{
		"id":              m.ID,
		"conversation_id": m.ConversationID,
		"sender_id":       m.SenderID,
		"kind":            m.Kind,
		"text":            m.Text,
		"audio":           m.Audio,
		"read":            m.Read,
		"created_at":      m.CreatedAt,
	}
}

func dealJSON(s deal.Summary) gin.H {
	return gin.H{
		"conversation_id": s.ConversationID,
		"property_id":     s.PropertyID,
		"deal_status":     s.Status,
	}
}
