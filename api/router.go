package api

import (
	"github.com/gin-gonic/gin"
)

// Services bundles everything the router serves.
type Services struct {
	Verifier      TokenVerifier
	Auth          AuthService
	Properties    PropertyStore
	Conversations ConversationService
	Deals         DealService
	Tours         TourService
	Verification  VerificationService
	Social        SocialService
	Notifications NotificationService
}

// NewRouter wires all handlers onto a gin engine.
func NewRouter(s Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	authHandler := &AuthHandler{Auth: s.Auth}
	convHandler := &ConversationHandler{Conversations: s.Conversations, Deals: s.Deals}
	tourHandler := &TourHandler{Tours: s.Tours}
	propHandler := &PropertyHandler{Properties: s.Properties, Verification: s.Verification, Social: s.Social}
	notifHandler := &NotificationHandler{Notifications: s.Notifications}

	r.POST("/auth/register", authHandler.Register)
	r.POST("/auth/login", authHandler.Login)

	authed := r.Group("/", RequireAuth(s.Verifier))
	{
		authed.POST("/conversations/find-or-create", convHandler.FindOrCreate)
		authed.GET("/conversations", convHandler.List)
		authed.GET("/conversations/:id/messages", convHandler.ListMessages)
		authed.POST("/conversations/:id/messages", convHandler.SendMessage)
		authed.POST("/conversations/:id/payment", convHandler.RecordPayment)
		authed.POST("/conversations/:id/agreement", convHandler.SignAgreement)

		authed.POST("/tours", tourHandler.Request)
		authed.POST("/tours/book", tourHandler.Book)
		authed.POST("/tours/:id/confirm", tourHandler.Confirm)
		authed.POST("/tours/:id/cancel", tourHandler.Cancel)
		authed.POST("/tours/:id/complete", tourHandler.Complete)

		authed.POST("/properties", propHandler.Create)
		authed.GET("/properties", propHandler.ListMine)
		authed.GET("/properties/:id", propHandler.Get)
		authed.POST("/properties/:id/verification", propHandler.SubmitVerification)
		authed.POST("/properties/:id/verification/finalize", propHandler.FinalizeVerification)
		authed.POST("/properties/:id/like", propHandler.Like)
		authed.DELETE("/properties/:id/like", propHandler.Unlike)
		authed.POST("/users/:id/follow", propHandler.Follow)
		authed.DELETE("/users/:id/follow", propHandler.Unfollow)

		authed.GET("/notifications", notifHandler.List)
		authed.POST("/notifications/:id/read", notifHandler.MarkRead)
	}

	return r
}
