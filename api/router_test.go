package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"homeflow/api"
	"homeflow/auth"
	"homeflow/conversation"
	"homeflow/deal"
	"homeflow/notification"
	"homeflow/property"
	"homeflow/tour"
	"homeflow/verification"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return api.NewRouter(api.Services{
		Verifier:      fakeVerifier{},
		Auth:          fakeAuth{},
		Properties:    fakeProperties{},
		Conversations: fakeConversations{},
		Deals:         fakeDeals{},
		Tours:         fakeTours{},
		Verification:  fakeVerification{},
		Social:        fakeSocial{},
		Notifications: fakeNotifications{},
	})
}

func do(t *testing.T, r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRoutesAreOpen(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodPost, "/auth/register", "", `{"email":"ada@example.com","password":"s3cretpass","full_name":"Ada","role":"renter"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "ada@example.com")

	w = do(t, r, http.MethodPost, "/auth/login", "", `{"email":"ada@example.com","password":"s3cretpass"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "token")
}

func TestBearerTokenRequired(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodGet, "/conversations", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/conversations", "bad-token", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/conversations", "good-token", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestFindOrCreateStatusReflectsCreation(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodPost, "/conversations/find-or-create", "good-token", `{"property_id":"prop-new","other_id":"lister-1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPost, "/conversations/find-or-create", "good-token", `{"property_id":"prop-existing","other_id":"lister-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestErrorMapping(t *testing.T) {
	r := newTestRouter()

	// Missing conversation → 404.
	w := do(t, r, http.MethodPost, "/conversations/missing/payment", "good-token", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "not_found")

	// Deal already in progress → 409.
	w = do(t, r, http.MethodPost, "/conversations/conv-busy/payment", "good-token", "")
	require.Equal(t, http.StatusConflict, w.Code)

	// Off-site verification → 422.
	w = do(t, r, http.MethodPost, "/properties/prop-far/verification", "good-token", `{"photo_urls":["p.jpg"],"latitude":1,"longitude":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Malformed JSON → 400.
	w = do(t, r, http.MethodPost, "/tours", "good-token", `{`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTourRoutes(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodPost, "/tours", "good-token", `{"property_id":"prop-1","proposed_times":["2030-01-02T10:00:00Z"]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPost, "/tours/tour-1/confirm", "good-token", `{"confirmed_time":"2030-01-02T10:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "confirmed")

	w = do(t, r, http.MethodPost, "/tours/tour-done/confirm", "good-token", `{"confirmed_time":"2030-01-02T10:00:00Z"}`)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestPropertyRoutes(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodPost, "/properties", "good-token", `{"title":"Stress Flat","address":"4 Bourdillon Rd","latitude":6.5244,"longitude":3.3792}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodGet, "/properties/prop-1", "good-token", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/properties/prop-missing", "good-token", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationRoutes(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodGet, "/notifications", "good-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "unread_count")

	w = do(t, r, http.MethodPost, "/notifications/n-1/read", "good-token", "")
	require.Equal(t, http.StatusNoContent, w.Code)
}

// --- fakes ---

type fakeVerifier struct{}

func (fakeVerifier) VerifyToken(token string) (string, auth.Role, error) {
	if token != "good-token" {
		return "", "", auth.ErrInvalidCredentials
	}
	return "renter-1", auth.RoleRenter, nil
}

type fakeAuth struct{}

func (fakeAuth) Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error) {
	return &auth.User{ID: "u-1", Email: req.Email, FullName: req.FullName, Role: req.Role}, nil
}

func (fakeAuth) Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error) {
	return auth.LoginResult{Token: "tok", User: auth.User{ID: "u-1", Email: req.Email}}, nil
}

type fakeConversations struct{}

func (fakeConversations) FindOrCreate(ctx context.Context, propertyID, userA, userB string, seed *conversation.SeedMessage) (conversation.Conversation, bool, error) {
	created := propertyID == "prop-new"
	return conversation.Conversation{ID: "conv-1", PropertyID: &propertyID}, created, nil
}

func (fakeConversations) AppendMessage(ctx context.Context, conversationID, senderID string, content conversation.Content) (conversation.Message, error) {
	if conversationID == "missing" {
		return conversation.Message{}, conversation.ErrNotFound
	}
	return conversation.Message{ID: "m-1", ConversationID: conversationID, SenderID: senderID}, nil
}

func (fakeConversations) ListForUser(ctx context.Context, userID string, limit int) ([]conversation.Conversation, error) {
	return nil, nil
}

func (fakeConversations) ListMessages(ctx context.Context, conversationID string, limit int) ([]conversation.Message, error) {
	return nil, nil
}

type fakeDeals struct{}

func (fakeDeals) RecordPayment(ctx context.Context, conversationID, payerID string) (deal.Summary, error) {
	switch conversationID {
	case "missing":
		return deal.Summary{}, deal.ErrNotFound
	case "conv-busy":
		return deal.Summary{}, deal.ErrInvalidState
	}
	status := conversation.DealAgreementPending
	return deal.Summary{ConversationID: conversationID, Status: &status}, nil
}

func (fakeDeals) SignAgreement(ctx context.Context, conversationID, actorID string) (deal.Summary, error) {
	status := conversation.DealComplete
	return deal.Summary{ConversationID: conversationID, Status: &status}, nil
}

type fakeTours struct{}

func (fakeTours) Request(ctx context.Context, params tour.RequestParams) (tour.Tour, error) {
	return tour.Tour{ID: "tour-1", PropertyID: params.PropertyID, RenterID: params.RenterID, Status: tour.StatusPending}, nil
}

func (fakeTours) Book(ctx context.Context, params tour.BookParams) (tour.Tour, error) {
	return tour.Tour{ID: "tour-2", PropertyID: params.PropertyID, Status: tour.StatusPending}, nil
}

func (fakeTours) Confirm(ctx context.Context, tourID string, confirmedTime time.Time) (tour.Tour, error) {
	if tourID == "tour-done" {
		return tour.Tour{}, tour.ErrInvalidState
	}
	return tour.Tour{ID: tourID, Status: tour.StatusConfirmed, ConfirmedTime: &confirmedTime}, nil
}

func (fakeTours) Cancel(ctx context.Context, tourID, actorID string) (tour.Tour, error) {
	return tour.Tour{ID: tourID, Status: tour.StatusCancelled}, nil
}

func (fakeTours) Complete(ctx context.Context, tourID string) (tour.Tour, error) {
	return tour.Tour{ID: tourID, Status: tour.StatusCompleted}, nil
}

type fakeProperties struct{}

func (fakeProperties) Create(ctx context.Context, params property.CreateParams) (property.Property, error) {
	return property.Property{ID: "prop-1", ListerID: params.ListerID, Title: params.Title, Address: params.Address}, nil
}

func (fakeProperties) GetByID(ctx context.Context, id string) (property.Property, error) {
	if id == "prop-missing" {
		return property.Property{}, property.ErrNotFound
	}
	return property.Property{ID: id, Title: "Stress Flat"}, nil
}

func (fakeProperties) ListByLister(ctx context.Context, listerID string, limit int) ([]property.Property, error) {
	return nil, nil
}

func (fakeProperties) IncrementViews(ctx context.Context, id string) error { return nil }

type fakeVerification struct{}

func (fakeVerification) Submit(ctx context.Context, propertyID, verifierID string, sub verification.Submission) (verification.Evidence, error) {
	if propertyID == "prop-far" {
		return verification.Evidence{}, verification.ErrOutOfRange
	}
	return verification.Evidence{ID: "ev-1", PropertyID: propertyID, VerifierID: verifierID}, nil
}

func (fakeVerification) Finalize(ctx context.Context, propertyID string) error {
	return nil
}

type fakeSocial struct{}

func (fakeSocial) Follow(ctx context.Context, followerID, followeeID string) error   { return nil }
func (fakeSocial) Unfollow(ctx context.Context, followerID, followeeID string) error { return nil }
func (fakeSocial) Like(ctx context.Context, userID, propertyID string) error         { return nil }
func (fakeSocial) Unlike(ctx context.Context, userID, propertyID string) error       { return nil }

type fakeNotifications struct{}

func (fakeNotifications) MarkRead(ctx context.Context, id string) error { return nil }

func (fakeNotifications) ListForUser(ctx context.Context, userID string, limit int) ([]notification.Notification, error) {
	return []notification.Notification{{ID: "n-1", RecipientID: userID, Type: notification.TypeTour}}, nil
}

func (fakeNotifications) UnreadCount(ctx context.Context, userID string) (int, error) {
	return 1, nil
}
