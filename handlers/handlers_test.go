package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentathing/models"
	"rentathing/services/availability"
	"rentathing/services/negotiation"
	"rentathing/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var caller = models.Session{UserID: "u-rentee", Email: "rentee@example.com", Token: "t"}

// stubService answers with canned values; unset hooks fail the call.
type stubService struct {
	view      models.NegotiationView
	viewErr   error
	offerRes  *negotiation.Result
	offerErr  error
	gotOffer  negotiation.OfferInput
	gotLimit  int64
	convErr   error
	trackErr  error
	messages  []models.Message
	cancelRes *negotiation.Result
	cancelErr error
}

var errUnset = errors.New("not stubbed")

func (s *stubService) Conversations(context.Context, models.Session) ([]models.Conversation, error) {
	return []models.Conversation{{ID: "c-1", ListingTitle: "Kayak"}}, nil
}
func (s *stubService) Conversation(context.Context, models.Session, string) (*models.Conversation, error) {
	if s.convErr != nil {
		return nil, s.convErr
	}
	return &models.Conversation{ID: "c-1"}, nil
}
func (s *stubService) StartConversation(_ context.Context, _ models.Session, in negotiation.StartInput) (*models.Conversation, error) {
	return &models.Conversation{ID: "c-1", ListingID: in.ListingID}, nil
}
func (s *stubService) Messages(context.Context, models.Session, string) ([]models.Message, error) {
	if s.convErr != nil {
		return nil, s.convErr
	}
	return s.messages, nil
}
func (s *stubService) SendMessage(_ context.Context, _ models.Session, _ string, in negotiation.MessageInput) (*models.Message, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	return &models.Message{ID: "m-1", Text: in.Text, Kind: models.KindPlain}, nil
}
func (s *stubService) View(context.Context, models.Session, string) (models.NegotiationView, error) {
	return s.view, s.viewErr
}
func (s *stubService) Track(context.Context, models.Session, string, func(models.NegotiationView)) (*negotiation.Tracker, error) {
	if s.trackErr != nil {
		return nil, s.trackErr
	}
	return nil, errUnset
}
func (s *stubService) Activity(_ context.Context, _ models.Session, _ string, limit int64) ([]models.NegotiationRecord, error) {
	s.gotLimit = limit
	return []models.NegotiationRecord{{Action: models.ActionOffer, Outcome: models.OutcomeOK}}, nil
}
func (s *stubService) Booking(_ context.Context, _ models.Session, _, bookingID string) (*models.Booking, error) {
	if bookingID != "b-1" {
		return nil, models.ErrNotFound
	}
	return &models.Booking{ID: "b-1", Status: models.StatusPending}, nil
}
func (s *stubService) MakeOffer(_ context.Context, _ models.Session, _ string, in negotiation.OfferInput) (*negotiation.Result, error) {
	s.gotOffer = in
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	return s.offerRes, s.offerErr
}
func (s *stubService) EditOffer(context.Context, models.Session, string, string, negotiation.OfferInput) (*negotiation.Result, error) {
	return nil, &models.StateConflictError{Action: "edit", Status: models.StatusAccepted, Reason: "offer already accepted"}
}
func (s *stubService) CancelOffer(context.Context, models.Session, string, string) (*negotiation.Result, error) {
	return s.cancelRes, s.cancelErr
}
func (s *stubService) AcceptOffer(context.Context, models.Session, string, string) (*negotiation.Result, error) {
	return nil, errUnset
}
func (s *stubService) Pay(context.Context, models.Session, string, string, negotiation.PayInput) (*negotiation.Result, error) {
	return nil, &models.RequestError{Op: "create payment", StatusCode: 402, Message: "card declined"}
}
func (s *stubService) CompleteBooking(context.Context, models.Session, string, string) (*negotiation.Result, error) {
	return nil, &models.NetworkError{Op: "update booking", Err: errors.New("connection refused")}
}
func (s *stubService) Review(context.Context, models.Session, string, string, negotiation.ReviewInput) (*negotiation.Result, error) {
	return &negotiation.Result{Review: &models.Review{ReviewID: "r-1"}}, nil
}

type stubDevices struct{ tokens []string }

func (d *stubDevices) SubscribeDevice(_ context.Context, _ string, token string) error {
	d.tokens = append(d.tokens, token)
	return nil
}

func withSession(sess *models.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess != nil {
			c.Set(utils.SessionKey, *sess)
		}
		c.Next()
	}
}

func newRouter(svc *stubService, devices DeviceSubscriber, sess *models.Session) *gin.Engine {
	chat := NewChatHandler(svc, devices)
	neg := NewNegotiationHandler(svc)
	r := gin.New()
	api := r.Group("/api/chats", withSession(sess))
	api.GET("", chat.ListConversationsHandler)
	api.POST("", chat.StartConversationHandler)
	api.GET("/:chatId/messages", chat.GetMessagesHandler)
	api.POST("/:chatId/messages", chat.SendMessageHandler)
	api.POST("/:chatId/devices", chat.SubscribeDeviceHandler)
	api.GET("/:chatId/negotiation", neg.GetNegotiationHandler)
	api.GET("/:chatId/negotiation/stream", neg.StreamNegotiationHandler)
	api.GET("/:chatId/activity", neg.GetActivityHandler)
	api.POST("/:chatId/offers", neg.MakeOfferHandler)
	api.GET("/:chatId/offers/:bookingId", neg.GetOfferHandler)
	api.PUT("/:chatId/offers/:bookingId", neg.EditOfferHandler)
	api.POST("/:chatId/offers/:bookingId/cancel", neg.CancelOfferHandler)
	api.POST("/:chatId/offers/:bookingId/pay", neg.PayHandler)
	api.POST("/:chatId/offers/:bookingId/complete", neg.CompleteHandler)
	api.POST("/:chatId/offers/:bookingId/review", neg.ReviewHandler)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	r := newRouter(&stubService{}, nil, nil)
	w := do(r, http.MethodGet, "/api/chats", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "User not authenticated", decode(t, w)["message"])
}

func TestNegotiationView(t *testing.T) {
	svc := &stubService{view: models.NegotiationView{Role: models.RoleRentee, CanMakeOffer: true}}
	r := newRouter(svc, nil, &caller)

	w := do(r, http.MethodGet, "/api/chats/c-1/negotiation", "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)["negotiation"].(map[string]interface{})
	assert.Equal(t, "rentee", view["role"])
	assert.Equal(t, true, view["canMakeOffer"])

	svc.viewErr = models.ErrNotParticipant
	w = do(r, http.MethodGet, "/api/chats/c-1/negotiation", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMakeOffer(t *testing.T) {
	svc := &stubService{offerRes: &negotiation.Result{Booking: &models.Booking{ID: "b-1", Status: models.StatusPending}}}
	r := newRouter(svc, nil, &caller)

	w := do(r, http.MethodPost, "/api/chats/c-1/offers", `{"startDate":"2024-07-01","endDate":"2024-07-03","pricePerDay":20}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 20.0, svc.gotOffer.PricePerDay)
	res := decode(t, w)["result"].(map[string]interface{})
	assert.Equal(t, "b-1", res["booking"].(map[string]interface{})["bookingId"])

	w = do(r, http.MethodPost, "/api/chats/c-1/offers", `{"startDate":"2024-07-01","endDate":"2024-07-03","pricePerDay":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["details"], "pricePerDay")

	w = do(r, http.MethodPost, "/api/chats/c-1/offers", `{"startDate":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPartialFailureIsAccepted(t *testing.T) {
	svc := &stubService{
		cancelRes: &negotiation.Result{Booking: &models.Booking{ID: "b-1", Status: models.StatusCancelled}},
		cancelErr: &models.PartialFailureError{Action: "cancel", BookingID: "b-1", Err: errors.New("feed down")},
	}
	r := newRouter(svc, nil, &caller)

	w := do(r, http.MethodPost, "/api/chats/c-1/offers/b-1/cancel", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Contains(t, body["warning"], "chat update failed")
	assert.NotNil(t, body["result"])
}

func TestErrorTaxonomyMapsToStatus(t *testing.T) {
	r := newRouter(&stubService{}, nil, &caller)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPut, "/api/chats/c-1/offers/b-1", `{"startDate":"2024-07-01","endDate":"2024-07-02","pricePerDay":5}`, http.StatusConflict},
		{http.MethodPost, "/api/chats/c-1/offers/b-1/pay", `{"paymentMethod":"Credit Card"}`, http.StatusBadGateway},
		{http.MethodPost, "/api/chats/c-1/offers/b-1/complete", "", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/chats/c-1/offers/missing", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		w := do(r, tc.method, tc.path, tc.body)
		assert.Equal(t, tc.want, w.Code, tc.path)
		assert.NotEmpty(t, decode(t, w)["message"], tc.path)
	}

	w := do(r, http.MethodPost, "/api/chats/c-1/offers/b-1/review", `{"rating":5,"reviewText":"Great"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestActivityLimit(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc, nil, &caller)

	w := do(r, http.MethodGet, "/api/chats/c-1/activity", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(defaultActivityLimit), svc.gotLimit)

	w = do(r, http.MethodGet, "/api/chats/c-1/activity?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), svc.gotLimit)

	w = do(r, http.MethodGet, "/api/chats/c-1/activity?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatEndpoints(t *testing.T) {
	svc := &stubService{messages: []models.Message{{ID: "m-0", Text: "hello"}}}
	r := newRouter(svc, nil, &caller)

	w := do(r, http.MethodGet, "/api/chats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["conversations"], 1)

	w = do(r, http.MethodPost, "/api/chats", `{"listingId":"l-1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/chats/c-1/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["messages"], 1)

	w = do(r, http.MethodPost, "/api/chats/c-1/messages", `{"text":"is it free?"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/api/chats/c-1/messages", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.convErr = models.ErrNotParticipant
	w = do(r, http.MethodGet, "/api/chats/c-1/messages", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubscribeDevice(t *testing.T) {
	w := do(newRouter(&stubService{}, nil, &caller), http.MethodPost, "/api/chats/c-1/devices", `{"fcmToken":"tok"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	devices := &stubDevices{}
	svc := &stubService{}
	r := newRouter(svc, devices, &caller)
	w = do(r, http.MethodPost, "/api/chats/c-1/devices", `{"fcmToken":"tok"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"tok"}, devices.tokens)

	w = do(r, http.MethodPost, "/api/chats/c-1/devices", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.convErr = models.ErrNotParticipant
	w = do(r, http.MethodPost, "/api/chats/c-1/devices", `{"fcmToken":"other"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, []string{"tok"}, devices.tokens)
}

func TestStreamRejectsStrangers(t *testing.T) {
	r := newRouter(&stubService{trackErr: models.ErrNotParticipant}, nil, &caller)
	w := do(r, http.MethodGet, "/api/chats/c-1/negotiation/stream", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

type stubListings struct{ listing *models.Listing }

func (s stubListings) Get(_ context.Context, _ models.Session, id string) (*models.Listing, error) {
	if s.listing.ID != id {
		return nil, models.ErrNotFound
	}
	return s.listing, nil
}

type stubCalendars struct{ bookings []models.Booking }

func (s stubCalendars) Load(_ context.Context, _ models.Session, l *models.Listing) *availability.Calendar {
	return availability.NewCalendar(availability.WindowOf(l), s.bookings)
}

func TestAvailability(t *testing.T) {
	listing := &models.Listing{
		ID:             "l-1",
		AvailableFrom:  time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC).Unix(),
		AvailableUntil: time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC).Unix(),
	}
	h := NewAvailabilityHandler(stubListings{listing: listing}, stubCalendars{bookings: []models.Booking{{
		ID: "b-1", StartDate: models.MustParseDate("2024-07-10"), EndDate: models.MustParseDate("2024-07-11"), Status: models.StatusAccepted,
	}}})
	r := gin.New()
	r.GET("/api/listings/:listingId/availability", withSession(&caller), h.GetAvailabilityHandler)

	w := do(r, http.MethodGet, "/api/listings/l-1/availability", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []interface{}{"2024-07-10", "2024-07-11"}, body["blockedDates"])
	assert.Nil(t, body["valid"])

	w = do(r, http.MethodGet, "/api/listings/l-1/availability?start=2024-07-09&end=2024-07-10", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["valid"])
	assert.Contains(t, body["reason"], "overlaps")

	w = do(r, http.MethodGet, "/api/listings/l-1/availability?start=2024-07-12&end=2024-07-12", "")
	assert.Equal(t, true, decode(t, w)["valid"])

	w = do(r, http.MethodGet, "/api/listings/l-1/availability?start=2024-07-12", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/listings/nope/availability", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/health", HealthHandler)
	w := do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, []interface{}{"ok", "degraded"}, decode(t, w)["status"])
}
