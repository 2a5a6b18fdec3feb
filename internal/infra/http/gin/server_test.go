package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lendit/internal/app/bootstrap"
	"lendit/internal/app/dto"
	"lendit/internal/clock"
	domainitems "lendit/internal/domain/items"
	"lendit/internal/domain/shared/money"
	"lendit/internal/infra/obs"
	"lendit/internal/infra/security"
	"lendit/internal/infra/storage/memory"
	"lendit/internal/infra/validation"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testServer struct {
	router   *gin.Engine
	verifier *security.TokenVerifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clk := clock.NewFixed(testNow)
	factory := memory.NewFactory()
	item, err := domainitems.NewItem(domainitems.CreateParams{
		ID:        "item-1",
		Owner:     "lender",
		Name:      "Camping tent",
		DailyRate: money.Must(1500, "USD"),
		Now:       testNow,
	})
	require.NoError(t, err)
	require.NoError(t, factory.ItemsRepo.Save(context.Background(), item))

	buses, err := bootstrap.Build(bootstrap.Deps{
		UoW:         factory,
		Outbox:      memory.NewOutbox(),
		Idempotency: memory.NewIdempotencyStore(clk),
		Validator:   validation.New(),
		Clock:       clk,
	})
	require.NoError(t, err)

	verifier := security.NewTokenVerifier("test-secret", "lendit")
	router := NewRouter(nil, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Booking:        BookingHandler{Commands: buses.Commands, Queries: buses.Queries},
		Availability:   AvailabilityHandler{Queries: buses.Queries, Clock: clk},
		Item:           ItemHandler{Commands: buses.Commands, Queries: buses.Queries},
		Me:             MeHandler{Queries: buses.Queries},
		AuthMiddleware: AuthMiddleware{Verifier: verifier}.Handle,
	})
	return &testServer{router: router, verifier: verifier}
}

func (s *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return s.doWithHeaders(t, method, path, user, body, nil)
}

func (s *testServer) doWithHeaders(t *testing.T, method, path, user string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if user != "" {
		token, err := s.verifier.Issue(user, "user", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func bookingBody(itemID, start, end string) map[string]string {
	return map[string]string{"item_id": itemID, "start_date": start, "end_date": end}
}

func decodeBooking(t *testing.T, rec *httptest.ResponseRecorder) dto.Booking {
	t.Helper()
	var b dto.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return b
}

func TestCreateBookingOverlapScenario(t *testing.T) {
	s := newTestServer(t)

	first := s.do(t, http.MethodPost, "/api/v1/bookings", "alice", bookingBody("item-1", "2026-03-10", "2026-03-12"))
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	created := decodeBooking(t, first)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, 2, created.Days)
	assert.Equal(t, int64(3000), created.TotalPrice.Amount)
	assert.Equal(t, "lender", created.LenderID)

	overlap := s.do(t, http.MethodPost, "/api/v1/bookings", "bob", bookingBody("item-1", "2026-03-11", "2026-03-13"))
	require.Equal(t, http.StatusConflict, overlap.Code, overlap.Body.String())
	var conflict struct {
		Code string   `json:"code"`
		IDs  []string `json:"conflicting_booking_ids"`
	}
	require.NoError(t, json.Unmarshal(overlap.Body.Bytes(), &conflict))
	assert.Equal(t, "booking_conflict", conflict.Code)
	assert.Equal(t, []string{created.ID}, conflict.IDs)

	turnover := s.do(t, http.MethodPost, "/api/v1/bookings", "bob", bookingBody("item-1", "2026-03-12", "2026-03-14"))
	assert.Equal(t, http.StatusCreated, turnover.Code, turnover.Body.String())
}

func TestCreateBookingIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	keyed := map[string]string{"Idempotency-Key": "req-7"}

	first := s.doWithHeaders(t, http.MethodPost, "/api/v1/bookings", "alice", bookingBody("item-1", "2026-03-10", "2026-03-12"), keyed)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	retry := s.doWithHeaders(t, http.MethodPost, "/api/v1/bookings", "alice", bookingBody("item-1", "2026-03-10", "2026-03-12"), keyed)
	require.Equal(t, http.StatusCreated, retry.Code, retry.Body.String())
	assert.Equal(t, decodeBooking(t, first).ID, decodeBooking(t, retry).ID)

	reused := s.doWithHeaders(t, http.MethodPost, "/api/v1/bookings", "alice", bookingBody("item-1", "2026-03-20", "2026-03-22"), keyed)
	assert.Equal(t, http.StatusUnprocessableEntity, reused.Code, reused.Body.String())
}

func TestCreateBookingErrors(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name   string
		user   string
		body   any
		status int
	}{
		{"anonymous", "", bookingBody("item-1", "2026-03-10", "2026-03-12"), http.StatusUnauthorized},
		{"missing item", "alice", bookingBody("nope", "2026-03-10", "2026-03-12"), http.StatusNotFound},
		{"empty range", "alice", bookingBody("item-1", "2026-03-12", "2026-03-12"), http.StatusBadRequest},
		{"inverted range", "alice", bookingBody("item-1", "2026-03-12", "2026-03-10"), http.StatusBadRequest},
		{"past range", "alice", bookingBody("item-1", "2026-02-10", "2026-02-12"), http.StatusBadRequest},
		{"malformed date", "alice", bookingBody("item-1", "03/10/2026", "2026-03-12"), http.StatusBadRequest},
		{"own item", "lender", bookingBody("item-1", "2026-03-10", "2026-03-12"), http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/bookings", tc.user, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/bookings", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateBookingStatus(t *testing.T) {
	s := newTestServer(t)
	created := decodeBooking(t, s.do(t, http.MethodPost, "/api/v1/bookings", "alice", bookingBody("item-1", "2026-03-10", "2026-03-12")))
	path := "/api/v1/bookings/" + created.ID

	rec := s.do(t, http.MethodPut, path, "mallory", map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, path, "alice", map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "borrower cannot approve")

	rec = s.do(t, http.MethodPut, path, "lender", map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decodeBooking(t, rec).Status)

	rec = s.do(t, http.MethodPut, path, "lender", map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPut, path, "lender", map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/bookings/missing", "lender", map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, path, "alice", map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decodeBooking(t, rec).Status)

	rebook := s.do(t, http.MethodPost, "/api/v1/bookings", "bob", bookingBody("item-1", "2026-03-10", "2026-03-12"))
	assert.Equal(t, http.StatusCreated, rebook.Code, "cancelled bookings do not block")
}

func TestGetBookingRequiresParty(t *testing.T) {
	s := newTestServer(t)
	created := decodeBooking(t, s.do(t, http.MethodPost, "/api/v1/bookings", "alice", bookingBody("item-1", "2026-03-10", "2026-03-12")))

	rec := s.do(t, http.MethodGet, "/api/v1/bookings/"+created.ID, "lender", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/bookings/"+created.ID, "mallory", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAvailabilityEndpoints(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/bookings", "alice", bookingBody("item-1", "2026-03-10", "2026-03-12")).Code)

	rec := s.do(t, http.MethodGet, "/api/v1/items/item-1/availability?month=3&year=2026", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cal dto.Calendar
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cal))
	require.Len(t, cal.Days, 31)
	assert.Equal(t, "2026-03-01", cal.Days[0].Date)
	assert.True(t, cal.Days[8].Available)
	assert.False(t, cal.Days[9].Available)
	assert.False(t, cal.Days[10].Available)
	assert.True(t, cal.Days[11].Available)

	rec = s.do(t, http.MethodGet, "/api/v1/items/item-1/availability?month=13&year=2026", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/items/item-1/availability/check?start=2026-03-11&end=2026-03-15", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var check dto.AvailabilityCheck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &check))
	assert.False(t, check.Available)
	assert.Len(t, check.ConflictingBookingIDs, 1)
	assert.Equal(t, 4, check.Days)
	assert.Equal(t, int64(6000), check.TotalPrice.Amount)
}

func TestItemLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/items", "carol", map[string]any{"name": "Drill", "daily_rate_cents": 700})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item dto.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, "carol", item.OwnerID)
	assert.Equal(t, "USD", item.DailyRate.Currency)

	rec = s.do(t, http.MethodPatch, "/api/v1/items/"+item.ID, "dave", map[string]any{"name": "Mine now"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/v1/items/"+item.ID, "carol", map[string]any{"daily_rate_cents": 900})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, int64(900), item.DailyRate.Amount)

	rec = s.do(t, http.MethodGet, "/api/v1/me/items", "carol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var owned dto.ItemCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &owned))
	assert.Len(t, owned.Items, 1)

	rec = s.do(t, http.MethodDelete, "/api/v1/items/"+item.ID, "carol", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/bookings", "alice", bookingBody(item.ID, "2026-03-10", "2026-03-12"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMeListings(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/bookings", "alice", bookingBody("item-1", "2026-03-10", "2026-03-12")).Code)

	rec := s.do(t, http.MethodGet, "/api/v1/me/bookings", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine dto.BookingCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	assert.Len(t, mine.Items, 1)

	rec = s.do(t, http.MethodGet, "/api/v1/me/lendings", "lender", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var lendings dto.BookingCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lendings))
	assert.Len(t, lendings.Items, 1)

	rec = s.do(t, http.MethodGet, "/api/v1/me/lendings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPhotoUploadWithoutStore(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/items/item-1/photos", "lender", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
