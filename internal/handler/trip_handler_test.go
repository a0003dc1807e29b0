package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"freightops/internal/apperr"
	"freightops/internal/authz"
	"freightops/internal/model"
	"freightops/internal/service"
	"freightops/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockTripService is a mock implementation of service.TripService
type MockTripService struct {
	mock.Mock
}

func (m *MockTripService) CreateTrip(ctx context.Context, actor model.Actor, req service.CreateTripRequest) (*service.TripResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TripResponse), args.Error(1)
}

func (m *MockTripService) EditTrip(ctx context.Context, actor model.Actor, id string, req service.EditTripRequest) (*service.TripResponse, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TripResponse), args.Error(1)
}

func (m *MockTripService) QuoteTrip(ctx context.Context, actor model.Actor, id string, req service.QuoteTripRequest) (*service.TripResponse, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TripResponse), args.Error(1)
}

func (m *MockTripService) AssignVehicle(ctx context.Context, actor model.Actor, id string, req service.AssignVehicleRequest) (*service.TripResponse, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TripResponse), args.Error(1)
}

// stage takes the mocked method name explicitly: testify's Called derives
// the expectation name from its immediate caller, which here would always
// be "stage" rather than the wrapper method the test registered.
func (m *MockTripService) stage(method string, ctx context.Context, actor model.Actor, id string) (*service.TripResponse, error) {
	args := m.MethodCalled(method, ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TripResponse), args.Error(1)
}

func (m *MockTripService) ConfirmTrip(ctx context.Context, actor model.Actor, id string) (*service.TripResponse, error) {
	return m.stage("ConfirmTrip", ctx, actor, id)
}

func (m *MockTripService) MarkAtLoading(ctx context.Context, actor model.Actor, id string) (*service.TripResponse, error) {
	return m.stage("MarkAtLoading", ctx, actor, id)
}

func (m *MockTripService) MarkLoadingDocsOK(ctx context.Context, actor model.Actor, id string) (*service.TripResponse, error) {
	return m.stage("MarkLoadingDocsOK", ctx, actor, id)
}

func (m *MockTripService) MarkAdvancePaid(ctx context.Context, actor model.Actor, id string) (*service.TripResponse, error) {
	return m.stage("MarkAdvancePaid", ctx, actor, id)
}

func (m *MockTripService) StartTransit(ctx context.Context, actor model.Actor, id string) (*service.TripResponse, error) {
	return m.stage("StartTransit", ctx, actor, id)
}

func (m *MockTripService) MarkDelivered(ctx context.Context, actor model.Actor, id string) (*service.TripResponse, error) {
	return m.stage("MarkDelivered", ctx, actor, id)
}

func (m *MockTripService) MarkPODReceived(ctx context.Context, actor model.Actor, id string) (*service.TripResponse, error) {
	return m.stage("MarkPODReceived", ctx, actor, id)
}

func (m *MockTripService) MarkVendorSettled(ctx context.Context, actor model.Actor, id string) (*service.TripResponse, error) {
	return m.stage("MarkVendorSettled", ctx, actor, id)
}

func (m *MockTripService) MarkCustomerCollected(ctx context.Context, actor model.Actor, id string) (*service.TripResponse, error) {
	return m.stage("MarkCustomerCollected", ctx, actor, id)
}

func (m *MockTripService) CloseTrip(ctx context.Context, actor model.Actor, id string) (*service.TripResponse, error) {
	return m.stage("CloseTrip", ctx, actor, id)
}

func (m *MockTripService) GetTrip(ctx context.Context, actor model.Actor, id string) (*service.TripResponse, error) {
	return m.stage("GetTrip", ctx, actor, id)
}

func (m *MockTripService) ListTrips(ctx context.Context, actor model.Actor, filter service.TripFilter) ([]service.TripResponse, int64, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]service.TripResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockTripService) TripHistory(ctx context.Context, actor model.Actor, filter service.TripFilter) ([]service.TripResponse, int64, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]service.TripResponse), args.Get(1).(int64), args.Error(2)
}

// MockStorageService is a mock implementation of service.StorageService
type MockStorageService struct {
	mock.Mock
}

func (m *MockStorageService) PrepareLoadingProof(ctx context.Context, actor model.Actor, tripID string, req service.PrepareUploadRequest) (*service.PrepareUploadResponse, error) {
	args := m.Called(ctx, actor, tripID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PrepareUploadResponse), args.Error(1)
}

func (m *MockStorageService) ConfirmLoadingProof(ctx context.Context, actor model.Actor, tripID string, req service.ConfirmUploadRequest) (*service.TripDocumentResponse, error) {
	args := m.Called(ctx, actor, tripID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TripDocumentResponse), args.Error(1)
}

func testActor(role string) model.Actor {
	return model.Actor{ID: uuid.New(), Role: role}
}

// tripRouter wires the handler under an actor-injecting stub so authz
// middleware is exercised separately.
func tripRouter(h *TripHandler, actor model.Actor) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("actor", actor) })
	router.POST("/api/trips", h.CreateTrip)
	router.GET("/api/trips", h.ListTrips)
	router.GET("/api/trips/:id", h.GetTrip)
	router.PUT("/api/trips/:id/confirm", h.ConfirmTrip)
	router.PUT("/api/trips/:id/assign-vehicle", h.AssignVehicle)
	return router
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestCreateTrip(t *testing.T) {
	actor := testActor(authz.RoleSales)

	t.Run("created", func(t *testing.T) {
		mockTrips := new(MockTripService)
		h := NewTripHandler(mockTrips, new(MockStorageService))

		resp := &service.TripResponse{ID: uuid.NewString(), Code: "TRP-20260831-00001", Stage: "request_received"}
		mockTrips.On("CreateTrip", mock.Anything, actor, mock.AnythingOfType("service.CreateTripRequest")).Return(resp, nil)

		body, _ := json.Marshal(map[string]interface{}{
			"customer_id":     uuid.NewString(),
			"customer_name":   "Acme Mills",
			"pickup_location": "Nagpur",
			"drop_location":   "Pune",
			"vehicle_type":    "32ft MXL",
			"weight_tonnes":   "12.5",
			"schedule_date":   "2026-09-05",
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/trips", bytes.NewBuffer(body))
		tripRouter(h, actor).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.OK)
		mockTrips.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		h := NewTripHandler(new(MockTripService), new(MockStorageService))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/trips", bytes.NewBufferString("{not json"))
		tripRouter(h, actor).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		assert.False(t, env.OK)
		assert.Equal(t, "bad_request", env.Code)
	})
}

func TestConfirmTripErrors(t *testing.T) {
	actor := testActor(authz.RoleConsignerOps)
	tripID := uuid.NewString()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"already in stage", apperr.Precondition("already_in_stage", "trip is already confirmed"), http.StatusConflict, "already_in_stage"},
		{"wrong stage", apperr.Precondition("trip_not_quoted", "trip has not been quoted"), http.StatusConflict, "trip_not_quoted"},
		{"not found", apperr.NotFound("trip_not_found", "no such trip"), http.StatusNotFound, "trip_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockTrips := new(MockTripService)
			h := NewTripHandler(mockTrips, new(MockStorageService))
			mockTrips.On("ConfirmTrip", mock.Anything, actor, tripID).Return(nil, tc.err)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("PUT", "/api/trips/"+tripID+"/confirm", nil)
			tripRouter(h, actor).ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			env := decodeEnvelope(t, w)
			assert.False(t, env.OK)
			assert.Equal(t, tc.wantCode, env.Code)
		})
	}
}

func TestAssignVehicle(t *testing.T) {
	actor := testActor(authz.RoleVehicleOps)
	tripID := uuid.NewString()
	vehicleID := uuid.NewString()

	t.Run("assigned", func(t *testing.T) {
		mockTrips := new(MockTripService)
		h := NewTripHandler(mockTrips, new(MockStorageService))

		resp := &service.TripResponse{ID: tripID, Stage: "vehicle_assigned"}
		mockTrips.On("AssignVehicle", mock.Anything, actor, tripID, mock.AnythingOfType("service.AssignVehicleRequest")).Return(resp, nil)

		body, _ := json.Marshal(map[string]string{"vehicle_id": vehicleID})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/api/trips/"+tripID+"/assign-vehicle", bytes.NewBuffer(body))
		tripRouter(h, actor).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockTrips.AssertExpectations(t)
	})

	t.Run("vehicle taken", func(t *testing.T) {
		mockTrips := new(MockTripService)
		h := NewTripHandler(mockTrips, new(MockStorageService))
		mockTrips.On("AssignVehicle", mock.Anything, actor, tripID, mock.Anything).
			Return(nil, apperr.Precondition("vehicle_not_available", "vehicle is not available"))

		body, _ := json.Marshal(map[string]string{"vehicle_id": vehicleID})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/api/trips/"+tripID+"/assign-vehicle", bytes.NewBuffer(body))
		tripRouter(h, actor).ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "vehicle_not_available", env.Code)
	})
}

func TestGetTripForbidden(t *testing.T) {
	actor := testActor(authz.RoleSales)
	tripID := uuid.NewString()

	mockTrips := new(MockTripService)
	h := NewTripHandler(mockTrips, new(MockStorageService))
	mockTrips.On("GetTrip", mock.Anything, actor, tripID).
		Return(nil, apperr.Forbidden("not_trip_owner", "trip belongs to another requester"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/trips/"+tripID, nil)
	tripRouter(h, actor).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListTrips(t *testing.T) {
	actor := testActor(authz.RoleAccounts)

	mockTrips := new(MockTripService)
	h := NewTripHandler(mockTrips, new(MockStorageService))

	trips := []service.TripResponse{{ID: uuid.NewString(), Stage: "in_transit"}}
	mockTrips.On("ListTrips", mock.Anything, actor, service.TripFilter{Stage: "in_transit", Page: 2, Limit: 10}).
		Return(trips, int64(11), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/trips?stage=in_transit&page=2&limit=10", nil)
	tripRouter(h, actor).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.True(t, env.OK)

	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 11, data["total"])
	assert.EqualValues(t, 2, data["page"])
	mockTrips.AssertExpectations(t)
}
