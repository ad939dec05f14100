package http_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	http_adapter "fulfillment/internal/adapters/in/http"
	"fulfillment/internal/core/domain/model/kernel"

	"github.com/labstack/echo/v4"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockServer struct{ mock.Mock }

func (m *MockServer) CreateDeliveryRequest(ctx echo.Context) error {
	return m.Called().Error(0)
}

func (m *MockServer) GetDeliveryRequest(ctx echo.Context, requestID openapi_types.UUID) error {
	return m.Called(requestID).Error(0)
}

func (m *MockServer) CancelDeliveryRequest(ctx echo.Context, requestID openapi_types.UUID) error {
	return m.Called(requestID).Error(0)
}

func (m *MockServer) StartTrip(ctx echo.Context, tripID openapi_types.UUID) error {
	return m.Called(tripID).Error(0)
}

func (m *MockServer) CompleteTrip(ctx echo.Context, tripID openapi_types.UUID) error {
	return m.Called(tripID).Error(0)
}

func (m *MockServer) ArriveDestination(ctx echo.Context, tripID, destinationID openapi_types.UUID) error {
	return m.Called(tripID, destinationID).Error(0)
}

func (m *MockServer) CompleteDestination(ctx echo.Context, tripID, destinationID openapi_types.UUID) error {
	return m.Called(tripID, destinationID).Error(0)
}

func (m *MockServer) FailDestination(ctx echo.Context, tripID, destinationID openapi_types.UUID) error {
	return m.Called(tripID, destinationID).Error(0)
}

func (m *MockServer) ConfigureTenant(ctx echo.Context, tenantID openapi_types.UUID) error {
	return m.Called(tenantID).Error(0)
}

func (m *MockServer) AssignTrip(ctx echo.Context, requestID openapi_types.UUID) error {
	return m.Called(requestID).Error(0)
}

func (m *MockServer) CancelTrip(ctx echo.Context, tripID openapi_types.UUID) error {
	return m.Called(tripID).Error(0)
}

func (m *MockServer) ListCallbacks(ctx echo.Context, params http_adapter.ListCallbacksParams) error {
	return m.Called(params).Error(0)
}

func (m *MockServer) RequeueCallback(ctx echo.Context, callbackID openapi_types.UUID) error {
	return m.Called(callbackID).Error(0)
}

func (m *MockServer) SendDestinationCallback(ctx echo.Context, destinationID openapi_types.UUID) error {
	return m.Called(destinationID).Error(0)
}

const adminKey = "ops-key"

type harness struct {
	e        *echo.Echo
	server   *MockServer
	tokens   http_adapter.DriverTokens
	driverID kernel.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	doc, err := http_adapter.GetSwagger()
	require.NoError(t, err)
	validate, err := http_adapter.OpenAPIRequestValidator(doc)
	require.NoError(t, err)

	h := &harness{
		e:        echo.New(),
		server:   new(MockServer),
		tokens:   http_adapter.NewDriverTokens("driver-secret"),
		driverID: kernel.NewUUID(),
	}
	h.e.HTTPErrorHandler = http_adapter.NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	http_adapter.RegisterHandlers(h.e, h.server, http_adapter.Middlewares{
		Driver:   http_adapter.DriverAuth(h.tokens),
		Admin:    http_adapter.AdminAuth(adminKey),
		Validate: validate,
	})
	return h
}

func (h *harness) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func (h *harness) driver() map[string]string {
	return map[string]string{echo.HeaderAuthorization: "Bearer " + h.tokens.Issue(h.driverID)}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) http_adapter.Error {
	t.Helper()
	var body http_adapter.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRoutes_PathParameters(t *testing.T) {
	t.Run("bound to uuids", func(t *testing.T) {
		h := newHarness(t)
		tripID, destinationID := kernel.NewUUID(), kernel.NewUUID()
		h.server.On("ArriveDestination", tripID.Bytes(), destinationID.Bytes()).Return(nil).Once()

		rec := h.do(http.MethodPost,
			"/driver/trips/"+tripID.String()+"/destinations/"+destinationID.String()+"/arrive",
			`{"lat":31.95,"lng":35.91}`, h.driver())

		assert.Equal(t, http.StatusOK, rec.Code)
		h.server.AssertExpectations(t)
	})

	t.Run("malformed id", func(t *testing.T) {
		h := newHarness(t)

		rec := h.do(http.MethodPost, "/driver/trips/not-a-uuid/start", "", h.driver())

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "tripId")
		h.server.AssertNotCalled(t, "StartTrip", mock.Anything)
	})
}

func TestRoutes_Authentication(t *testing.T) {
	t.Run("driver token required before validation", func(t *testing.T) {
		h := newHarness(t)

		rec := h.do(http.MethodPost, "/driver/trips/"+kernel.NewUUID().String()+"/complete", `{}`, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, http.StatusUnauthorized, decodeError(t, rec).Code)
	})

	t.Run("forged driver token", func(t *testing.T) {
		h := newHarness(t)
		forged := http_adapter.NewDriverTokens("guess").Issue(h.driverID)

		rec := h.do(http.MethodPost, "/driver/trips/"+kernel.NewUUID().String()+"/start", "",
			map[string]string{echo.HeaderAuthorization: "Bearer " + forged})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("operator key", func(t *testing.T) {
		h := newHarness(t)
		h.server.On("CancelTrip", mock.Anything).Return(nil).Once()
		target := "/admin/trips/" + kernel.NewUUID().String() + "/cancel"

		assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, target, "", nil).Code)
		assert.Equal(t, http.StatusForbidden,
			h.do(http.MethodPost, target, "", map[string]string{http_adapter.HeaderAdminKey: "nope"}).Code)
		assert.Equal(t, http.StatusOK,
			h.do(http.MethodPost, target, "", map[string]string{http_adapter.HeaderAdminKey: adminKey}).Code)
		h.server.AssertExpectations(t)
	})
}

func TestRoutes_RequestValidation(t *testing.T) {
	tripID := kernel.NewUUID().String()
	stop := "/driver/trips/" + tripID + "/destinations/" + kernel.NewUUID().String()

	tests := []struct {
		name       string
		target     string
		body       string
		wantCode   int
		wantFields []string
	}{
		{
			name:       "total km is required",
			target:     "/driver/trips/" + tripID + "/complete",
			body:       `{"lat":31.9}`,
			wantCode:   http.StatusUnprocessableEntity,
			wantFields: []string{"total_km"},
		},
		{
			name:       "total km above range",
			target:     "/driver/trips/" + tripID + "/complete",
			body:       `{"total_km":1000.5}`,
			wantCode:   http.StatusUnprocessableEntity,
			wantFields: []string{"total_km"},
		},
		{
			name:       "unknown failure reason",
			target:     stop + "/fail",
			body:       `{"reason":"dog"}`,
			wantCode:   http.StatusUnprocessableEntity,
			wantFields: []string{"reason"},
		},
		{
			name:       "latitude out of range",
			target:     stop + "/arrive",
			body:       `{"lat":91,"lng":35.9}`,
			wantCode:   http.StatusUnprocessableEntity,
			wantFields: []string{"lat"},
		},
		{
			name:     "malformed json",
			target:   stop + "/complete",
			body:     `{"recipient_name":`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			rec := h.do(http.MethodPost, tt.target, tt.body, h.driver())

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			body := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantFields, body.Fields)
			assert.Empty(t, h.server.Calls)
		})
	}
}

func TestRoutes_AssignTrip(t *testing.T) {
	admin := map[string]string{http_adapter.HeaderAdminKey: adminKey}
	target := "/admin/delivery-requests/" + kernel.NewUUID().String() + "/assign"
	driverID := kernel.NewUUID().String()

	t.Run("driver and vehicle", func(t *testing.T) {
		h := newHarness(t)
		h.server.On("AssignTrip", mock.Anything).Return(nil).Once()

		rec := h.do(http.MethodPost, target, `{"driver_id":"`+driverID+`","vehicle_id":"VAN-7"}`, admin)

		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		h.server.AssertExpectations(t)
	})

	for name, body := range map[string]string{
		"vehicle missing": `{"driver_id":"` + driverID + `"}`,
		"vehicle empty":   `{"driver_id":"` + driverID + `","vehicle_id":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)

			rec := h.do(http.MethodPost, target, body, admin)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			assert.Equal(t, []string{"vehicle_id"}, decodeError(t, rec).Fields)
			assert.Empty(t, h.server.Calls)
		})
	}
}

func TestRoutes_ListCallbacksParams(t *testing.T) {
	t.Run("bound", func(t *testing.T) {
		h := newHarness(t)
		status, limit := "failed", 20
		h.server.On("ListCallbacks", http_adapter.ListCallbacksParams{Status: &status, Limit: &limit}).Return(nil).Once()

		rec := h.do(http.MethodGet, "/admin/callbacks?status=failed&limit=20", "",
			map[string]string{http_adapter.HeaderAdminKey: adminKey})

		assert.Equal(t, http.StatusOK, rec.Code)
		h.server.AssertExpectations(t)
	})

	t.Run("status outside the enum", func(t *testing.T) {
		h := newHarness(t)

		rec := h.do(http.MethodGet, "/admin/callbacks?status=lost", "",
			map[string]string{http_adapter.HeaderAdminKey: adminKey})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, []string{"status"}, decodeError(t, rec).Fields)
	})
}
