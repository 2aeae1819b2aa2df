package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopflow/fulfillment-service/internal/entities"
	"github.com/shopflow/fulfillment-service/internal/handler"
	"github.com/shopflow/fulfillment-service/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderService struct {
	create func(ctx context.Context, input service.CreateOrderInput) (entities.Order, error)
	get    func(ctx context.Context, orderID string) (entities.Order, error)
	delete func(ctx context.Context, orderID, userID string) error
}

func (f *fakeOrderService) CreateOrder(ctx context.Context, input service.CreateOrderInput) (entities.Order, error) {
	return f.create(ctx, input)
}

func (f *fakeOrderService) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	return f.get(ctx, orderID)
}

func (f *fakeOrderService) DeleteOrder(ctx context.Context, orderID, userID string) error {
	return f.delete(ctx, orderID, userID)
}

func newOrderRouter(svc *fakeOrderService) *chi.Mux {
	router := chi.NewRouter()
	handler.NewOrderHandler(testLogger(), svc).Init(router)
	return router
}

func validCreateBody() string {
	return `{
		"freight": 350,
		"freight_service_id": 2,
		"address": {"name": "Jo Silva", "zip": "01001-000", "street": "Rua A", "city": "Sao Paulo", "state": "SP"},
		"items": [{"variant_id": 1, "name": "shirt", "quantity": 2, "unit_price": 1500}]
	}`
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeOrderService{
			create: func(_ context.Context, input service.CreateOrderInput) (entities.Order, error) {
				assert.Equal(t, "user-1", input.UserID)
				assert.Equal(t, 350, input.Freight)
				assert.Equal(t, 2, input.FreightServiceID)
				require.Len(t, input.Items, 1)
				assert.Equal(t, int64(1), input.Items[0].VariantID)

				return entities.Order{
					ID:          "order-1",
					UserID:      input.UserID,
					ExternalRef: "ref-1",
					Status:      entities.OrderStatusPending,
					Total:       3350,
					Freight:     input.Freight,
					Address:     input.Address,
					Items:       input.Items,
					CreatedAt:   time.Now().UTC(),
				}, nil
			},
		}
		router := newOrderRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(validCreateBody()))
		req.Header.Set("X-User-ID", "user-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var res handler.Order
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
		assert.Equal(t, "order-1", res.ID)
		assert.Equal(t, "PENDING", res.Status)
		assert.Equal(t, 3350, res.Total)
	})

	t.Run("missing user header", func(t *testing.T) {
		router := newOrderRouter(&fakeOrderService{})

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(validCreateBody()))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		router := newOrderRouter(&fakeOrderService{})

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{broken`))
		req.Header.Set("X-User-ID", "user-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty items fail validation", func(t *testing.T) {
		router := newOrderRouter(&fakeOrderService{})

		body := `{
			"freight": 350,
			"freight_service_id": 2,
			"address": {"name": "Jo Silva", "zip": "01001-000", "street": "Rua A", "city": "Sao Paulo", "state": "SP"},
			"items": []
		}`
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
		req.Header.Set("X-User-ID", "user-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var res struct {
			Message string            `json:"message"`
			Fields  map[string]string `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
		assert.Contains(t, res.Fields, "Items")
	})

	t.Run("service failure", func(t *testing.T) {
		svc := &fakeOrderService{
			create: func(_ context.Context, _ service.CreateOrderInput) (entities.Order, error) {
				return entities.Order{}, errors.New("db down")
			},
		}
		router := newOrderRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(validCreateBody()))
		req.Header.Set("X-User-ID", "user-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestOrderHandler_GetOrderByID(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeOrderService{
			get: func(_ context.Context, orderID string) (entities.Order, error) {
				assert.Equal(t, "order-1", orderID)
				return entities.Order{
					ID:     "order-1",
					Status: entities.OrderStatusPaid,
					Shipment: entities.Shipment{
						Status:         entities.ShippingStatusPurchased,
						TrackingNumber: "TRK123",
					},
				}, nil
			},
		}
		router := newOrderRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/orders/order-1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var res handler.Order
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
		assert.Equal(t, "PAID", res.Status)
		assert.Equal(t, "PURCHASED", res.Shipping.Status)
		assert.Equal(t, "TRK123", res.Shipping.TrackingNumber)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &fakeOrderService{
			get: func(_ context.Context, _ string) (entities.Order, error) {
				return entities.Order{}, entities.ErrOrderNotFound
			},
		}
		router := newOrderRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/orders/missing", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("service failure", func(t *testing.T) {
		svc := &fakeOrderService{
			get: func(_ context.Context, _ string) (entities.Order, error) {
				return entities.Order{}, errors.New("db down")
			},
		}
		router := newOrderRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/orders/order-1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestOrderHandler_DeleteOrder(t *testing.T) {
	testCases := []struct {
		name     string
		svcErr   error
		wantCode int
	}{
		{name: "success", wantCode: http.StatusNoContent},
		{name: "not found", svcErr: entities.ErrOrderNotFound, wantCode: http.StatusNotFound},
		{name: "not allowed", svcErr: entities.ErrUnauthorized, wantCode: http.StatusForbidden},
		{name: "service failure", svcErr: errors.New("db down"), wantCode: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeOrderService{
				delete: func(_ context.Context, orderID, userID string) error {
					assert.Equal(t, "order-1", orderID)
					assert.Equal(t, "user-1", userID)
					return tc.svcErr
				},
			}
			router := newOrderRouter(svc)

			req := httptest.NewRequest(http.MethodDelete, "/orders/order-1", nil)
			req.Header.Set("X-User-ID", "user-1")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}

	t.Run("missing user header", func(t *testing.T) {
		router := newOrderRouter(&fakeOrderService{})

		req := httptest.NewRequest(http.MethodDelete, "/orders/order-1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
