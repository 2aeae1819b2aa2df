package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopflow/fulfillment-service/internal/entities"
	"github.com/shopflow/fulfillment-service/internal/service"
	"github.com/shopflow/fulfillment-service/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// userIDHeader carries the authenticated user id resolved by the upstream
// auth layer.
const userIDHeader = "X-User-ID"

type OrderService interface {
	CreateOrder(ctx context.Context, input service.CreateOrderInput) (entities.Order, error)
	GetOrderByID(ctx context.Context, orderID string) (entities.Order, error)
	DeleteOrder(ctx context.Context, orderID, userID string) error
}

type OrderHandler struct {
	logger   *slog.Logger
	validate *validator.Validate
	svc      OrderService
}

func NewOrderHandler(logger *slog.Logger, svc OrderService) *OrderHandler {
	return &OrderHandler{
		logger:   logger.With(slog.String("handler", "orders")),
		validate: validator.New(),
		svc:      svc,
	}
}

func (h *OrderHandler) Init(r chi.Router) {
	r.Post("/orders", h.CreateOrder)
	r.Get("/orders/{order_id}", h.GetOrderByID)
	r.Delete("/orders/{order_id}", h.DeleteOrder)
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		utils.WriteError(w, "missing user", http.StatusUnauthorized)
		return
	}

	var req CreateOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	items := make([]entities.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, ItemPayloadToEntity(it))
	}

	order, err := h.svc.CreateOrder(ctx, service.CreateOrderInput{
		UserID:           userID,
		Freight:          req.Freight,
		FreightServiceID: req.FreightServiceID,
		Address:          AddressPayloadToEntity(req.Address),
		Items:            items,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create order", slog.Any("error", err))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusCreated)
}

func (h *OrderHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "order_id")

	if err := h.validate.Var(orderID, "required"); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.svc.GetOrderByID(ctx, orderID)

	if errors.Is(err, entities.ErrOrderNotFound) {
		utils.WriteError(w, "order not found", http.StatusNotFound)
		return
	}

	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get order", slog.Any("error", err), slog.String("order_id", orderID))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "order_id")

	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		utils.WriteError(w, "missing user", http.StatusUnauthorized)
		return
	}

	err := h.svc.DeleteOrder(ctx, orderID, userID)

	if errors.Is(err, entities.ErrOrderNotFound) {
		utils.WriteError(w, "order not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, entities.ErrUnauthorized) {
		utils.WriteError(w, "operation not allowed", http.StatusForbidden)
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to delete order", slog.Any("error", err), slog.String("order_id", orderID))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
