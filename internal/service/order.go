package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopflow/fulfillment-service/internal/entities"
	"github.com/shopflow/fulfillment-service/pkg/trm"
	"github.com/shopflow/fulfillment-service/pkg/utils"

	"github.com/google/uuid"
)

type CheckoutRepo interface {
	CreateOrder(ctx context.Context, o entities.Order) error
	GetOrderByID(ctx context.Context, orderID string) (entities.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
	UpsertPaymentForOrder(ctx context.Context, p entities.Payment) error
	FindPaymentByOrderID(ctx context.Context, orderID string) (entities.Payment, error)
}

type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

type CreateOrderInput struct {
	UserID           string
	Freight          int
	FreightServiceID int
	Address          entities.Address
	Items            []entities.OrderItem
}

type orderService struct {
	logger    *slog.Logger
	txManager trm.Manager
	repo      CheckoutRepo
	cache     Cache
	provider  string
}

func NewOrderService(logger *slog.Logger, txManager trm.Manager, repo CheckoutRepo, cache Cache, provider string) *orderService {
	return &orderService{
		logger:    logger.With(slog.String("service", "order")),
		txManager: txManager,
		repo:      repo,
		cache:     cache,
		provider:  provider,
	}
}

// CreateOrder persists the order, its line items and a placeholder PENDING
// payment in one transaction. The total is computed here, once; it is never
// recomputed after payment.
func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (entities.Order, error) {
	order := entities.Order{
		ID:          uuid.NewString(),
		UserID:      input.UserID,
		ExternalRef: uuid.NewString(),
		Status:      entities.OrderStatusPending,
		Total:       entities.ComputeTotal(input.Items, input.Freight),
		Freight:     input.Freight,
		Address:     input.Address,
		Items:       input.Items,
		CreatedAt:   time.Now().UTC(),
		Shipment: entities.Shipment{
			FreightServiceID: input.FreightServiceID,
		},
	}

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}

		placeholder := entities.Payment{
			OrderID:  order.ID,
			Provider: s.provider,
			Status:   entities.PaymentStatusPending,
		}
		if err := s.repo.UpsertPaymentForOrder(ctx, placeholder); err != nil {
			return fmt.Errorf("failed to save payment placeholder: %w", err)
		}
		return nil
	})
	if err != nil {
		return entities.Order{}, err
	}

	s.logger.Debug("order created", slog.String("order_id", order.ID))
	return order, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	if data, ok := s.cache.Get(orderID); ok {
		var order entities.Order
		if err := order.Unmarshal(data); err != nil {
			s.logger.Error("failed to unmarshal cached order", slog.String("order_id", orderID), slog.Any("error", err))
			return entities.Order{}, err
		}
		return order, nil
	}

	var order entities.Order
	fn := func() error {
		var err error
		order, err = s.repo.GetOrderByID(ctx, orderID)
		return err
	}
	cfg := utils.RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxAttempts:  5,
		Multiplier:   2,
	}
	if err := utils.Retry(cfg, fn, entities.ErrOrderNotFound); err != nil {
		return entities.Order{}, err
	}

	data, err := order.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal order", slog.String("order_id", orderID), slog.Any("error", err))
		return entities.Order{}, err
	}
	s.cache.Set(orderID, data)
	return order, nil
}

// DeleteOrder is the administrative purge of an order by its owner. A paid or
// refunded order keeps its payment history and cannot be removed this way.
func (s *orderService) DeleteOrder(ctx context.Context, orderID, userID string) error {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	if order.UserID != userID {
		return entities.ErrUnauthorized
	}
	if order.Status == entities.OrderStatusPaid || order.Status == entities.OrderStatusRefunded {
		return entities.ErrUnauthorized
	}

	// The payment may already be approved while the PAID transition is still
	// in flight; such an order must not disappear either.
	payment, err := s.repo.FindPaymentByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, entities.ErrPaymentNotFound) {
		return err
	}
	if payment.Status == entities.PaymentStatusApproved {
		return entities.ErrUnauthorized
	}

	if err := s.repo.DeleteOrder(ctx, orderID); err != nil {
		return err
	}

	s.logger.Info("order deleted", slog.String("order_id", orderID), slog.String("user_id", userID))
	return nil
}
