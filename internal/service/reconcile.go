package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopflow/fulfillment-service/internal/entities"
	"github.com/shopflow/fulfillment-service/internal/gateway"
)

type OrderRepo interface {
	GetOrderByID(ctx context.Context, orderID string) (entities.Order, error)
	GetOrderByExternalRef(ctx context.Context, ref string) (entities.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status entities.OrderStatus) error
}

type PaymentRepo interface {
	FindPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (entities.Payment, error)
	UpsertPaymentForOrder(ctx context.Context, p entities.Payment) error
	UpdatePaymentStatus(ctx context.Context, orderID string, status entities.PaymentStatus) error
	// MarkPaymentApprovedIfNotYet must be a single conditional update; only the
	// caller that flipped the row gets true.
	MarkPaymentApprovedIfNotYet(ctx context.Context, gatewayPaymentID string) (bool, error)
}

type CartRepo interface {
	ClearCart(ctx context.Context, userID string) error
}

type Stock interface {
	Reserve(ctx context.Context, items []entities.OrderItem) (ReserveResult, error)
}

type ShipmentQueue interface {
	Enqueue(orderID string)
}

type StatusNotifier interface {
	Publish(ctx context.Context, orderID string, status entities.OrderStatus)
}

// Outcome reports what a notification did, mostly for logging and metrics.
// SideEffects is true only for the single caller that won the approval gate.
type Outcome struct {
	Status      entities.PaymentStatus
	SideEffects bool
	Reason      string
}

const (
	ReasonApplied           = "applied"
	ReasonDuplicate         = "duplicate"
	ReasonStatusUpdated     = "status_updated"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonOrphaned          = "orphaned"
)

// Reconciler drives the local order/payment state machine from fetched
// gateway payment records. Duplicate and concurrent notifications for the
// same payment collapse into one winner via the approval gate; everything
// after the gate runs at most once per payment.
type Reconciler struct {
	logger    *slog.Logger
	provider  string
	orders    OrderRepo
	payments  PaymentRepo
	cart      CartRepo
	stock     Stock
	shipments ShipmentQueue
	notifier  StatusNotifier
}

func NewReconciler(
	logger *slog.Logger,
	provider string,
	orders OrderRepo,
	payments PaymentRepo,
	cart CartRepo,
	stock Stock,
	shipments ShipmentQueue,
	notifier StatusNotifier,
) *Reconciler {
	return &Reconciler{
		logger:    logger.With(slog.String("service", "reconciler")),
		provider:  provider,
		orders:    orders,
		payments:  payments,
		cart:      cart,
		stock:     stock,
		shipments: shipments,
		notifier:  notifier,
	}
}

func (e *Reconciler) Apply(ctx context.Context, rec gateway.PaymentRecord) (Outcome, error) {
	status := entities.PaymentStatusFromGateway(rec.Status)

	order, err := e.resolveOrder(ctx, rec)
	if errors.Is(err, entities.ErrOrderNotFound) {
		e.logger.Warn("no local order for gateway payment",
			slog.String("payment_id", rec.ID), slog.String("reference", rec.ExternalReference))
		return Outcome{Status: status, Reason: ReasonOrphaned}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	// Keyed by the unique order id: creates the payment on first contact,
	// refreshes a superseded gateway identifier afterwards.
	payment := entities.Payment{
		OrderID:          order.ID,
		GatewayPaymentID: rec.ID,
		Provider:         e.provider,
		Status:           entities.PaymentStatusPending,
	}
	if err := e.payments.UpsertPaymentForOrder(ctx, payment); err != nil {
		return Outcome{}, err
	}

	if status != entities.PaymentStatusApproved {
		return e.applyWithoutSideEffects(ctx, order, status)
	}

	won, err := e.payments.MarkPaymentApprovedIfNotYet(ctx, rec.ID)
	if err != nil {
		return Outcome{}, err
	}
	if !won {
		return Outcome{Status: status, Reason: ReasonDuplicate}, nil
	}

	return e.runApprovalSideEffects(ctx, order, rec)
}

func (e *Reconciler) applyWithoutSideEffects(ctx context.Context, order entities.Order, status entities.PaymentStatus) (Outcome, error) {
	if err := e.payments.UpdatePaymentStatus(ctx, order.ID, status); err != nil {
		return Outcome{}, err
	}

	if status == entities.PaymentStatusRejected || status == entities.PaymentStatusRefunded {
		orderStatus := status.OrderStatus()
		if err := e.orders.UpdateOrderStatus(ctx, order.ID, orderStatus); err != nil {
			return Outcome{}, err
		}
		e.notifier.Publish(ctx, order.ID, orderStatus)
	}

	return Outcome{Status: status, Reason: ReasonStatusUpdated}, nil
}

func (e *Reconciler) runApprovalSideEffects(ctx context.Context, order entities.Order, rec gateway.PaymentRecord) (Outcome, error) {
	res, err := e.stock.Reserve(ctx, order.Items)
	if err != nil {
		// Infra failure, not a stock verdict: put the payment back to PENDING so
		// the next notification or sweep can try again.
		if uerr := e.payments.UpdatePaymentStatus(ctx, order.ID, entities.PaymentStatusPending); uerr != nil {
			e.logger.Error("failed to revert payment status", slog.String("order_id", order.ID), slog.Any("error", uerr))
		}
		return Outcome{}, fmt.Errorf("failed to reserve stock: %w", err)
	}

	if !res.OK {
		// An approved gateway payment we cannot fulfill: surfaced as a rejected
		// local payment for manual reconciliation, never retried silently.
		if err := e.payments.UpdatePaymentStatus(ctx, order.ID, entities.PaymentStatusRejected); err != nil {
			return Outcome{}, err
		}
		e.logger.Warn("approved payment without fulfillable stock",
			slog.String("order_id", order.ID),
			slog.String("payment_id", rec.ID),
			slog.Int64("variant_id", res.FailedVariantID))
		return Outcome{Status: entities.PaymentStatusRejected, Reason: ReasonInsufficientStock}, nil
	}

	if err := e.orders.UpdateOrderStatus(ctx, order.ID, entities.OrderStatusPaid); err != nil {
		return Outcome{}, err
	}

	if err := e.cart.ClearCart(ctx, order.UserID); err != nil {
		e.logger.Error("failed to clear cart", slog.String("user_id", order.UserID), slog.Any("error", err))
	}

	e.shipments.Enqueue(order.ID)
	e.notifier.Publish(ctx, order.ID, entities.OrderStatusPaid)

	e.logger.Info("order paid",
		slog.String("order_id", order.ID), slog.String("payment_id", rec.ID))

	return Outcome{
		Status:      entities.PaymentStatusApproved,
		SideEffects: true,
		Reason:      ReasonApplied,
	}, nil
}

// resolveOrder prefers the checkout-time external reference carried by the
// gateway record; without one it falls back to an existing local payment
// already linked to the gateway id.
func (e *Reconciler) resolveOrder(ctx context.Context, rec gateway.PaymentRecord) (entities.Order, error) {
	if rec.ExternalReference != "" {
		order, err := e.orders.GetOrderByExternalRef(ctx, rec.ExternalReference)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, entities.ErrOrderNotFound) {
			return entities.Order{}, err
		}
	}

	payment, err := e.payments.FindPaymentByGatewayID(ctx, rec.ID)
	if errors.Is(err, entities.ErrPaymentNotFound) {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if err != nil {
		return entities.Order{}, err
	}

	return e.orders.GetOrderByID(ctx, payment.OrderID)
}
