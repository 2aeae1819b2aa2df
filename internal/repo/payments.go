package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopflow/fulfillment-service/internal/entities"

	sq "github.com/Masterminds/squirrel"
)

func (r *postgresRepo) FindPaymentByOrderID(ctx context.Context, orderID string) (entities.Payment, error) {
	query, args := r.qb.Select("order_id", "gateway_payment_id", "provider", "status").
		From("payments").
		Where(sq.Eq{"order_id": orderID}).
		MustSql()

	var payment Payment
	err := r.getContext(ctx, &payment, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Payment{}, entities.ErrPaymentNotFound
	}
	if err != nil {
		return entities.Payment{}, fmt.Errorf("failed to get payment: %w", err)
	}
	return PaymentToEntity(payment), nil
}

func (r *postgresRepo) FindPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (entities.Payment, error) {
	query, args := r.qb.Select("order_id", "gateway_payment_id", "provider", "status").
		From("payments").
		Where(sq.Eq{"gateway_payment_id": gatewayPaymentID}).
		MustSql()

	var payment Payment
	err := r.getContext(ctx, &payment, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Payment{}, entities.ErrPaymentNotFound
	}
	if err != nil {
		return entities.Payment{}, fmt.Errorf("failed to get payment: %w", err)
	}
	return PaymentToEntity(payment), nil
}

// UpsertPaymentForOrder creates the payment row for an order or refreshes the
// gateway identifier on the existing one. order_id is unique, so a duplicate
// notification can never produce a second payment for the same order.
func (r *postgresRepo) UpsertPaymentForOrder(ctx context.Context, p entities.Payment) error {
	query, args := r.qb.Insert("payments").
		Columns("order_id", "gateway_payment_id", "provider", "status").
		Values(p.OrderID, nullString(p.GatewayPaymentID), p.Provider, string(p.Status)).
		Suffix("ON CONFLICT (order_id) DO UPDATE SET gateway_payment_id = EXCLUDED.gateway_payment_id, provider = EXCLUDED.provider").
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert payment: %w", err)
	}
	return nil
}

func (r *postgresRepo) UpdatePaymentStatus(ctx context.Context, orderID string, status entities.PaymentStatus) error {
	query, args := r.qb.Update("payments").
		Set("status", string(status)).
		Where(sq.Eq{"order_id": orderID}).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}

// MarkPaymentApprovedIfNotYet flips the payment to APPROVED in a single
// conditional update. It reports true only for the caller that actually
// changed the row, which makes it the exactly-once gate for approval side
// effects under concurrent duplicate notifications.
func (r *postgresRepo) MarkPaymentApprovedIfNotYet(ctx context.Context, gatewayPaymentID string) (bool, error) {
	query, args := r.qb.Update("payments").
		Set("status", string(entities.PaymentStatusApproved)).
		Where(sq.Eq{"gateway_payment_id": gatewayPaymentID}).
		Where(sq.NotEq{"status": string(entities.PaymentStatusApproved)}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment approved: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}
