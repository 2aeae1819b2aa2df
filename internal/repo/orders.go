package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopflow/fulfillment-service/internal/entities"

	sq "github.com/Masterminds/squirrel"
)

var orderColumns = []string{
	"id", "user_id", "external_ref", "status", "total", "freight",
	"name", "phone", "zip", "street", "number", "complement",
	"district", "city", "state", "created_at",
	"carrier_shipment_id", "carrier_purchase_id", "freight_service_id",
	"tracking_number", "label_url", "shipping_status", "shipping_error",
	"carrier_response",
}

func (r *postgresRepo) CreateOrder(ctx context.Context, o entities.Order) error {
	query, args := r.qb.Insert("orders").
		Columns(
			"id", "user_id", "external_ref", "status", "total", "freight",
			"name", "phone", "zip", "street", "number", "complement",
			"district", "city", "state", "freight_service_id", "created_at",
		).
		Values(
			o.ID, o.UserID, o.ExternalRef, string(o.Status), o.Total, o.Freight,
			nullString(o.Address.Name), nullString(o.Address.Phone), nullString(o.Address.ZIP),
			nullString(o.Address.Street), nullString(o.Address.Number), nullString(o.Address.Complement),
			nullString(o.Address.District), nullString(o.Address.City), nullString(o.Address.State),
			o.Shipment.FreightServiceID, o.CreatedAt,
		).
		Suffix("ON CONFLICT (id) DO NOTHING").
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	return r.saveItems(ctx, o.ID, o.Items)
}

func (r *postgresRepo) saveItems(ctx context.Context, orderID string, items []entities.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	q := r.qb.Insert("order_items").
		Columns("order_id", "variant_id", "name", "quantity", "unit_price").
		Suffix("ON CONFLICT (order_id, variant_id) DO NOTHING")

	for _, it := range items {
		q = q.Values(orderID, it.VariantID, it.Name, it.Quantity, it.UnitPrice)
	}

	query, args := q.MustSql()
	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save order items: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	query, args := r.qb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": orderID}).
		MustSql()

	return r.getOrder(ctx, query, args)
}

func (r *postgresRepo) GetOrderByExternalRef(ctx context.Context, ref string) (entities.Order, error) {
	query, args := r.qb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"external_ref": ref}).
		MustSql()

	return r.getOrder(ctx, query, args)
}

func (r *postgresRepo) getOrder(ctx context.Context, query string, args []any) (entities.Order, error) {
	var order Order
	err := r.getContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	query, args = r.qb.Select("order_id", "variant_id", "name", "quantity", "unit_price").
		From("order_items").
		Where(sq.Eq{"order_id": order.ID}).
		MustSql()

	var items []OrderItem
	if err := r.selectContext(ctx, &items, query, args...); err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order items: %w", err)
	}

	return OrderToEntity(order, items), nil
}

func (r *postgresRepo) UpdateOrderStatus(ctx context.Context, orderID string, status entities.OrderStatus) error {
	query, args := r.qb.Update("orders").
		Set("status", string(status)).
		Where(sq.Eq{"id": orderID}).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

func (r *postgresRepo) UpdateShippingInfo(ctx context.Context, orderID string, s entities.Shipment) error {
	query, args := r.qb.Update("orders").
		Set("carrier_shipment_id", nullString(s.CarrierShipmentID)).
		Set("carrier_purchase_id", nullString(s.CarrierPurchaseID)).
		Set("tracking_number", nullString(s.TrackingNumber)).
		Set("label_url", nullString(s.LabelURL)).
		Set("shipping_status", nullString(string(s.Status))).
		Set("shipping_error", nullString(s.LastError)).
		Set("carrier_response", nullString(s.CarrierResponse)).
		Where(sq.Eq{"id": orderID}).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update shipping info: %w", err)
	}
	return nil
}

func (r *postgresRepo) DeleteOrder(ctx context.Context, orderID string) error {
	query, args := r.qb.Delete("orders").
		Where(sq.Eq{"id": orderID}).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}
