package repo

import (
	"database/sql"
	"time"

	"github.com/shopflow/fulfillment-service/internal/entities"
)

type Order struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	ExternalRef string         `db:"external_ref"`
	Status      string         `db:"status"`
	Total       int            `db:"total"`
	Freight     int            `db:"freight"`
	Name        sql.NullString `db:"name"`
	Phone       sql.NullString `db:"phone"`
	ZIP         sql.NullString `db:"zip"`
	Street      sql.NullString `db:"street"`
	Number      sql.NullString `db:"number"`
	Complement  sql.NullString `db:"complement"`
	District    sql.NullString `db:"district"`
	City        sql.NullString `db:"city"`
	State       sql.NullString `db:"state"`
	CreatedAt   time.Time      `db:"created_at"`

	CarrierShipmentID sql.NullString `db:"carrier_shipment_id"`
	CarrierPurchaseID sql.NullString `db:"carrier_purchase_id"`
	FreightServiceID  int            `db:"freight_service_id"`
	TrackingNumber    sql.NullString `db:"tracking_number"`
	LabelURL          sql.NullString `db:"label_url"`
	ShippingStatus    sql.NullString `db:"shipping_status"`
	ShippingError     sql.NullString `db:"shipping_error"`
	CarrierResponse   sql.NullString `db:"carrier_response"`
}

type OrderItem struct {
	OrderID   string `db:"order_id"`
	VariantID int64  `db:"variant_id"`
	Name      string `db:"name"`
	Quantity  int    `db:"quantity"`
	UnitPrice int    `db:"unit_price"`
}

type Payment struct {
	OrderID          string         `db:"order_id"`
	GatewayPaymentID sql.NullString `db:"gateway_payment_id"`
	Provider         string         `db:"provider"`
	Status           string         `db:"status"`
}

func ItemToEntity(i OrderItem) entities.OrderItem {
	return entities.OrderItem{
		VariantID: i.VariantID,
		Name:      i.Name,
		Quantity:  i.Quantity,
		UnitPrice: i.UnitPrice,
	}
}

func PaymentToEntity(p Payment) entities.Payment {
	return entities.Payment{
		OrderID:          p.OrderID,
		GatewayPaymentID: nullStringToString(p.GatewayPaymentID),
		Provider:         p.Provider,
		Status:           entities.PaymentStatus(p.Status),
	}
}

func OrderToEntity(o Order, items []OrderItem) entities.Order {
	order := entities.Order{
		ID:          o.ID,
		UserID:      o.UserID,
		ExternalRef: o.ExternalRef,
		Status:      entities.OrderStatus(o.Status),
		Total:       o.Total,
		Freight:     o.Freight,
		CreatedAt:   o.CreatedAt,
		Address: entities.Address{
			Name:       nullStringToString(o.Name),
			Phone:      nullStringToString(o.Phone),
			ZIP:        nullStringToString(o.ZIP),
			Street:     nullStringToString(o.Street),
			Number:     nullStringToString(o.Number),
			Complement: nullStringToString(o.Complement),
			District:   nullStringToString(o.District),
			City:       nullStringToString(o.City),
			State:      nullStringToString(o.State),
		},
		Shipment: entities.Shipment{
			CarrierShipmentID: nullStringToString(o.CarrierShipmentID),
			CarrierPurchaseID: nullStringToString(o.CarrierPurchaseID),
			FreightServiceID:  o.FreightServiceID,
			TrackingNumber:    nullStringToString(o.TrackingNumber),
			LabelURL:          nullStringToString(o.LabelURL),
			Status:            entities.ShippingStatus(nullStringToString(o.ShippingStatus)),
			LastError:         nullStringToString(o.ShippingError),
			CarrierResponse:   nullStringToString(o.CarrierResponse),
		},
	}

	if len(items) > 0 {
		order.Items = make([]entities.OrderItem, 0, len(items))
		for _, it := range items {
			order.Items = append(order.Items, ItemToEntity(it))
		}
	}

	return order
}
