package handler

import (
	"time"

	"github.com/shopflow/fulfillment-service/internal/entities"
)

type CreateOrderRequest struct {
	Freight          int                `json:"freight" validate:"gte=0"`
	FreightServiceID int                `json:"freight_service_id" validate:"required"`
	Address          AddressPayload     `json:"address" validate:"required"`
	Items            []OrderItemPayload `json:"items" validate:"required,min=1,dive"`
}

type AddressPayload struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone,omitempty"`
	ZIP        string `json:"zip" validate:"required"`
	Street     string `json:"street" validate:"required"`
	Number     string `json:"number,omitempty"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
}

type OrderItemPayload struct {
	VariantID int64  `json:"variant_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	UnitPrice int    `json:"unit_price" validate:"required,gt=0"`
}

type Order struct {
	ID          string          `json:"id"`
	ExternalRef string          `json:"external_ref"`
	Status      string          `json:"status"`
	Total       int             `json:"total"`
	Freight     int             `json:"freight"`
	Address     AddressPayload  `json:"address"`
	Items       []OrderItemJSON `json:"items"`
	Shipping    ShippingJSON    `json:"shipping"`
	CreatedAt   time.Time       `json:"created_at"`
}

type OrderItemJSON struct {
	VariantID int64  `json:"variant_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int    `json:"unit_price"`
}

type ShippingJSON struct {
	Status         string `json:"status,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	LabelURL       string `json:"label_url,omitempty"`
}

func AddressPayloadToEntity(a AddressPayload) entities.Address {
	return entities.Address{
		Name:       a.Name,
		Phone:      a.Phone,
		ZIP:        a.ZIP,
		Street:     a.Street,
		Number:     a.Number,
		Complement: a.Complement,
		District:   a.District,
		City:       a.City,
		State:      a.State,
	}
}

func AddressEntityToJSON(a entities.Address) AddressPayload {
	return AddressPayload{
		Name:       a.Name,
		Phone:      a.Phone,
		ZIP:        a.ZIP,
		Street:     a.Street,
		Number:     a.Number,
		Complement: a.Complement,
		District:   a.District,
		City:       a.City,
		State:      a.State,
	}
}

func ItemPayloadToEntity(i OrderItemPayload) entities.OrderItem {
	return entities.OrderItem{
		VariantID: i.VariantID,
		Name:      i.Name,
		Quantity:  i.Quantity,
		UnitPrice: i.UnitPrice,
	}
}

func OrderEntityToJSON(o entities.Order) Order {
	items := make([]OrderItemJSON, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemJSON{
			VariantID: it.VariantID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	return Order{
		ID:          o.ID,
		ExternalRef: o.ExternalRef,
		Status:      string(o.Status),
		Total:       o.Total,
		Freight:     o.Freight,
		Address:     AddressEntityToJSON(o.Address),
		Items:       items,
		Shipping: ShippingJSON{
			Status:         string(o.Shipment.Status),
			TrackingNumber: o.Shipment.TrackingNumber,
			LabelURL:       o.Shipment.LabelURL,
		},
		CreatedAt: o.CreatedAt,
	}
}
