package entities

import (
	"bytes"
	"encoding/gob"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusRejected OrderStatus = "REJECTED"
	OrderStatusRefunded OrderStatus = "REFUNDED"
)

type ShippingStatus string

const (
	// ShippingStatusNone means the shipment job has not run for the order yet.
	ShippingStatusNone      ShippingStatus = ""
	ShippingStatusCreating  ShippingStatus = "CREATING"
	ShippingStatusPurchased ShippingStatus = "PURCHASED"
	ShippingStatusFailed    ShippingStatus = "FAILED"
)

type Address struct {
	Name       string
	Phone      string
	ZIP        string
	Street     string
	Number     string
	Complement string
	District   string
	City       string
	State      string
}

// OrderItem keeps the unit price snapshot taken at checkout. Catalog price
// changes must not alter historical orders.
type OrderItem struct {
	VariantID int64
	Name      string
	Quantity  int
	UnitPrice int
}

// Shipment holds carrier-side progress persisted on the order. Fields are
// filled incrementally by the shipment job and drive its idempotency checks.
type Shipment struct {
	CarrierShipmentID string
	CarrierPurchaseID string
	FreightServiceID  int
	TrackingNumber    string
	LabelURL          string
	Status            ShippingStatus
	LastError         string
	CarrierResponse   string
}

type Order struct {
	ID          string
	UserID      string
	ExternalRef string
	Status      OrderStatus
	Total       int
	Freight     int
	Address     Address
	Shipment    Shipment
	Items       []OrderItem
	CreatedAt   time.Time
}

// ComputeTotal is the order total invariant: sum of line-item price snapshots
// plus freight. Computed once at checkout, never recomputed after payment.
func ComputeTotal(items []OrderItem, freight int) int {
	total := freight
	for _, it := range items {
		total += it.UnitPrice * it.Quantity
	}
	return total
}

func (o *Order) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Order) Unmarshal(data []byte) error {
	buf := bytes.NewBuffer(data)
	dec := gob.NewDecoder(buf)
	if err := dec.Decode(o); err != nil {
		return ErrInvalidOrder
	}
	return nil
}

func init() {
	gob.Register(Order{})
	gob.Register(OrderItem{})
	gob.Register(Address{})
	gob.Register(Shipment{})
}
