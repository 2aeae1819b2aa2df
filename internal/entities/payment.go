package entities

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusApproved PaymentStatus = "APPROVED"
	PaymentStatusRejected PaymentStatus = "REJECTED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Payment is the local record of a gateway transaction. At most one exists
// per order; GatewayPaymentID stays empty until the first notification names it.
type Payment struct {
	OrderID          string
	GatewayPaymentID string
	Provider         string
	Status           PaymentStatus
}

// PaymentStatusFromGateway maps the gateway status string to the local enum.
// Anything unknown or missing degrades to PENDING, never to APPROVED.
func PaymentStatusFromGateway(status string) PaymentStatus {
	switch status {
	case "approved":
		return PaymentStatusApproved
	case "pending":
		return PaymentStatusPending
	case "rejected":
		return PaymentStatusRejected
	case "refunded":
		return PaymentStatusRefunded
	default:
		return PaymentStatusPending
	}
}

// OrderStatus returns the order status implied by a payment status.
func (s PaymentStatus) OrderStatus() OrderStatus {
	switch s {
	case PaymentStatusApproved:
		return OrderStatusPaid
	case PaymentStatusRejected:
		return OrderStatusRejected
	case PaymentStatusRefunded:
		return OrderStatusRefunded
	default:
		return OrderStatusPending
	}
}
