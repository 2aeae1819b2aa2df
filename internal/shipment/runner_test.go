package shipment_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopflow/fulfillment-service/internal/carrier"
	"github.com/shopflow/fulfillment-service/internal/config"
	"github.com/shopflow/fulfillment-service/internal/entities"
	"github.com/shopflow/fulfillment-service/internal/shipment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]entities.Order
}

func newFakeOrderRepo(orders ...entities.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[string]entities.Order)}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (f *fakeOrderRepo) GetOrderByID(_ context.Context, orderID string) (entities.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) UpdateShippingInfo(_ context.Context, orderID string, s entities.Shipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := f.orders[orderID]
	order.Shipment = s
	f.orders[orderID] = order
	return nil
}

func (f *fakeOrderRepo) shipping(orderID string) entities.Shipment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[orderID].Shipment
}

type fakeCarrier struct {
	mu             sync.Mutex
	createFailures int
	createCalls    int
	purchaseCalls  int
}

func (f *fakeCarrier) CreateShipment(_ context.Context, _ carrier.ShipmentRequest) (carrier.Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createFailures > 0 {
		f.createFailures--
		return carrier.Shipment{}, errors.New("carrier responded with status 503")
	}
	return carrier.Shipment{ID: "ship-1", Raw: []byte(`{"id":"ship-1"}`)}, nil
}

func (f *fakeCarrier) PurchaseShipment(_ context.Context, shipmentID string) (carrier.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purchaseCalls++
	return carrier.Purchase{
		ID:             "purchase-1",
		TrackingNumber: "TRK123",
		LabelURL:       "https://carrier.test/labels/" + shipmentID,
		Raw:            []byte(`{"id":"purchase-1"}`),
	}, nil
}

func (f *fakeCarrier) calls() (creates, purchases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.purchaseCalls
}

func startRunner(t *testing.T, repo *fakeOrderRepo, courier *fakeCarrier) *shipment.Runner {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := shipment.NewRunner(logger, repo, courier,
		config.Carrier{SenderName: "warehouse", SenderPhone: "+5511999999999", SenderZIP: "01001-000"},
		config.Shipment{MaxAttempts: 3, InitialDelay: time.Millisecond, Workers: 1, QueueSize: 16},
	)

	require.NoError(t, runner.Start(context.Background()))
	t.Cleanup(func() { require.NoError(t, runner.Close()) })
	return runner
}

func paidOrder() entities.Order {
	return entities.Order{
		ID:     "order-1",
		UserID: "user-1",
		Status: entities.OrderStatusPaid,
		Address: entities.Address{
			Name: "Jo Silva", ZIP: "04538-133", City: "Sao Paulo", State: "SP",
		},
		Items: []entities.OrderItem{
			{VariantID: 1, Name: "shirt", Quantity: 1, UnitPrice: 1500},
		},
		Shipment: entities.Shipment{FreightServiceID: 2},
	}
}

func TestRunner_PurchasesOnFirstAttempt(t *testing.T) {
	repo := newFakeOrderRepo(paidOrder())
	courier := &fakeCarrier{}
	runner := startRunner(t, repo, courier)

	runner.Enqueue("order-1")

	require.Eventually(t, func() bool {
		return repo.shipping("order-1").Status == entities.ShippingStatusPurchased
	}, time.Second, 5*time.Millisecond)

	ship := repo.shipping("order-1")
	assert.Equal(t, "ship-1", ship.CarrierShipmentID)
	assert.Equal(t, "purchase-1", ship.CarrierPurchaseID)
	assert.Equal(t, "TRK123", ship.TrackingNumber)
	assert.Equal(t, "https://carrier.test/labels/ship-1", ship.LabelURL)
	assert.Empty(t, ship.LastError)

	creates, purchases := courier.calls()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, purchases)
}

func TestRunner_RetriesUntilCarrierRecovers(t *testing.T) {
	repo := newFakeOrderRepo(paidOrder())
	courier := &fakeCarrier{createFailures: 2}
	runner := startRunner(t, repo, courier)

	runner.Enqueue("order-1")

	require.Eventually(t, func() bool {
		return repo.shipping("order-1").Status == entities.ShippingStatusPurchased
	}, time.Second, 5*time.Millisecond)

	creates, purchases := courier.calls()
	assert.Equal(t, 3, creates)
	assert.Equal(t, 1, purchases)
}

func TestRunner_ExhaustedAttemptsEndFailed(t *testing.T) {
	repo := newFakeOrderRepo(paidOrder())
	courier := &fakeCarrier{createFailures: 10}
	runner := startRunner(t, repo, courier)

	runner.Enqueue("order-1")

	require.Eventually(t, func() bool {
		return repo.shipping("order-1").Status == entities.ShippingStatusFailed
	}, time.Second, 5*time.Millisecond)

	ship := repo.shipping("order-1")
	assert.Contains(t, ship.LastError, "503")
	assert.Empty(t, ship.CarrierShipmentID)

	creates, purchases := courier.calls()
	assert.Equal(t, 3, creates)
	assert.Equal(t, 0, purchases)

	// The order itself stays paid; only the shipping leg is terminal.
	order, err := repo.GetOrderByID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, entities.OrderStatusPaid, order.Status)
}

func TestRunner_ResumesAfterPersistedShipmentID(t *testing.T) {
	order := paidOrder()
	order.Shipment.CarrierShipmentID = "ship-existing"
	order.Shipment.Status = entities.ShippingStatusCreating

	repo := newFakeOrderRepo(order)
	courier := &fakeCarrier{}
	runner := startRunner(t, repo, courier)

	runner.Enqueue("order-1")

	require.Eventually(t, func() bool {
		return repo.shipping("order-1").Status == entities.ShippingStatusPurchased
	}, time.Second, 5*time.Millisecond)

	creates, purchases := courier.calls()
	assert.Equal(t, 0, creates, "existing shipment must not be recreated")
	assert.Equal(t, 1, purchases)
	assert.Equal(t, "ship-existing", repo.shipping("order-1").CarrierShipmentID)
	assert.Equal(t, "https://carrier.test/labels/ship-existing", repo.shipping("order-1").LabelURL)
}

func TestRunner_PurchasedOrderIsLeftAlone(t *testing.T) {
	order := paidOrder()
	order.Shipment.Status = entities.ShippingStatusPurchased
	order.Shipment.CarrierShipmentID = "ship-1"
	order.Shipment.CarrierPurchaseID = "purchase-1"

	repo := newFakeOrderRepo(order)
	courier := &fakeCarrier{}
	runner := startRunner(t, repo, courier)

	runner.Enqueue("order-1")

	require.Never(t, func() bool {
		creates, purchases := courier.calls()
		return creates > 0 || purchases > 0
	}, 100*time.Millisecond, 5*time.Millisecond)
}
