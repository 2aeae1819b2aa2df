package shipment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopflow/fulfillment-service/internal/carrier"
	"github.com/shopflow/fulfillment-service/internal/config"
	"github.com/shopflow/fulfillment-service/internal/entities"

	"golang.org/x/sync/errgroup"
)

type OrderRepo interface {
	GetOrderByID(ctx context.Context, orderID string) (entities.Order, error)
	UpdateShippingInfo(ctx context.Context, orderID string, s entities.Shipment) error
}

type Carrier interface {
	CreateShipment(ctx context.Context, req carrier.ShipmentRequest) (carrier.Shipment, error)
	PurchaseShipment(ctx context.Context, shipmentID string) (carrier.Purchase, error)
}

type job struct {
	orderID string
	attempt int
	runAt   time.Time
}

// Runner purchases carrier labels for paid orders, detached from the webhook
// request that enqueued them. Each job retries with exponential backoff up to
// the attempt cap; exhausting it persists a terminal FAILED shipping status
// and never touches the PAID or stock state.
type Runner struct {
	logger  *slog.Logger
	repo    OrderRepo
	carrier Carrier
	sender  carrier.Party

	maxAttempts  int
	initialDelay time.Duration
	workers      int

	jobs   chan job
	group  *errgroup.Group
	cancel context.CancelFunc
}

func NewRunner(logger *slog.Logger, repo OrderRepo, courier Carrier, cfg config.Carrier, opts config.Shipment) *Runner {
	return &Runner{
		logger:  logger.With(slog.String("component", "shipment")),
		repo:    repo,
		carrier: courier,
		sender: carrier.Party{
			Name:  cfg.SenderName,
			Phone: cfg.SenderPhone,
			ZIP:   cfg.SenderZIP,
		},
		maxAttempts:  opts.MaxAttempts,
		initialDelay: opts.InitialDelay,
		workers:      opts.Workers,
		jobs:         make(chan job, opts.QueueSize),
	}
}

func (r *Runner) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	group, ctx := errgroup.WithContext(ctx)
	r.group = group
	for i := 0; i < r.workers; i++ {
		group.Go(func() error {
			r.worker(ctx)
			return nil
		})
	}

	r.logger.Info("shipment runner started", slog.Int("workers", r.workers))
	return nil
}

func (r *Runner) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.group != nil {
		return r.group.Wait()
	}
	return nil
}

// Enqueue schedules a shipment job for the order. Non-blocking: the webhook
// path must never wait on the job queue. A dropped job is recovered by ops
// re-enqueueing, not by blocking payment processing.
func (r *Runner) Enqueue(orderID string) {
	select {
	case r.jobs <- job{orderID: orderID, attempt: 1, runAt: time.Now()}:
		jobsEnqueued.Inc()
	default:
		r.logger.Error("shipment queue full, dropping job", slog.String("order_id", orderID))
		jobsDropped.Inc()
	}
}

func (r *Runner) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-r.jobs:
			r.run(ctx, j)
		}
	}
}

func (r *Runner) run(ctx context.Context, j job) {
	if wait := time.Until(j.runAt); wait > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}

	jobsInProgress.Inc()
	err := r.process(ctx, j.orderID)
	jobsInProgress.Dec()

	if err == nil {
		jobsSucceeded.Inc()
		return
	}

	r.logger.Warn("shipment attempt failed",
		slog.String("order_id", j.orderID), slog.Int("attempt", j.attempt), slog.Any("error", err))

	if j.attempt >= r.maxAttempts {
		r.fail(ctx, j.orderID, err)
		return
	}

	jobsRetried.Inc()
	next := job{
		orderID: j.orderID,
		attempt: j.attempt + 1,
		runAt:   time.Now().Add(r.backoff(j.attempt)),
	}
	select {
	case r.jobs <- next:
	case <-ctx.Done():
	}
}

func (r *Runner) backoff(attempt int) time.Duration {
	delay := r.initialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// process is idempotent against the progress already persisted on the order:
// a re-run after the shipment id landed goes straight to the label purchase.
func (r *Runner) process(ctx context.Context, orderID string) error {
	order, err := r.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	if order.Shipment.Status == entities.ShippingStatusPurchased {
		return nil
	}

	ship := order.Shipment
	if ship.CarrierShipmentID == "" {
		ship.Status = entities.ShippingStatusCreating
		ship.LastError = ""
		if err := r.repo.UpdateShippingInfo(ctx, orderID, ship); err != nil {
			return err
		}

		created, err := r.carrier.CreateShipment(ctx, r.buildRequest(order))
		if err != nil {
			return err
		}

		ship.CarrierShipmentID = created.ID
		ship.CarrierResponse = string(created.Raw)
		if err := r.repo.UpdateShippingInfo(ctx, orderID, ship); err != nil {
			return err
		}
	}

	// Confirm the shipment id actually landed before spending money on a label.
	order, err = r.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Shipment.CarrierShipmentID == "" {
		return errors.New("shipment id missing after creation")
	}

	ship = order.Shipment
	purchase, err := r.carrier.PurchaseShipment(ctx, ship.CarrierShipmentID)
	if err != nil {
		return err
	}

	ship.CarrierPurchaseID = purchase.ID
	ship.TrackingNumber = purchase.TrackingNumber
	ship.LabelURL = purchase.LabelURL
	ship.CarrierResponse = string(purchase.Raw)
	ship.Status = entities.ShippingStatusPurchased
	ship.LastError = ""
	return r.repo.UpdateShippingInfo(ctx, orderID, ship)
}

func (r *Runner) fail(ctx context.Context, orderID string, cause error) {
	jobsFailed.Inc()

	order, err := r.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		r.logger.Error("failed to load order for terminal state",
			slog.String("order_id", orderID), slog.Any("error", err))
		return
	}

	ship := order.Shipment
	ship.Status = entities.ShippingStatusFailed
	ship.LastError = cause.Error()
	if err := r.repo.UpdateShippingInfo(ctx, orderID, ship); err != nil {
		r.logger.Error("failed to persist terminal shipping state",
			slog.String("order_id", orderID), slog.Any("error", err))
		return
	}

	r.logger.Error("shipment permanently failed",
		slog.String("order_id", orderID), slog.Any("error", cause))
}

func (r *Runner) buildRequest(order entities.Order) carrier.ShipmentRequest {
	products := make([]carrier.ProductItem, 0, len(order.Items))
	for _, it := range order.Items {
		products = append(products, carrier.ProductItem{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	return carrier.ShipmentRequest{
		OrderID:          order.ID,
		FreightServiceID: order.Shipment.FreightServiceID,
		From:             r.sender,
		To: carrier.Party{
			Name:     order.Address.Name,
			Phone:    order.Address.Phone,
			ZIP:      order.Address.ZIP,
			Street:   order.Address.Street,
			Number:   order.Address.Number,
			District: order.Address.District,
			City:     order.Address.City,
			State:    order.Address.State,
		},
		Products: products,
	}
}
