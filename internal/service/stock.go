package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopflow/fulfillment-service/internal/entities"
)

type StockRepo interface {
	// DecrementStock must be a single conditional update: it subtracts qty only
	// when enough stock is available and reports the number of matched rows.
	DecrementStock(ctx context.Context, variantID int64, qty int) (int64, error)
	IncrementStock(ctx context.Context, variantID int64, qty int) error
}

type ReserveResult struct {
	OK              bool
	FailedVariantID int64
}

// StockLedger applies an order's full item list to stock all-or-nothing. Each
// step is atomic on its own, so stock never goes negative; a concurrent order
// may interleave between two of our decrements, which only affects fairness,
// not correctness.
type StockLedger struct {
	logger *slog.Logger
	repo   StockRepo
}

func NewStockLedger(logger *slog.Logger, repo StockRepo) *StockLedger {
	return &StockLedger{
		logger: logger.With(slog.String("service", "stock")),
		repo:   repo,
	}
}

// Reserve decrements stock for every item in order. On the first item that
// cannot be satisfied it restores everything already taken and reports the
// failing variant.
func (l *StockLedger) Reserve(ctx context.Context, items []entities.OrderItem) (ReserveResult, error) {
	taken := make([]entities.OrderItem, 0, len(items))

	for _, it := range items {
		affected, err := l.repo.DecrementStock(ctx, it.VariantID, it.Quantity)
		if err != nil {
			l.release(ctx, taken)
			return ReserveResult{}, fmt.Errorf("failed to decrement stock for variant %d: %w", it.VariantID, err)
		}
		if affected == 0 {
			l.release(ctx, taken)
			l.logger.Warn("insufficient stock",
				slog.Int64("variant_id", it.VariantID), slog.Int("quantity", it.Quantity))
			return ReserveResult{OK: false, FailedVariantID: it.VariantID}, nil
		}
		taken = append(taken, it)
	}

	return ReserveResult{OK: true}, nil
}

// Release returns previously reserved quantities to stock.
func (l *StockLedger) Release(ctx context.Context, items []entities.OrderItem) {
	l.release(ctx, items)
}

func (l *StockLedger) release(ctx context.Context, items []entities.OrderItem) {
	for _, it := range items {
		if err := l.repo.IncrementStock(ctx, it.VariantID, it.Quantity); err != nil {
			// Rollback keeps going: one failed compensation must not strand the rest.
			l.logger.Error("failed to restore stock",
				slog.Int64("variant_id", it.VariantID), slog.Any("error", err))
		}
	}
}
