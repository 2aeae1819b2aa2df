package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopflow/fulfillment-service/internal/entities"
	"github.com/shopflow/fulfillment-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStockRepo mirrors the conditional-update contract of the real
// repository: decrement matches a row only when enough stock is available.
type fakeStockRepo struct {
	mu     sync.Mutex
	stock  map[int64]int
	decErr error
}

func newFakeStockRepo(stock map[int64]int) *fakeStockRepo {
	return &fakeStockRepo{stock: stock}
}

func (f *fakeStockRepo) DecrementStock(_ context.Context, variantID int64, qty int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.decErr != nil {
		return 0, f.decErr
	}
	if f.stock[variantID] < qty {
		return 0, nil
	}
	f.stock[variantID] -= qty
	return 1, nil
}

func (f *fakeStockRepo) IncrementStock(_ context.Context, variantID int64, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[variantID] += qty
	return nil
}

func (f *fakeStockRepo) quantity(variantID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[variantID]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStockLedger_Reserve(t *testing.T) {
	testCases := []struct {
		name      string
		stock     map[int64]int
		items     []entities.OrderItem
		wantOK    bool
		wantFail  int64
		wantStock map[int64]int
	}{
		{
			name:  "all items available",
			stock: map[int64]int{1: 5, 2: 3},
			items: []entities.OrderItem{
				{VariantID: 1, Quantity: 2},
				{VariantID: 2, Quantity: 3},
			},
			wantOK:    true,
			wantStock: map[int64]int{1: 3, 2: 0},
		},
		{
			name:  "second item out of stock rolls back the first",
			stock: map[int64]int{1: 5, 2: 0},
			items: []entities.OrderItem{
				{VariantID: 1, Quantity: 1},
				{VariantID: 2, Quantity: 1},
			},
			wantOK:    false,
			wantFail:  2,
			wantStock: map[int64]int{1: 5, 2: 0},
		},
		{
			name:  "first item out of stock leaves everything untouched",
			stock: map[int64]int{1: 0, 2: 4},
			items: []entities.OrderItem{
				{VariantID: 1, Quantity: 1},
				{VariantID: 2, Quantity: 1},
			},
			wantOK:    false,
			wantFail:  1,
			wantStock: map[int64]int{1: 0, 2: 4},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeStockRepo(tc.stock)
			ledger := service.NewStockLedger(testLogger(), repo)

			res, err := ledger.Reserve(context.Background(), tc.items)
			require.NoError(t, err)

			assert.Equal(t, tc.wantOK, res.OK)
			if !tc.wantOK {
				assert.Equal(t, tc.wantFail, res.FailedVariantID)
			}
			for variantID, want := range tc.wantStock {
				assert.Equal(t, want, repo.quantity(variantID), "variant %d", variantID)
			}
		})
	}
}

func TestStockLedger_Reserve_RepoError(t *testing.T) {
	repo := newFakeStockRepo(map[int64]int{1: 5})
	ledger := service.NewStockLedger(testLogger(), repo)

	dbErr := errors.New("db down")
	repo.decErr = dbErr

	_, err := ledger.Reserve(context.Background(), []entities.OrderItem{{VariantID: 1, Quantity: 1}})
	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, 5, repo.quantity(1))
}

func TestStockLedger_Reserve_NeverNegative(t *testing.T) {
	// 10 units, 20 orders of 1: exactly 10 must win and stock must end at 0.
	repo := newFakeStockRepo(map[int64]int{1: 10})
	ledger := service.NewStockLedger(testLogger(), repo)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledger.Reserve(context.Background(), []entities.OrderItem{{VariantID: 1, Quantity: 1}})
			if err == nil && res.OK {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0, repo.quantity(1))
}

func TestStockLedger_Release(t *testing.T) {
	repo := newFakeStockRepo(map[int64]int{1: 0, 2: 1})
	ledger := service.NewStockLedger(testLogger(), repo)

	ledger.Release(context.Background(), []entities.OrderItem{
		{VariantID: 1, Quantity: 2},
		{VariantID: 2, Quantity: 1},
	})

	assert.Equal(t, 2, repo.quantity(1))
	assert.Equal(t, 2, repo.quantity(2))
}
