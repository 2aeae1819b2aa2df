package repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// DecrementStock subtracts qty from the variant's stock only when enough is
// available, as one atomic statement. The returned count is the number of
// rows matched: zero means insufficient stock (or unknown variant). There is
// no read-then-write window, so stock can never go negative.
func (r *postgresRepo) DecrementStock(ctx context.Context, variantID int64, qty int) (int64, error) {
	query, args := r.qb.Update("stock").
		Set("quantity", sq.Expr("quantity - ?", qty)).
		Where(sq.Eq{"variant_id": variantID}).
		Where(sq.GtOrEq{"quantity": qty}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to decrement stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// IncrementStock unconditionally returns qty to the variant's stock. Used
// only to compensate a partially applied multi-item decrement.
func (r *postgresRepo) IncrementStock(ctx context.Context, variantID int64, qty int) error {
	query, args := r.qb.Update("stock").
		Set("quantity", sq.Expr("quantity + ?", qty)).
		Where(sq.Eq{"variant_id": variantID}).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	return nil
}
