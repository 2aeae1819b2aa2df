package repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

func (r *postgresRepo) ClearCart(ctx context.Context, userID string) error {
	query, args := r.qb.Delete("cart_items").
		Where(sq.Eq{"user_id": userID}).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
