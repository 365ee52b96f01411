package store

import (
	"context"
	"fmt"
	"time"

	"github.com/01moynul/techxchange-golang/internal/models"
)

// AdminStats collects the admin dashboard counters.
func (s *Store) AdminStats(ctx context.Context, now time.Time) (*models.AdminStats, error) {
	var stats models.AdminStats

	counters := []struct {
		name  string
		query string
		args  []any
		dest  *int
	}{
		{"users", "SELECT COUNT(*) FROM users", nil, &stats.TotalUsers},
		{"pending users", "SELECT COUNT(*) FROM users WHERE is_active = FALSE", nil, &stats.PendingUsers},
		{"products", "SELECT COUNT(*) FROM products", nil, &stats.TotalProducts},
		{"pending subscriptions", "SELECT COUNT(*) FROM subscriptions WHERE pending_plan_id IS NOT NULL", nil, &stats.PendingSubscriptions},
		{"recent views", "SELECT COUNT(*) FROM product_views WHERE viewed_at >= ?", []any{now.Add(-24 * time.Hour)}, &stats.ViewsLast24h},
	}
	for _, c := range counters {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.name, err)
		}
	}
	return &stats, nil
}
