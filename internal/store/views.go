package store

import (
	"context"
	"fmt"
	"time"

	"github.com/01moynul/techxchange-golang/internal/models"
)

func (s *Store) HasViewed(ctx context.Context, userID, productID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM product_views WHERE user_id = ? AND product_id = ?)",
		userID, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check view: %w", err)
	}
	return exists, nil
}

// CountViewsSince counts the user's view rows refreshed at or after since.
func (s *Store) CountViewsSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM product_views WHERE user_id = ? AND viewed_at >= ?", userID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count views: %w", err)
	}
	return n, nil
}

// UpsertView records a view, refreshing viewed_at if the user already
// opened the product.
func (s *Store) UpsertView(ctx context.Context, userID, productID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_views (user_id, product_id, viewed_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE viewed_at = VALUES(viewed_at)`, userID, productID, at)
	if err != nil {
		return fmt.Errorf("upsert view: %w", err)
	}
	return nil
}

// ViewedProducts lists what the user opened at or after since, latest first.
// A zero since returns the full history.
func (s *Store) ViewedProducts(ctx context.Context, userID int64, since time.Time) ([]models.ViewedProduct, error) {
	query := `
		SELECT ` + productColumns + `, v.viewed_at
		FROM product_views v
		JOIN products p ON p.id = v.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE v.user_id = ?`
	args := []any{userID}
	if !since.IsZero() {
		query += " AND v.viewed_at >= ?"
		args = append(args, since)
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY v.viewed_at DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("list viewed products: %w", err)
	}
	defer rows.Close()

	viewed := []models.ViewedProduct{}
	for rows.Next() {
		var vp models.ViewedProduct
		p, err := scanProduct(scanFunc(func(dest ...any) error {
			return rows.Scan(append(dest, &vp.ViewedAt)...)
		}))
		if err != nil {
			return nil, fmt.Errorf("scan viewed product: %w", err)
		}
		vp.Product = *p
		viewed = append(viewed, vp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	products := make([]models.Product, len(viewed))
	for i := range viewed {
		products[i] = viewed[i].Product
	}
	if err := s.attachImages(ctx, products); err != nil {
		return nil, err
	}
	for i := range viewed {
		viewed[i].Product = products[i]
	}
	return viewed, nil
}

// ProductViewers groups, per product owned by ownerID, the users who viewed it.
// Products nobody viewed are left out.
func (s *Store) ProductViewers(ctx context.Context, ownerID int64) ([]models.ProductViewers, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.slug, u.id, u.email, u.first_name, u.last_name
		FROM product_views v
		JOIN products p ON p.id = v.product_id
		JOIN users u ON u.id = v.user_id
		WHERE p.created_by = ?
		ORDER BY p.created_at DESC, p.id DESC, v.viewed_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list product viewers: %w", err)
	}
	defer rows.Close()

	var (
		out   []models.ProductViewers
		index = map[int64]int{}
	)
	for rows.Next() {
		var (
			p models.Product
			u models.User
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &u.ID, &u.Email, &u.FirstName, &u.LastName); err != nil {
			return nil, fmt.Errorf("scan product viewer: %w", err)
		}
		i, ok := index[p.ID]
		if !ok {
			p.Images = []models.ProductImage{}
			out = append(out, models.ProductViewers{Product: p})
			i = len(out) - 1
			index[p.ID] = i
		}
		out[i].Viewers = append(out[i].Viewers, u)
	}
	return out, rows.Err()
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }
