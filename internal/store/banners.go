package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/01moynul/techxchange-golang/internal/models"
)

const bannerColumns = `id, title, subtitle, image_key, link, is_active, created_at`

func scanBanner(row rowScanner) (*models.PromotionBanner, error) {
	var (
		b                            models.PromotionBanner
		title, subtitle, image, link sql.NullString
	)
	if err := row.Scan(&b.ID, &title, &subtitle, &image, &link, &b.IsActive, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.Title = stringPtr(title)
	b.Subtitle = stringPtr(subtitle)
	b.ImageKey = stringPtr(image)
	b.Link = stringPtr(link)
	return &b, nil
}

func (s *Store) CreateBanner(ctx context.Context, b *models.PromotionBanner) error {
	b.CreatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO promotion_banners (title, subtitle, image_key, link, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, b.Title, b.Subtitle, b.ImageKey, b.Link, b.IsActive, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert banner: %w", err)
	}
	b.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetBanner(ctx context.Context, id int64) (*models.PromotionBanner, error) {
	b, err := scanBanner(s.db.QueryRowContext(ctx, "SELECT "+bannerColumns+" FROM promotion_banners WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// ListBanners returns banners newest first. limit <= 0 means no limit.
func (s *Store) ListBanners(ctx context.Context, activeOnly bool, limit int) ([]models.PromotionBanner, error) {
	query := "SELECT " + bannerColumns + " FROM promotion_banners"
	if activeOnly {
		query += " WHERE is_active = TRUE"
	}
	query += " ORDER BY created_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list banners: %w", err)
	}
	defer rows.Close()

	banners := []models.PromotionBanner{}
	for rows.Next() {
		b, err := scanBanner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan banner: %w", err)
		}
		banners = append(banners, *b)
	}
	return banners, rows.Err()
}

func (s *Store) DeleteBanner(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM promotion_banners WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete banner: %w", err)
	}
	return checkAffected(res)
}
