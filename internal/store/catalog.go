package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/techxchange-golang/internal/models"
)

//
// --- Categories ---
//

const categoryColumns = `id, name, slug, image_key, include_in_home, is_active, created_by, updated_by, created_at, updated_at`

func scanCategory(row rowScanner) (*models.Category, error) {
	var (
		c         models.Category
		imageKey  sql.NullString
		createdBy sql.NullInt64
		updatedBy sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &imageKey, &c.IncludeInHome, &c.IsActive,
		&createdBy, &updatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ImageKey = stringPtr(imageKey)
	c.CreatedBy = int64Ptr(createdBy)
	c.UpdatedBy = int64Ptr(updatedBy)
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, slug, image_key, include_in_home, is_active, created_by, updated_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Slug, c.ImageKey, c.IncludeInHome, c.IsActive, c.CreatedBy, c.CreatedBy, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert category: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = now, now
	c.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	c, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE slug = ?", slug)
	c, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// ListCategories returns categories by name. homeOnly restricts the result
// to active categories flagged for the home page.
func (s *Store) ListCategories(ctx context.Context, activeOnly, homeOnly bool) ([]models.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories"
	var where []string
	if activeOnly || homeOnly {
		where = append(where, "is_active = TRUE")
	}
	if homeOnly {
		where = append(where, "include_in_home = TRUE")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return checkAffected(res)
}

func (s *Store) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM categories WHERE slug = ?)", slug).Scan(&exists)
	return exists, err
}

//
// --- Products ---
//

const productColumns = `
	p.id, p.name, p.category_id, p.slug, p.brand, p.specification, p.description,
	p.is_active, p.created_by, p.updated_by, p.created_at, p.updated_at,
	c.name, c.slug`

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p         models.Product
		updatedBy sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &p.Slug, &p.Brand, &p.Specification, &p.Description,
		&p.IsActive, &p.CreatedBy, &updatedBy, &p.CreatedAt, &p.UpdatedAt,
		&p.CategoryName, &p.CategorySlug); err != nil {
		return nil, err
	}
	p.UpdatedBy = int64Ptr(updatedBy)
	p.Images = []models.ProductImage{}
	return &p, nil
}

func (s *Store) ProductSlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE slug = ?)", slug).Scan(&exists)
	return exists, err
}

// CreateProduct inserts the product and any images already attached to it.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	return s.WithTx(ctx, func(tx *Store) error {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}
		p.UpdatedAt = p.CreatedAt

		res, err := tx.db.ExecContext(ctx, `
			INSERT INTO products (name, category_id, slug, brand, specification, description, is_active, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Name, p.CategoryID, p.Slug, p.Brand, p.Specification, p.Description, p.IsActive, p.CreatedBy, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert product: %w", err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("product id: %w", err)
		}

		for i := range p.Images {
			p.Images[i].ProductID = p.ID
			if err := tx.AddProductImage(ctx, &p.Images[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) AddProductImage(ctx context.Context, img *models.ProductImage) error {
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO product_images (product_id, object_key, is_default, created_at)
		VALUES (?, ?, ?, ?)`, img.ProductID, img.ObjectKey, img.IsDefault, img.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert product image: %w", err)
	}
	img.ID, err = res.LastInsertId()
	return err
}

// ListProductImages returns the images of the product, default first.
func (s *Store) ListProductImages(ctx context.Context, productID int64) ([]models.ProductImage, error) {
	byProduct, err := s.imagesFor(ctx, []int64{productID})
	if err != nil {
		return nil, err
	}
	return byProduct[productID], nil
}

func (s *Store) imagesFor(ctx context.Context, productIDs []int64) (map[int64][]models.ProductImage, error) {
	out := make(map[int64][]models.ProductImage, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(productIDs)), ",")
	args := make([]any, len(productIDs))
	for i, id := range productIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, object_key, is_default, created_at
		FROM product_images
		WHERE product_id IN (`+placeholders+`)
		ORDER BY is_default DESC, created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.ObjectKey, &img.IsDefault, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		out[img.ProductID] = append(out[img.ProductID], img)
	}
	return out, rows.Err()
}

func (s *Store) attachImages(ctx context.Context, products []models.Product) error {
	ids := make([]int64, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	byProduct, err := s.imagesFor(ctx, ids)
	if err != nil {
		return err
	}
	for i := range products {
		if imgs, ok := byProduct[products[i].ID]; ok {
			products[i].Images = imgs
		}
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFound(err)
	}
	imgs, err := s.ListProductImages(ctx, id)
	if err != nil {
		return nil, err
	}
	if imgs != nil {
		p.Images = imgs
	}
	return p, nil
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachImages(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// ListProducts returns active products newest first. Query matches name,
// brand, specification, description or category name.
func (s *Store) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.is_active = TRUE`
	var args []any
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		query += ` AND (p.name LIKE ? OR p.brand LIKE ? OR p.specification LIKE ?
			OR p.description LIKE ? OR c.name LIKE ?)`
		args = append(args, like, like, like, like, like)
	}
	if f.CategorySlug != "" {
		query += " AND c.slug = ?"
		args = append(args, f.CategorySlug)
	}
	query += " ORDER BY p.created_at DESC, p.id DESC"
	return s.queryProducts(ctx, query, args...)
}

func (s *Store) ListProductsByOwner(ctx context.Context, userID int64) ([]models.Product, error) {
	return s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.created_by = ?
		ORDER BY p.created_at DESC, p.id DESC`, userID)
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return checkAffected(res)
}

// CountProductsSince counts products the user created at or after since.
func (s *Store) CountProductsSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE created_by = ? AND created_at >= ?", userID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}
