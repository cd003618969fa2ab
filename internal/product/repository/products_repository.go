package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/storage"
)

const productColumns = `id, name, description, price, category, is_active, is_available,
	       availability_override, created_at, updated_at`

type ProductRepository struct {
	db      *sql.DB
	dialect storage.Dialect
}

func NewProductRepository(db *sql.DB, dialect storage.Dialect) *ProductRepository {
	return &ProductRepository{db: db, dialect: dialect}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p           domain.Product
		description sql.NullString
		override    sql.NullBool
	)
	err := row.Scan(
		&p.ID, &p.Name, &description, &p.Price, &p.Category, &p.IsActive, &p.IsAvailable,
		&override, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	if override.Valid {
		p.AvailabilityOverride = &override.Bool
	}
	return &p, nil
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("product with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product by id: %w", err)
	}

	return product, nil
}

func (r *ProductRepository) FindByName(ctx context.Context, q storage.Querier, name string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE name = ?`

	product, err := scanProduct(q.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %q not found", name))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product by name: %w", err)
	}

	return product, nil
}

// FindByIDs returns the products that exist among ids, ordered by id.
func (r *ProductRepository) FindByIDs(ctx context.Context, q storage.Querier, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM products WHERE id IN (%s) ORDER BY id`,
		productColumns, storage.Placeholders(len(ids)))

	rows, err := q.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}

func (r *ProductRepository) FindAllIDs(ctx context.Context, q storage.Querier) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying product ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning product id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product ids: %w", err)
	}

	return ids, nil
}

// FindAvailabilityForUpdate returns the stored derived flag of each product
// and locks the rows, so the value compared against is the latest committed
// one rather than the transaction snapshot.
func (r *ProductRepository) FindAvailabilityForUpdate(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]bool, error) {
	flags := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return flags, nil
	}

	query := fmt.Sprintf(`SELECT id, is_available FROM products WHERE id IN (%s) ORDER BY id%s`,
		storage.Placeholders(len(ids)), r.dialect.LockClause())

	rows, err := tx.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("querying product availability: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var available bool
		if err := rows.Scan(&id, &available); err != nil {
			return nil, fmt.Errorf("scanning product availability: %w", err)
		}
		flags[id] = available
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product availability: %w", err)
	}

	return flags, nil
}

func (r *ProductRepository) UpdateAvailability(ctx context.Context, q storage.Querier, id int64, available bool, updatedAt time.Time) error {
	query := `UPDATE products SET is_available = ?, updated_at = ? WHERE id = ?`

	if _, err := q.ExecContext(ctx, query, available, updatedAt, id); err != nil {
		return fmt.Errorf("updating product availability: %w", err)
	}

	return nil
}

// SetOverride stores the operator override; nil clears it.
func (r *ProductRepository) SetOverride(ctx context.Context, id int64, override *bool, updatedAt time.Time) error {
	query := `UPDATE products SET availability_override = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, override, updatedAt, id)
	if err != nil {
		return fmt.Errorf("updating availability override: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("product with id %d not found", id))
	}

	return nil
}

func (r *ProductRepository) Insert(ctx context.Context, tx *sql.Tx, p domain.Product) (int64, error) {
	query := `
		INSERT INTO products (name, description, price, category, is_active, is_available,
		                      availability_override, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query,
		p.Name, p.Description, p.Price, p.Category, p.IsActive, p.IsAvailable,
		p.AvailabilityOverride, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting product: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return lastInsertID, nil
}

// UpdateDetails rewrites the catalog fields. Availability is left alone.
func (r *ProductRepository) UpdateDetails(ctx context.Context, tx *sql.Tx, p domain.Product) error {
	query := `
		UPDATE products
		SET description = ?, price = ?, category = ?, is_active = ?, updated_at = ?
		WHERE id = ?`

	if _, err := tx.ExecContext(ctx, query, p.Description, p.Price, p.Category, p.IsActive, p.UpdatedAt, p.ID); err != nil {
		return fmt.Errorf("updating product: %w", err)
	}

	return nil
}
