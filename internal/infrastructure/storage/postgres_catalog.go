package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/ports"
)

const productsTable = "catalog_products"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var productColumns = []string{
	"id", "identity_key", "owner_id", "supplier_id", "sku", "title", "description",
	"price", "original_price", "cost", "currency", "images", "videos", "stock",
	"category", "brand", "variants", "reviews", "status", "quality_score",
	"supplier_score", "source_type", "source_url", "imported_at", "updated_at",
}

// Columns a replace overwrites; id and imported_at survive.
var replaceColumns = append(append([]string{}, productColumns[2:23]...), "updated_at")

// PostgresCatalog persists canonical products into Postgres.
type PostgresCatalog struct {
	db *sql.DB
}

var _ ports.CatalogStore = (*PostgresCatalog)(nil)

// NewPostgresCatalog wires a sql.DB implementation.
func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

// Read returns the product stored under key, or nil when there is none.
func (r *PostgresCatalog) Read(ctx context.Context, key domain.IdentityKey) (*domain.Product, error) {
	query, args, err := psql.Select(productColumns...).
		From(productsTable).
		Where(sq.Eq{"identity_key": key.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build read: %w", err)
	}

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read product %s: %w", key, err)
	}
	return &p, nil
}

// Upsert writes product, resolving an identity-key collision with policy.
func (r *PostgresCatalog) Upsert(ctx context.Context, product domain.Product, policy domain.ConflictPolicy) error {
	query, args, err := upsertQuery(prepareInsert(product), policy)
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert product %s: %w", domain.KeyOf(product), err)
	}
	return nil
}

// BulkInsert copies products into a staging table and moves over the rows
// whose identity key is free.
func (r *PostgresCatalog) BulkInsert(ctx context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const staging = "staging_catalog_products"
	createStaging := fmt.Sprintf(`CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP`, staging, productsTable)
	if _, err := tx.ExecContext(ctx, createStaging); err != nil {
		return 0, fmt.Errorf("create staging table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(staging, productColumns...))
	if err != nil {
		return 0, fmt.Errorf("prepare copy: %w", err)
	}
	for _, p := range products {
		values, err := productValues(prepareInsert(p))
		if err != nil {
			_ = stmt.Close()
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("copy product %s: %w", domain.KeyOf(p), err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return 0, fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("close copy: %w", err)
	}

	cols := strings.Join(productColumns, ", ")
	move := fmt.Sprintf(`INSERT INTO %s (%s)
		SELECT DISTINCT ON (identity_key) %s FROM %s ORDER BY identity_key
		ON CONFLICT (identity_key) DO NOTHING`, productsTable, cols, cols, staging)
	res, err := tx.ExecContext(ctx, move)
	if err != nil {
		return 0, fmt.Errorf("move staged products: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk insert: %w", err)
	}
	return int(inserted), nil
}

// List returns matching products ordered by identity key.
func (r *PostgresCatalog) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	query, args, err := listQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func upsertQuery(p domain.Product, policy domain.ConflictPolicy) (string, []any, error) {
	values, err := productValues(p)
	if err != nil {
		return "", nil, err
	}

	var suffix string
	switch policy {
	case domain.ConflictSkip:
		suffix = "ON CONFLICT (identity_key) DO NOTHING"
	case domain.ConflictUpdate:
		suffix = `ON CONFLICT (identity_key) DO UPDATE SET
			price = COALESCE(EXCLUDED.price, catalog_products.price),
			cost = COALESCE(EXCLUDED.cost, catalog_products.cost),
			stock = EXCLUDED.stock,
			status = COALESCE(NULLIF(EXCLUDED.status, ''), catalog_products.status),
			updated_at = EXCLUDED.updated_at`
	default:
		sets := make([]string, 0, len(replaceColumns))
		for _, col := range replaceColumns {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
		suffix = "ON CONFLICT (identity_key) DO UPDATE SET " + strings.Join(sets, ", ")
	}

	return psql.Insert(productsTable).
		Columns(productColumns...).
		Values(values...).
		Suffix(suffix).
		ToSql()
}

func listQuery(filter domain.ProductFilter) (string, []any, error) {
	q := psql.Select(productColumns...).From(productsTable).OrderBy("identity_key")
	if filter.OwnerID != "" {
		q = q.Where("lower(trim(owner_id)) = ?", domain.NormalizeKeyPart(filter.OwnerID))
	}
	if filter.SupplierID != "" {
		q = q.Where("lower(trim(supplier_id)) = ?", domain.NormalizeKeyPart(filter.SupplierID))
	}
	if filter.Category != "" {
		q = q.Where("lower(trim(category)) = ?", domain.NormalizeKeyPart(filter.Category))
	}
	if len(filter.IDs) > 0 {
		q = q.Where(sq.Eq{"id": filter.IDs})
	}
	return q.ToSql()
}

// productValues lines up p with productColumns. JSON goes in as text so
// the copy protocol does not encode it as bytea.
func productValues(p domain.Product) ([]any, error) {
	variants, err := json.Marshal(nonNil(p.Variants))
	if err != nil {
		return nil, fmt.Errorf("marshal variants: %w", err)
	}
	reviews, err := json.Marshal(nonNil(p.Reviews))
	if err != nil {
		return nil, fmt.Errorf("marshal reviews: %w", err)
	}
	return []any{
		p.ID, domain.KeyOf(p).String(), p.OwnerID, p.SupplierID, p.SKU, p.Title, p.Description,
		p.Price, p.OriginalPrice, p.Cost, p.Currency,
		pq.StringArray(nonNil(p.Images)), pq.StringArray(nonNil(p.Videos)), p.Stock,
		p.Category, p.Brand, string(variants), string(reviews), string(p.Status), p.QualityScore,
		p.SupplierScore, string(p.SourceType), p.SourceURL, p.ImportedAt, p.UpdatedAt,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p                          domain.Product
		key, status, sourceType    string
		price, originalPrice, cost sql.NullFloat64
		images, videos             pq.StringArray
		variants, reviews          []byte
		importedAt, updatedAt      time.Time
	)
	err := row.Scan(
		&p.ID, &key, &p.OwnerID, &p.SupplierID, &p.SKU, &p.Title, &p.Description,
		&price, &originalPrice, &cost, &p.Currency, &images, &videos, &p.Stock,
		&p.Category, &p.Brand, &variants, &reviews, &status, &p.QualityScore,
		&p.SupplierScore, &sourceType, &p.SourceURL, &importedAt, &updatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}

	p.Price = nullFloat(price)
	p.OriginalPrice = nullFloat(originalPrice)
	p.Cost = nullFloat(cost)
	p.Status = domain.ProductStatus(status)
	p.SourceType = domain.SourceType(sourceType)
	p.ImportedAt = importedAt.UTC()
	p.UpdatedAt = updatedAt.UTC()
	if len(images) > 0 {
		p.Images = []string(images)
	}
	if len(videos) > 0 {
		p.Videos = []string(videos)
	}
	if err := json.Unmarshal(variants, &p.Variants); err != nil {
		return domain.Product{}, fmt.Errorf("decode variants: %w", err)
	}
	if err := json.Unmarshal(reviews, &p.Reviews); err != nil {
		return domain.Product{}, fmt.Errorf("decode reviews: %w", err)
	}
	if len(p.Variants) == 0 {
		p.Variants = nil
	}
	if len(p.Reviews) == 0 {
		p.Reviews = nil
	}
	return p, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return domain.Float(v.Float64)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
