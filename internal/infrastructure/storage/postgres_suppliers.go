package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/ports"
)

const (
	suppliersTable = "catalog_suppliers"
	ordersTable    = "supplier_orders"
)

var supplierColumns = []string{
	"id", "owner_id", "name", "country", "status", "quality_score", "breakdown",
	"shipping_days", "feed_url", "feed_type", "auth_mode", "auth_header",
	"auth_token", "auth_username", "auth_password", "last_sync_at", "last_sync_status",
}

// PostgresSuppliers reads suppliers and their order history from Postgres.
type PostgresSuppliers struct {
	db *sql.DB
}

var (
	_ ports.SupplierRegistry = (*PostgresSuppliers)(nil)
	_ ports.OrderHistory     = (*PostgresSuppliers)(nil)
)

// NewPostgresSuppliers wires a sql.DB implementation.
func NewPostgresSuppliers(db *sql.DB) *PostgresSuppliers {
	return &PostgresSuppliers{db: db}
}

// Get returns one supplier.
func (r *PostgresSuppliers) Get(ctx context.Context, id string) (domain.Supplier, error) {
	query, args, err := psql.Select(supplierColumns...).From(suppliersTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Supplier{}, fmt.Errorf("build get supplier: %w", err)
	}

	s, err := scanSupplier(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Supplier{}, fmt.Errorf("get supplier %s: %w", id, domain.ErrSupplierNotFound)
	}
	if err != nil {
		return domain.Supplier{}, fmt.Errorf("get supplier %s: %w", id, err)
	}
	return s, nil
}

// List returns suppliers matching filter ordered by id.
func (r *PostgresSuppliers) List(ctx context.Context, filter domain.SupplierFilter) ([]domain.Supplier, error) {
	q := psql.Select(supplierColumns...).From(suppliersTable).OrderBy("id")
	if filter.OwnerID != "" {
		q = q.Where(sq.Eq{"owner_id": filter.OwnerID})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": string(filter.Status)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list suppliers: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query suppliers: %w", err)
	}
	defer rows.Close()

	var out []domain.Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// UpdateScore stores a supplier's latest score.
func (r *PostgresSuppliers) UpdateScore(ctx context.Context, id string, score domain.SupplierScore) error {
	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	return r.update(ctx, id, "update score", sq.Eq{
		"quality_score": score.Score,
		"breakdown":     string(breakdown),
	})
}

// RecordSync stores the outcome of a sync run.
func (r *PostgresSuppliers) RecordSync(ctx context.Context, id string, at time.Time, state domain.RunState) error {
	return r.update(ctx, id, "record sync", sq.Eq{
		"last_sync_at":     at,
		"last_sync_status": string(state),
	})
}

func (r *PostgresSuppliers) update(ctx context.Context, id, op string, set map[string]any) error {
	query, args, err := psql.Update(suppliersTable).SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, domain.ErrSupplierNotFound)
	}
	return nil
}

// SupplierStats aggregates the supplier's order rows.
func (r *PostgresSuppliers) SupplierStats(ctx context.Context, supplierID string) (domain.OrderStats, error) {
	query, args, err := statsQuery(supplierID)
	if err != nil {
		return domain.OrderStats{}, fmt.Errorf("build stats: %w", err)
	}

	var stats domain.OrderStats
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalOrders,
		&stats.OnTimeOrders,
		&stats.AvgFulfillmentHours,
		&stats.PriceRatio,
		&stats.Complaints,
		&stats.Returns,
		&stats.AvgSupportReplyHours,
	)
	if err != nil {
		return domain.OrderStats{}, fmt.Errorf("supplier stats %s: %w", supplierID, err)
	}
	return stats, nil
}

func statsQuery(supplierID string) (string, []any, error) {
	return psql.Select(
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE on_time)",
		"COALESCE(AVG(fulfillment_hours), 0)",
		"COALESCE(AVG(price_ratio), 0)",
		"COUNT(*) FILTER (WHERE complaint)",
		"COUNT(*) FILTER (WHERE returned)",
		"COALESCE(AVG(support_reply_hours), 0)",
	).From(ordersTable).Where(sq.Eq{"supplier_id": supplierID}).ToSql()
}

func scanSupplier(row rowScanner) (domain.Supplier, error) {
	var (
		s                    domain.Supplier
		status, feedType     string
		authMode, syncStatus string
		breakdown            []byte
		lastSync             sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.Name, &s.Country, &status, &s.QualityScore, &breakdown,
		&s.ShippingDays, &s.FeedURL, &feedType, &authMode, &s.Auth.Header,
		&s.Auth.Token, &s.Auth.Username, &s.Auth.Password, &lastSync, &syncStatus,
	)
	if err != nil {
		return domain.Supplier{}, err
	}

	s.Status = domain.SupplierStatus(status)
	s.FeedType = domain.SourceType(feedType)
	s.Auth.Mode = domain.AuthMode(authMode)
	s.LastSyncStatus = domain.RunState(syncStatus)
	if lastSync.Valid {
		s.LastSyncAt = lastSync.Time.UTC()
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &s.Breakdown); err != nil {
			return domain.Supplier{}, fmt.Errorf("decode breakdown: %w", err)
		}
	}
	return s, nil
}
