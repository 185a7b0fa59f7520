package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/weijianfa/ApolloOracle/internal/domain/errors"
	"github.com/weijianfa/ApolloOracle/internal/domain/model"
	"github.com/weijianfa/ApolloOracle/internal/domain/repository"
)

// Pool is the subset of pgxpool.Pool the storage relies on.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   Pool
	logger *slog.Logger
}

type orderRepository struct {
	storage *Storage
}

type eventRepository struct {
	storage *Storage
}

type ledgerRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Events() repository.EventRepository {
	return &eventRepository{storage: s}
}

func (s *Storage) Ledger() repository.LedgerRepository {
	return &ledgerRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            order_id TEXT PRIMARY KEY,
            user_ref TEXT NOT NULL,
            product_kind TEXT NOT NULL,
            status TEXT NOT NULL,
            amount DOUBLE PRECISION NOT NULL,
            currency TEXT NOT NULL,
            requires_enrichment BOOLEAN NOT NULL,
            payment_reference TEXT NOT NULL DEFAULT '',
            user_input JSONB,
            enrichment_data JSONB,
            generated_content TEXT NOT NULL DEFAULT '',
            affiliate_code TEXT NOT NULL DEFAULT '',
            commission_rate DOUBLE PRECISION,
            commission_amount DOUBLE PRECISION,
            refund_pending BOOLEAN NOT NULL DEFAULT FALSE,
            error_message TEXT NOT NULL DEFAULT '',
            last_event_id TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            completed_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS processed_events (
            order_id TEXT NOT NULL,
            event_id TEXT NOT NULL,
            received_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (order_id, event_id)
        )`,
		`CREATE TABLE IF NOT EXISTS commission_ledger (
            id SERIAL PRIMARY KEY,
            order_id TEXT UNIQUE NOT NULL,
            affiliate_code TEXT NOT NULL,
            order_amount DOUBLE PRECISION NOT NULL,
            rate DOUBLE PRECISION NOT NULL,
            amount DOUBLE PRECISION NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_affiliate ON commission_ledger(affiliate_code)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

const orderColumns = `order_id, user_ref, product_kind, status, amount, currency,
            requires_enrichment, payment_reference, user_input, enrichment_data,
            generated_content, affiliate_code, commission_rate, commission_amount,
            refund_pending, error_message, last_event_id, created_at, updated_at, completed_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o              model.Order
		userInput      []byte
		enrichmentData []byte
	)
	err := row.Scan(
		&o.ID, &o.UserRef, &o.ProductKind, &o.Status, &o.Amount, &o.Currency,
		&o.RequiresEnrichment, &o.PaymentReference, &userInput, &enrichmentData,
		&o.GeneratedContent, &o.AffiliateCode, &o.CommissionRate, &o.CommissionAmount,
		&o.RefundPending, &o.ErrorMessage, &o.LastEventID, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	o.UserInput = json.RawMessage(userInput)
	o.EnrichmentData = json.RawMessage(enrichmentData)
	return &o, nil
}

// --- OrderRepository implementation ---

func (r *orderRepository) Create(ctx context.Context, params repository.CreateOrderParams) (*model.Order, error) {
	const query = `INSERT INTO orders (order_id, user_ref, product_kind, status, amount, currency,
                       requires_enrichment, user_input, affiliate_code, commission_rate, commission_amount)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
                   RETURNING created_at, updated_at`
	order := model.Order{
		ID:                 params.ID,
		UserRef:            params.UserRef,
		ProductKind:        params.ProductKind,
		Status:             model.OrderStatusPendingPayment,
		Amount:             params.Amount,
		Currency:           params.Currency,
		RequiresEnrichment: params.RequiresEnrichment,
		UserInput:          params.UserInput,
		AffiliateCode:      params.AffiliateCode,
		CommissionRate:     params.CommissionRate,
		CommissionAmount:   params.CommissionAmount,
	}
	err := r.storage.pool.QueryRow(ctx, query,
		params.ID, params.UserRef, params.ProductKind, model.OrderStatusPendingPayment,
		params.Amount, params.Currency, params.RequiresEnrichment,
		[]byte(params.UserInput), params.AffiliateCode, params.CommissionRate, params.CommissionAmount,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) Transition(ctx context.Context, orderID string, sources []model.OrderStatus, target model.OrderStatus, patch repository.TransitionPatch) (bool, error) {
	const query = `UPDATE orders SET status=$1,
                       payment_reference=COALESCE($2, payment_reference),
                       last_event_id=COALESCE($3, last_event_id),
                       refund_pending=COALESCE($4, refund_pending),
                       error_message=COALESCE($5, error_message),
                       completed_at=COALESCE($6, completed_at),
                       updated_at=NOW()
                   WHERE order_id=$7 AND status=ANY($8)`
	states := make([]string, 0, len(sources))
	for _, s := range sources {
		states = append(states, string(s))
	}
	tag, err := r.storage.pool.Exec(ctx, query,
		target, patch.PaymentReference, patch.LastEventID, patch.RefundPending,
		patch.ErrorMessage, patch.CompletedAt, orderID, states,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *orderRepository) SaveEnrichmentData(ctx context.Context, orderID string, data json.RawMessage) error {
	const query = `UPDATE orders SET enrichment_data=$1, updated_at=NOW() WHERE order_id=$2`
	tag, err := r.storage.pool.Exec(ctx, query, []byte(data), orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) SaveGeneratedContent(ctx context.Context, orderID, content string) error {
	const query = `UPDATE orders SET generated_content=$1, updated_at=NOW() WHERE order_id=$2`
	tag, err := r.storage.pool.Exec(ctx, query, content, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) MarkRefundPending(ctx context.Context, orderID string) error {
	const query = `UPDATE orders SET refund_pending=TRUE, updated_at=NOW()
                   WHERE order_id=$1 AND status='failed'`
	tag, err := r.storage.pool.Exec(ctx, query, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) SelectForRecovery(ctx context.Context, stuckFor time.Duration, limit int) ([]model.Order, error) {
	selectQuery := `SELECT ` + orderColumns + `
                    FROM orders
                    WHERE status IN ('paid', 'generating')
                      AND updated_at < NOW() - $1::interval
                    ORDER BY updated_at
                    LIMIT $2
                    FOR UPDATE SKIP LOCKED`

	var orders []model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectQuery, stuckFor, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return err
			}
			orders = append(orders, *o)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		// Bump updated_at so a claimed order is not rescanned before the
		// stuck threshold elapses again.
		for i := range orders {
			if _, err := tx.Exec(ctx, `UPDATE orders SET updated_at=NOW() WHERE order_id=$1`, orders[i].ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) ExpirePendingPayments(ctx context.Context, olderThan time.Duration, limit int) ([]model.Order, error) {
	const query = `UPDATE orders SET status='failed', error_message='payment timeout', updated_at=NOW()
                   WHERE order_id IN (
                       SELECT order_id FROM orders
                       WHERE status='pending_payment'
                         AND created_at < NOW() - $1::interval
                       ORDER BY created_at
                       LIMIT $2
                       FOR UPDATE SKIP LOCKED
                   )
                   RETURNING ` + orderColumns

	rows, err := r.storage.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expired, nil
}

// --- EventRepository implementation ---

func (r *eventRepository) Admit(ctx context.Context, orderID, eventID string) (bool, error) {
	const query = `INSERT INTO processed_events (order_id, event_id) VALUES ($1, $2)
                   ON CONFLICT DO NOTHING`
	tag, err := r.storage.pool.Exec(ctx, query, orderID, eventID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// --- LedgerRepository implementation ---

func (r *ledgerRepository) Credit(ctx context.Context, entry model.CommissionEntry) (bool, error) {
	const query = `INSERT INTO commission_ledger (order_id, affiliate_code, order_amount, rate, amount)
                   VALUES ($1, $2, $3, $4, $5)
                   ON CONFLICT (order_id) DO NOTHING`
	tag, err := r.storage.pool.Exec(ctx, query,
		entry.OrderID, entry.AffiliateCode, entry.OrderAmount, entry.Rate, entry.Amount,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ledgerRepository) TotalSales(ctx context.Context, affiliateCode string) (float64, error) {
	const query = `SELECT COALESCE(SUM(order_amount), 0) FROM commission_ledger WHERE affiliate_code=$1`
	var total float64
	if err := r.storage.pool.QueryRow(ctx, query, affiliateCode).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
