package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nopfarsi/sizpay-gateway/internal/application"
	"github.com/nopfarsi/sizpay-gateway/internal/domain"
)

const orderColumns = `id, amount, payment_state, authorization_token, created_at, updated_at, paid_at`

// OrderRepository implements application.OrderStore on PostgreSQL. The
// token-attach write commits before the handler redirects the buyer, so any
// later verifier invocation reads the attached token (read-after-write on
// the same pool).
type OrderRepository struct {
	pool *pgxpool.Pool
	q    Executor
}

var _ application.OrderStore = (*OrderRepository)(nil)

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{pool: db.Pool, q: db.Pool}
}

// WithTx executes fn against a transaction-scoped repository. Row locks
// taken inside fn are held until it returns.
func (r *OrderRepository) WithTx(ctx context.Context, fn func(application.OrderStore) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&OrderRepository{pool: r.pool, q: tx})
	})
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (amount, payment_state, authorization_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt
	if order.State == "" {
		order.State = domain.StatePending
	}

	err := r.q.QueryRow(ctx, query,
		order.Amount,
		order.State,
		order.AuthorizationToken,
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.q.QueryRow(ctx, query, id), id)
}

// GetOrderForUpdate retrieves an order with a row-level lock.
func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return scanOrder(r.q.QueryRow(ctx, query, id), id)
}

func (r *OrderRepository) AttachToken(ctx context.Context, id int64, token string) error {
	query := `
		UPDATE orders
		SET authorization_token = $2, updated_at = $3
		WHERE id = $1 AND payment_state = $4
	`

	tag, err := r.q.Exec(ctx, query, id, token, time.Now().UTC(), domain.StatePending)
	if err != nil {
		return fmt.Errorf("failed to attach token to order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewOrderNotPendingError(id)
	}
	return nil
}

func (r *OrderRepository) ClearToken(ctx context.Context, id int64) error {
	query := `
		UPDATE orders
		SET authorization_token = '', updated_at = $2
		WHERE id = $1 AND payment_state = $3
	`

	tag, err := r.q.Exec(ctx, query, id, time.Now().UTC(), domain.StatePending)
	if err != nil {
		return fmt.Errorf("failed to clear token on order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewOrderNotPendingError(id)
	}
	return nil
}

// FinalizeOrder is the compare-and-swap that serializes concurrent
// callbacks: the state guard means only one caller can move a pending order
// to a terminal state, everyone else gets an invalid-transition error.
func (r *OrderRepository) FinalizeOrder(ctx context.Context, id int64, state domain.PaymentState) error {
	if state != domain.StatePaid && state != domain.StateFailed {
		return domain.NewInvalidTransitionError(domain.StatePending, state)
	}

	query := `
		UPDATE orders
		SET payment_state = $2,
		    authorization_token = '',
		    updated_at = $3,
		    paid_at = CASE WHEN $2 = $4 THEN $3 ELSE paid_at END
		WHERE id = $1 AND payment_state = $5
	`

	tag, err := r.q.Exec(ctx, query, id, state, time.Now().UTC(), domain.StatePaid, domain.StatePending)
	if err != nil {
		return fmt.Errorf("failed to finalize order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewOrderNotPendingError(id)
	}
	return nil
}

func (r *OrderRepository) AppendNote(ctx context.Context, note *domain.OrderNote) error {
	query := `
		INSERT INTO order_notes (id, order_id, note, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.q.Exec(ctx, query, note.ID, note.OrderID, note.Note, note.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append note to order %d: %w", note.OrderID, err)
	}
	return nil
}

func (r *OrderRepository) ListNotes(ctx context.Context, orderID int64) ([]*domain.OrderNote, error) {
	query := `
		SELECT id, order_id, note, created_at
		FROM order_notes
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes for order %d: %w", orderID, err)
	}
	defer rows.Close()

	var notes []*domain.OrderNote
	for rows.Next() {
		var n domain.OrderNote
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Note, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

func (r *OrderRepository) FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE payment_state = $1
		  AND authorization_token <> ''
		  AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3
	`

	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := r.q.Query(ctx, query, domain.StatePending, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale pending orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row, id int64) (*domain.Order, error) {
	o, err := scanOrderRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewOrderNotFoundError(id)
		}
		return nil, err
	}
	return o, nil
}

func scanOrderRow(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.Amount,
		&o.State,
		&o.AuthorizationToken,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
