package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimeshabuddhika/checkout-service/pkg"
	"github.com/nimeshabuddhika/checkout-service/pkg/database"
	"github.com/nimeshabuddhika/checkout-service/pkg/models"
)

const orderColumns = `id, session_id, amount, currency, status, payment_status, created, metadata, updated_at`

type OrderRepository interface {
	// Create inserts a new order in status created.
	Create(ctx context.Context, q database.Querier, order models.Order) (pgconn.CommandTag, error)
	// MarkPaid moves the order for sessionID to paid and records the provider payment status.
	// found is false when no order carries sessionID; nothing is written in that case.
	MarkPaid(ctx context.Context, q database.Querier, sessionID string, paymentStatus string) (order models.Order, found bool, err error)
	// FindBySessionID returns pgx.ErrNoRows when no order carries sessionID.
	FindBySessionID(ctx context.Context, q database.Querier, sessionID string) (models.Order, error)
}

type OrderRepositoryImpl struct {
}

func NewOrderRepository() OrderRepository {
	return &OrderRepositoryImpl{}
}

func (o OrderRepositoryImpl) Create(ctx context.Context, q database.Querier, order models.Order) (pgconn.CommandTag, error) {
	metadata, err := encodeMetadata(order.Metadata)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return q.Exec(ctx, `
						INSERT INTO orders (session_id, amount, currency, status, created, metadata)
						VALUES ($1, $2, $3, $4, $5, $6)`,
		order.SessionID,
		order.Amount,
		order.Currency,
		order.Status,
		order.Created,
		metadata,
	)
}

func (o OrderRepositoryImpl) MarkPaid(ctx context.Context, q database.Querier, sessionID string, paymentStatus string) (models.Order, bool, error) {
	row := q.QueryRow(ctx, `
						UPDATE orders SET status = $1, payment_status = $2, updated_at = NOW()
						WHERE session_id = $3
						RETURNING `+orderColumns,
		pkg.OrderStatusPaid,
		paymentStatus,
		sessionID,
	)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, false, nil
	}
	if err != nil {
		return models.Order{}, false, err
	}
	return order, true, nil
}

func (o OrderRepositoryImpl) FindBySessionID(ctx context.Context, q database.Querier, sessionID string) (models.Order, error) {
	row := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE session_id = $1`, sessionID)
	return scanOrder(row)
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		order    models.Order
		status   string
		metadata []byte
	)
	err := row.Scan(
		&order.ID,
		&order.SessionID,
		&order.Amount,
		&order.Currency,
		&status,
		&order.PaymentStatus,
		&order.Created,
		&metadata,
		&order.UpdatedAt,
	)
	if err != nil {
		return models.Order{}, err
	}
	order.Status = pkg.OrderStatus(status)
	if len(metadata) > 0 {
		if err = json.Unmarshal(metadata, &order.Metadata); err != nil {
			return models.Order{}, fmt.Errorf("decode order metadata: %w", err)
		}
	}
	return order, nil
}

func encodeMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode order metadata: %w", err)
	}
	return b, nil
}
