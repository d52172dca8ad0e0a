package mockapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/orders-client/pkg/models"
)

// PostgresStore keeps each order as a JSONB document.
type PostgresStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewPostgresStore connects to dsn, waiting up to attempts*2s for the
// database to come up, and creates the schema.
func NewPostgresStore(ctx context.Context, dsn string, attempts int, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &PostgresStore{db: db, logger: logger}

	for i := 0; ; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if i+1 >= attempts {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.WithField("attempt", i+1).Info("Waiting for database...")
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	logger.Info("Database connection established")

	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS mock_orders (
			id VARCHAR(255) PRIMARY KEY,
			created BIGINT NOT NULL,
			data JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mock_orders_created ON mock_orders(created DESC, id DESC)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateOrder(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	query := `INSERT INTO mock_orders (id, created, data) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, order.GetID(), models.Int64Value(order.Created), data); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM mock_orders WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return decodeOrder(data)
}

func (s *PostgresStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE mock_orders SET data = $2 WHERE id = $1`, order.GetID(), data)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *PostgresStore) ListOrders(ctx context.Context) ([]*models.Order, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM mock_orders ORDER BY created DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		order, err := decodeOrder(data)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
