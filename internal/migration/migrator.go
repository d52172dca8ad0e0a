package migration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jogardn/orders-client/internal/mockapi"
	"github.com/jogardn/orders-client/pkg/models"
)

// Migrator copies the orders of one mock store into another, for example
// from a seeded in-memory store into Postgres or between two databases.
type Migrator struct {
	source mockapi.Store
	target mockapi.Store
	logger *logrus.Logger
	config Config
}

type Config struct {
	BatchSize   int  `json:"batch_size"`
	Concurrency int  `json:"concurrency"`
	DryRun      bool `json:"dry_run"`
	// SkipExisting leaves orders already in the target untouched. When false
	// they are overwritten with the source version.
	SkipExisting bool `json:"skip_existing"`
}

type Result struct {
	TotalOrders int           `json:"total_orders"`
	Copied      int           `json:"copied"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Duration    time.Duration `json:"duration"`
	Errors      []OrderError  `json:"errors"`
	Statistics  Statistics    `json:"statistics"`
	DryRun      bool          `json:"dry_run"`
}

type OrderError struct {
	OrderID string `json:"order_id"`
	Error   string `json:"error"`
}

type Statistics struct {
	OrdersPerSecond float64 `json:"orders_per_second"`
	// Volume sums the copied order amounts per currency in major units.
	Volume map[string]decimal.Decimal `json:"volume"`
	// LargestOrders names the largest copied order per currency. Amounts in
	// different currencies are never compared.
	LargestOrders map[string]string `json:"largest_orders,omitempty"`
}

func NewMigrator(source, target mockapi.Store, logger *logrus.Logger) *Migrator {
	return &Migrator{
		source: source,
		target: target,
		logger: logger,
		config: Config{
			BatchSize:    50,
			Concurrency:  4,
			SkipExisting: true,
		},
	}
}

func (m *Migrator) SetConfig(config Config) {
	config.BatchSize = max(config.BatchSize, 1)
	config.Concurrency = max(config.Concurrency, 1)
	m.config = config
	m.logger.WithFields(logrus.Fields{
		"batch_size":    config.BatchSize,
		"concurrency":   config.Concurrency,
		"dry_run":       config.DryRun,
		"skip_existing": config.SkipExisting,
	}).Info("Migration configuration updated")
}

// Migrate copies every source order missing from the target, or every
// source order when SkipExisting is off. Per-order failures are collected in
// the result; only a failure to list either store is returned as an error.
func (m *Migrator) Migrate(ctx context.Context) (*Result, error) {
	start := time.Now()
	m.logger.Info("Starting order migration")

	sourceOrders, err := m.source.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list source orders: %w", err)
	}
	targetOrders, err := m.target.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list target orders: %w", err)
	}

	existing := make(map[string]bool, len(targetOrders))
	for _, order := range targetOrders {
		existing[order.GetID()] = true
	}

	result := &Result{TotalOrders: len(sourceOrders), Errors: []OrderError{}, DryRun: m.config.DryRun}
	var pending []*models.Order
	for _, order := range sourceOrders {
		if existing[order.GetID()] && m.config.SkipExisting {
			result.Skipped++
			continue
		}
		pending = append(pending, order)
	}

	m.logger.WithFields(logrus.Fields{
		"source_count": len(sourceOrders),
		"target_count": len(targetOrders),
		"to_copy":      len(pending),
	}).Info("Orders identified for migration")

	var copied []*models.Order
	if m.config.DryRun {
		m.logger.Info("DRY RUN: no orders are written")
		result.Copied = len(pending)
		copied = pending
	} else {
		copied = m.copyOrders(ctx, pending, existing, result)
	}

	result.Duration = time.Since(start)
	result.Statistics = statistics(copied, result.Duration)

	m.logger.WithFields(logrus.Fields{
		"copied":   result.Copied,
		"failed":   result.Failed,
		"skipped":  result.Skipped,
		"duration": result.Duration,
	}).Info("Migration completed")

	return result, ctx.Err()
}

func (m *Migrator) copyOrders(ctx context.Context, orders []*models.Order, existing map[string]bool, result *Result) []*models.Order {
	var (
		mutex  sync.Mutex
		copied []*models.Order
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.Concurrency)

	for _, batch := range batches(orders, m.config.BatchSize) {
		g.Go(func() error {
			for _, order := range batch {
				if gctx.Err() != nil {
					return nil
				}

				var err error
				if existing[order.GetID()] {
					err = m.target.UpdateOrder(gctx, order)
				} else {
					err = m.target.CreateOrder(gctx, order)
				}

				mutex.Lock()
				if err != nil {
					result.Failed++
					result.Errors = append(result.Errors, OrderError{OrderID: order.GetID(), Error: err.Error()})
					m.logger.WithError(err).WithField("order_id", order.GetID()).Error("Failed to copy order")
				} else {
					result.Copied++
					copied = append(copied, order)
				}
				mutex.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return copied
}

func batches(orders []*models.Order, size int) [][]*models.Order {
	var out [][]*models.Order
	for i := 0; i < len(orders); i += size {
		out = append(out, orders[i:min(i+size, len(orders))])
	}
	return out
}

func statistics(copied []*models.Order, duration time.Duration) Statistics {
	stats := Statistics{Volume: make(map[string]decimal.Decimal)}
	if duration > 0 {
		stats.OrdersPerSecond = float64(len(copied)) / duration.Seconds()
	}

	largest := make(map[string]*models.Order)
	for _, order := range copied {
		money := order.Money()
		stats.Volume[money.Currency] = stats.Volume[money.Currency].Add(money.Decimal())
		if current, ok := largest[money.Currency]; !ok || money.Amount > current.Money().Amount {
			largest[money.Currency] = order
		}
	}
	if len(largest) > 0 {
		stats.LargestOrders = make(map[string]string, len(largest))
		for currency, order := range largest {
			stats.LargestOrders[currency] = order.GetID() + " (" + order.Money().String() + ")"
		}
	}
	return stats
}

// Validate lists both stores again and compares them.
func (m *Migrator) Validate(ctx context.Context) (*Comparison, error) {
	m.logger.Info("Starting post-migration validation")

	sourceOrders, err := m.source.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list source orders: %w", err)
	}
	targetOrders, err := m.target.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list target orders: %w", err)
	}

	comparison := Compare(sourceOrders, targetOrders)

	m.logger.WithFields(logrus.Fields{
		"sync_percentage":   comparison.SyncPercentage,
		"missing_in_target": len(comparison.MissingInTarget),
		"missing_in_source": len(comparison.MissingInSource),
		"mismatches":        len(comparison.Mismatches),
		"in_sync":           comparison.InSync(),
	}).Info("Migration validation completed")

	return comparison, nil
}
