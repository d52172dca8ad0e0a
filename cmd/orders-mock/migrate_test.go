package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jogardn/orders-client/internal/config"
	"github.com/jogardn/orders-client/internal/migration"
	"github.com/jogardn/orders-client/internal/mockapi"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestMigrateSeededSourceIntoStore(t *testing.T) {
	ctx := context.Background()
	source, err := openSource(ctx, "", 8, &config.Config{}, quietLogger())
	require.NoError(t, err)

	target := mockapi.NewMemoryStore()
	out := &bytes.Buffer{}
	require.NoError(t, migrate(ctx, source, target, migration.Config{BatchSize: 3, Concurrency: 2, SkipExisting: true}, quietLogger(), out))

	var report struct {
		Result     migration.Result     `json:"result"`
		Validation migration.Comparison `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 8, report.Result.Copied)
	assert.Equal(t, 8, report.Validation.Matches)
	assert.Empty(t, report.Validation.MissingInTarget)

	orders, err := target.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 8)
}

func TestMigrateDryRunSkipsValidation(t *testing.T) {
	ctx := context.Background()
	source, err := openSource(ctx, "", 2, &config.Config{}, quietLogger())
	require.NoError(t, err)

	out := &bytes.Buffer{}
	require.NoError(t, migrate(ctx, source, mockapi.NewMemoryStore(), migration.Config{DryRun: true}, quietLogger(), out))
	assert.NotContains(t, out.String(), `"validation"`)
	assert.Contains(t, out.String(), `"dry_run": true`)
}

func TestRunMigrateRequiresTarget(t *testing.T) {
	err := runMigrate(context.Background(), &config.Config{}, quietLogger(), nil, &bytes.Buffer{})
	assert.ErrorContains(t, err, "-to is required")
}
