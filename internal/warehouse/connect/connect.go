// Package connect builds warehouse adapters from application configuration.
package connect

import (
	"context"
	"fmt"

	"github.com/rowguard-labs/rowguard/internal/config"
	rgerrors "github.com/rowguard-labs/rowguard/internal/errors"
	"github.com/rowguard-labs/rowguard/internal/warehouse"
	"github.com/rowguard-labs/rowguard/internal/warehouse/bigquery"
	"github.com/rowguard-labs/rowguard/internal/warehouse/duckdb"
	"github.com/rowguard-labs/rowguard/internal/warehouse/snowflake"
	"github.com/rowguard-labs/rowguard/internal/warehouse/trino"
)

// Open connects to the backend selected by the configuration. Failures are
// reported as connection failures, which the data layer treats as retryable.
func Open(ctx context.Context, cfg config.WarehouseConfig, table config.TableConfig) (warehouse.Warehouse, error) {
	wh, err := open(ctx, cfg, table)
	if err != nil {
		return nil, rgerrors.NewConnectionFailed(cfg.Backend, err)
	}
	return wh, nil
}

func open(ctx context.Context, cfg config.WarehouseConfig, table config.TableConfig) (warehouse.Warehouse, error) {
	switch cfg.Backend {
	case "trino":
		return trino.NewAdapter(trino.Config{
			Hostname:    cfg.Hostname,
			Port:        cfg.Port,
			HTTPPath:    cfg.HTTPPath,
			AccessToken: cfg.Token,
			User:        cfg.User,
			Catalog:     table.Catalog,
			Schema:      table.Schema,
			SSLMode:     cfg.SSLMode,
		})
	case "snowflake":
		return snowflake.NewAdapter(snowflake.Config{
			Account:   cfg.Account,
			User:      cfg.User,
			Password:  cfg.Password,
			Database:  table.Catalog,
			Schema:    table.Schema,
			Warehouse: cfg.Warehouse,
		})
	case "bigquery":
		bq := bigquery.DefaultConfig()
		bq.ProjectID = cfg.ProjectID
		bq.CredentialsFile = cfg.CredentialsFile
		return bigquery.NewAdapter(ctx, bq)
	case "duckdb":
		return duckdb.NewAdapterWithConfig(duckdb.Config{
			DatabasePath: cfg.Database,
			User:         cfg.User,
		})
	default:
		return nil, fmt.Errorf("connect: unknown warehouse backend %q", cfg.Backend)
	}
}

// Connector returns a warehouse.Connector bound to the configuration,
// suitable for the session's lazy shared handle.
func Connector(cfg config.WarehouseConfig, table config.TableConfig) warehouse.Connector {
	return func(ctx context.Context) (warehouse.Warehouse, error) {
		return Open(ctx, cfg, table)
	}
}
