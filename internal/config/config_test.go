package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTableConfig_Qualified(t *testing.T) {
	table := TableConfig{Catalog: "analytics", Schema: "app", Name: "user_data"}
	if got := table.Qualified(); got != "analytics.app.user_data" {
		t.Errorf("unexpected qualified name: %q", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Warehouse.Backend != "duckdb" {
		t.Errorf("expected duckdb default backend, got %q", cfg.Warehouse.Backend)
	}
	if cfg.Table.Qualified() != "main.default.user_data" {
		t.Errorf("unexpected default table: %q", cfg.Table.Qualified())
	}
	if cfg.Audit.Enabled {
		t.Error("audit persistence must be off by default")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
warehouse:
  backend: trino
  hostname: warehouse.example.com
  httpPath: /sql/1.0/endpoints/abc
  token: secret
table:
  catalog: analytics
  schema: app
  name: user_data
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Warehouse.Backend != "trino" || cfg.Warehouse.Hostname != "warehouse.example.com" {
		t.Errorf("file values not applied: %+v", cfg.Warehouse)
	}
	if cfg.Table.Qualified() != "analytics.app.user_data" {
		t.Errorf("unexpected table: %q", cfg.Table.Qualified())
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("defaults not preserved: %d", cfg.Server.Port)
	}
}

func TestLoad_LegacyEnvironmentNames(t *testing.T) {
	t.Setenv("WAREHOUSE_SERVER_HOSTNAME", "env.example.com")
	t.Setenv("WAREHOUSE_HTTP_PATH", "/sql/1.0/endpoints/env")
	t.Setenv("WAREHOUSE_TOKEN", "env-token")
	t.Setenv("CATALOG_NAME", "envcat")
	t.Setenv("SCHEMA_NAME", "envschema")
	t.Setenv("TABLE_NAME", "envtable")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Warehouse.Hostname != "env.example.com" || cfg.Warehouse.Token != "env-token" {
		t.Errorf("legacy env not honored: %+v", cfg.Warehouse)
	}
	if cfg.Table.Qualified() != "envcat.envschema.envtable" {
		t.Errorf("legacy table env not honored: %q", cfg.Table.Qualified())
	}
}

func TestMissingConnectionSettings(t *testing.T) {
	cfg := DefaultConfig()
	if missing := cfg.MissingConnectionSettings(); len(missing) != 0 {
		t.Errorf("duckdb needs no connection settings, got %v", missing)
	}

	cfg.Warehouse.Backend = "trino"
	cfg.Warehouse.Hostname = ""
	cfg.Warehouse.HTTPPath = ""
	cfg.Warehouse.Token = ""
	if missing := cfg.MissingConnectionSettings(); len(missing) != 3 {
		t.Errorf("expected hostname, httpPath and token reported, got %v", missing)
	}

	cfg.Warehouse.Hostname = "h"
	cfg.Warehouse.HTTPPath = "/p"
	cfg.Warehouse.Token = "t"
	if missing := cfg.MissingConnectionSettings(); len(missing) != 0 {
		t.Errorf("expected complete trino config, got %v", missing)
	}

	cfg.Warehouse.Backend = "snowflake"
	cfg.Warehouse.Account = ""
	cfg.Warehouse.Password = ""
	cfg.Warehouse.Token = ""
	if missing := cfg.MissingConnectionSettings(); len(missing) != 2 {
		t.Errorf("expected account and password reported, got %v", missing)
	}

	cfg.Warehouse.Backend = "bigquery"
	cfg.Warehouse.ProjectID = ""
	if missing := cfg.MissingConnectionSettings(); len(missing) != 1 {
		t.Errorf("expected projectId reported, got %v", missing)
	}
}

func TestAuditConnectionString(t *testing.T) {
	audit := AuditConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "rowguard", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=rowguard sslmode=disable"
	if got := audit.ConnectionString(); got != want {
		t.Errorf("unexpected connection string:\n got %q\nwant %q", got, want)
	}
}
