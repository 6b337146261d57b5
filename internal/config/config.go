// Package config provides configuration loading for the rowguard CLI and server.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	// Warehouse is the backing warehouse connection configuration.
	Warehouse WarehouseConfig `mapstructure:"warehouse"`

	// Table addresses the single managed table.
	Table TableConfig `mapstructure:"table"`

	// SchemaFile is the path to the yaml form schema describing the
	// managed table's domain columns.
	SchemaFile string `mapstructure:"schemaFile"`

	// Audit configuration (optional PostgreSQL persistence).
	Audit AuditConfig `mapstructure:"audit"`

	// Logging configuration.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server configuration (for rowguardd).
	Server ServerConfig `mapstructure:"server"`
}

// WarehouseConfig holds warehouse connection configuration.
// Backend selects the adapter; the remaining fields are interpreted
// by the selected adapter.
type WarehouseConfig struct {
	// Backend is one of: trino, snowflake, bigquery, duckdb.
	Backend string `mapstructure:"backend"`

	// Hostname is the warehouse server hostname.
	Hostname string `mapstructure:"hostname"`

	// Port is the warehouse server port.
	Port int `mapstructure:"port"`

	// HTTPPath is the warehouse HTTP endpoint path, for backends that
	// route by path (hosted SQL warehouses).
	HTTPPath string `mapstructure:"httpPath"`

	// Token is the access token for the warehouse.
	Token string `mapstructure:"token"`

	// User is the principal used to open the connection.
	User string `mapstructure:"user"`

	// Snowflake-specific settings.
	Account   string `mapstructure:"account"`
	Warehouse string `mapstructure:"warehouse"`
	Password  string `mapstructure:"password"`

	// BigQuery-specific settings.
	ProjectID       string `mapstructure:"projectId"`
	CredentialsFile string `mapstructure:"credentialsFile"`

	// DuckDB-specific settings.
	Database string `mapstructure:"database"`

	// SSLMode controls TLS: "", "disable", "require".
	SSLMode string `mapstructure:"sslmode"`
}

// TableConfig holds the three independently configured name components of
// the managed table. Statements always address the table as
// catalog.schema.table, assembled from these verbatim.
type TableConfig struct {
	Catalog string `mapstructure:"catalog"`
	Schema  string `mapstructure:"schema"`
	Name    string `mapstructure:"name"`
}

// Qualified returns the fully-qualified catalog.schema.table name.
func (t TableConfig) Qualified() string {
	return fmt.Sprintf("%s.%s.%s", t.Catalog, t.Schema, t.Name)
}

// AuditConfig holds PostgreSQL audit persistence configuration.
type AuditConfig struct {
	// Enabled turns on persistent audit logging.
	Enabled bool `mapstructure:"enabled"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnectionString returns the lib/pq connection string for the audit store.
func (a AuditConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		a.Host, a.Port, a.User, a.Password, a.Name, a.SSLMode)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"readTimeout"`
	WriteTimeout string `mapstructure:"writeTimeout"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Warehouse: WarehouseConfig{
			Backend:  "duckdb",
			Database: ":memory:",
			Port:     443,
			SSLMode:  "require",
		},
		Table: TableConfig{
			Catalog: "main",
			Schema:  "default",
			Name:    "user_data",
		},
		SchemaFile: "",
		Audit: AuditConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     5432,
			User:     "rowguard",
			Password: "rowguard_dev",
			Name:     "rowguard",
			SSLMode:  "disable",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  "30s",
			WriteTimeout: "30s",
		},
	}
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".rowguard"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	v.SetEnvPrefix("ROWGUARD")
	v.AutomaticEnv()

	// The original deployment configured the warehouse through bare
	// environment variables; honor those names as aliases.
	bindLegacyEnv(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file is optional
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	// Unmarshal
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

// MissingConnectionSettings reports which hosted-warehouse connection
// settings are unset, with the environment variable that supplies each.
// Empty result means the connection configuration is complete.
func (c *Config) MissingConnectionSettings() []string {
	if c.Warehouse.Backend == "duckdb" {
		return nil
	}
	var missing []string
	switch c.Warehouse.Backend {
	case "trino":
		if c.Warehouse.Hostname == "" {
			missing = append(missing, "warehouse.hostname (WAREHOUSE_SERVER_HOSTNAME)")
		}
		if c.Warehouse.HTTPPath == "" {
			missing = append(missing, "warehouse.httpPath (WAREHOUSE_HTTP_PATH)")
		}
		if c.Warehouse.Token == "" {
			missing = append(missing, "warehouse.token (WAREHOUSE_TOKEN)")
		}
	case "snowflake":
		if c.Warehouse.Account == "" {
			missing = append(missing, "warehouse.account (ROWGUARD_WAREHOUSE_ACCOUNT)")
		}
		if c.Warehouse.Password == "" && c.Warehouse.Token == "" {
			missing = append(missing, "warehouse.password (ROWGUARD_WAREHOUSE_PASSWORD)")
		}
	case "bigquery":
		if c.Warehouse.ProjectID == "" {
			missing = append(missing, "warehouse.projectId (ROWGUARD_WAREHOUSE_PROJECTID)")
		}
	}
	return missing
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("warehouse.backend", "duckdb")
	v.SetDefault("warehouse.hostname", "")
	v.SetDefault("warehouse.port", 443)
	v.SetDefault("warehouse.httpPath", "")
	v.SetDefault("warehouse.token", "")
	v.SetDefault("warehouse.user", "")
	v.SetDefault("warehouse.database", ":memory:")
	v.SetDefault("warehouse.sslmode", "require")
	v.SetDefault("table.catalog", "main")
	v.SetDefault("table.schema", "default")
	v.SetDefault("table.name", "user_data")
	v.SetDefault("schemaFile", "")
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.host", "localhost")
	v.SetDefault("audit.port", 5432)
	v.SetDefault("audit.user", "rowguard")
	v.SetDefault("audit.password", "rowguard_dev")
	v.SetDefault("audit.name", "rowguard")
	v.SetDefault("audit.sslmode", "disable")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "30s")
}

func bindLegacyEnv(v *viper.Viper) {
	v.BindEnv("warehouse.hostname", "ROWGUARD_WAREHOUSE_HOSTNAME", "WAREHOUSE_SERVER_HOSTNAME")
	v.BindEnv("warehouse.httpPath", "ROWGUARD_WAREHOUSE_HTTPPATH", "WAREHOUSE_HTTP_PATH")
	v.BindEnv("warehouse.token", "ROWGUARD_WAREHOUSE_TOKEN", "WAREHOUSE_TOKEN")
	v.BindEnv("table.catalog", "ROWGUARD_TABLE_CATALOG", "CATALOG_NAME")
	v.BindEnv("table.schema", "ROWGUARD_TABLE_SCHEMA", "SCHEMA_NAME")
	v.BindEnv("table.name", "ROWGUARD_TABLE_NAME", "TABLE_NAME")
}
