// Package cli provides the command-line interface for rowguard.
// The CLI is the interactive front end over the row-owned data layer:
// one session per process, one warehouse connection, one resolved identity.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rowguard-labs/rowguard/internal/config"
	"github.com/rowguard-labs/rowguard/internal/identity"
	"github.com/rowguard-labs/rowguard/internal/observability"
	"github.com/rowguard-labs/rowguard/internal/schema"
	"github.com/rowguard-labs/rowguard/internal/store"
	"github.com/rowguard-labs/rowguard/internal/warehouse"
	"github.com/rowguard-labs/rowguard/internal/warehouse/connect"
)

// Exit codes, aligned with the error code taxonomy.
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitIdentity   = 2
	ExitBackend    = 3
	ExitInternal   = 4
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// CLI holds the command-line interface state.
type CLI struct {
	rootCmd *cobra.Command
	cfg     *config.Config

	// Session state, built lazily on first data command.
	handle   *warehouse.Lazy
	resolver *identity.Resolver
	schema   *schema.FormSchema
	store    *store.Store

	// Global flags
	configPath string
	jsonOutput bool
	quiet      bool
	debug      bool
}

// New creates a new CLI instance.
func New() *CLI {
	cli := &CLI{}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

// Execute runs the CLI.
func (c *CLI) Execute() int {
	defer func() {
		if c.handle != nil {
			c.handle.Close()
		}
	}()
	if err := c.rootCmd.Execute(); err != nil {
		return ExitInternal
	}
	return ExitSuccess
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rowguard",
		Short: "Rowguard - row-level-secured CRUD over a SQL warehouse",
		Long: `Rowguard manages records you own in a shared warehouse table.

Every operation runs as the warehouse's current authenticated principal:
  • writes stamp your ownership and timestamps automatically
  • reads, updates and deletes only ever touch rows you own
  • ownership is enforced at statement construction, not in the UI

This CLI is an interactive front end over that data layer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.rowguard/config.yaml)")
	cmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "machine-readable JSON output")
	cmd.PersistentFlags().BoolVar(&c.quiet, "quiet", false, "suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "verbose debug logs")

	// Add command groups
	cmd.AddCommand(c.newRecordCmd())
	cmd.AddCommand(c.newWhoamiCmd())
	cmd.AddCommand(c.newSchemaCmd())
	cmd.AddCommand(c.newDoctorCmd())
	cmd.AddCommand(c.newVersionCmd())

	return cmd
}

func (c *CLI) initConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// session lazily builds the per-process session: form schema, shared
// warehouse handle, identity resolver and store.
func (c *CLI) session() (*store.Store, *identity.Resolver, error) {
	if c.store != nil {
		return c.store, c.resolver, nil
	}

	formSchema := schema.Default()
	if c.cfg.SchemaFile != "" {
		loaded, err := schema.LoadFile(c.cfg.SchemaFile)
		if err != nil {
			return nil, nil, err
		}
		formSchema = loaded
	}
	c.schema = formSchema

	c.handle = warehouse.NewLazy(connect.Connector(c.cfg.Warehouse, c.cfg.Table))
	c.resolver = identity.NewResolver(identity.SourceFunc(func(ctx context.Context) (string, error) {
		wh, err := c.handle.Get(ctx)
		if err != nil {
			return "", err
		}
		return wh.CurrentUser(ctx)
	}))

	logger := observability.OperationLogger(observability.NewNoopLogger())
	if c.debug {
		logger = observability.NewJSONLogger(os.Stderr)
	}

	c.store = store.New(c.handle, c.cfg.Table.Qualified(), formSchema, store.WithLogger(logger))
	return c.store, c.resolver, nil
}

// Helper functions for output

func (c *CLI) printf(format string, args ...interface{}) {
	if !c.quiet {
		fmt.Printf(format, args...)
	}
}

func (c *CLI) println(args ...interface{}) {
	if !c.quiet {
		fmt.Println(args...)
	}
}

func (c *CLI) errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

func (c *CLI) debugf(format string, args ...interface{}) {
	if c.debug {
		fmt.Printf("[DEBUG] "+format, args...)
	}
}
