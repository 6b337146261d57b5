package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rowguard-labs/rowguard/internal/store"
)

func (c *CLI) newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage records you own in the shared table",
	}
	cmd.AddCommand(c.newRecordListCmd())
	cmd.AddCommand(c.newRecordCreateCmd())
	cmd.AddCommand(c.newRecordUpdateCmd())
	cmd.AddCommand(c.newRecordDeleteCmd())
	return cmd
}

func (c *CLI) newRecordListCmd() *cobra.Command {
	var filterArgs []string
	var refresh bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your records, most recently touched first",
		Long: `List records owned by the current identity.

Filters narrow the list with case-preserving substring matches, e.g.:

  rowguard record list --filter name=Jo --filter email=@example.com

Records belonging to other users are never returned, regardless of filters.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, resolver, err := c.session()
			if err != nil {
				return err
			}

			filters, err := parseFieldArgs(filterArgs)
			if err != nil {
				return err
			}

			if refresh {
				s.Refresh()
			}

			ctx := cmd.Context()
			id := resolver.Identity(ctx)
			set, out := s.List(ctx, id, filters)
			if out.Kind != store.OutcomeSuccess {
				return c.reportOutcome("list", out)
			}

			if c.jsonOutput {
				return c.outputJSON(recordsAsMaps(set))
			}

			if set.Empty() {
				c.println("No records found. Create some records to get started.")
				return nil
			}
			c.printRecordTable(set)
			c.printf("\n%d record(s) belong to you\n", set.Len())
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&filterArgs, "filter", nil, "column=substring filter (repeatable)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "discard the cached view before listing")
	return cmd
}

func (c *CLI) newRecordCreateCmd() *cobra.Command {
	var fieldArgs []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record owned by you",
		Long: `Create a record in the shared table.

Domain fields are given as column=value pairs:

  rowguard record create --field name="Ann" --field email=ann@example.com

Ownership and timestamps are stamped automatically and cannot be supplied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, resolver, err := c.session()
			if err != nil {
				return err
			}

			fields, err := parseFieldArgs(fieldArgs)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := s.Create(ctx, fields, resolver.Identity(ctx))
			return c.reportOutcome("create", out)
		},
	}

	cmd.Flags().StringArrayVar(&fieldArgs, "field", nil, "column=value pair (repeatable)")
	return cmd
}

func (c *CLI) newRecordUpdateCmd() *cobra.Command {
	var fieldArgs []string

	cmd := &cobra.Command{
		Use:   "update <record-id>",
		Short: "Update a record you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid record id %q", args[0])
			}

			s, resolver, err := c.session()
			if err != nil {
				return err
			}

			fields, err := parseFieldArgs(fieldArgs)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := s.Update(ctx, recordID, fields, resolver.Identity(ctx))
			return c.reportOutcome("update", out)
		},
	}

	cmd.Flags().StringArrayVar(&fieldArgs, "field", nil, "column=value pair (repeatable)")
	return cmd
}

func (c *CLI) newRecordDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete a record you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid record id %q", args[0])
			}

			s, resolver, err := c.session()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := s.Delete(ctx, recordID, resolver.Identity(ctx))
			return c.reportOutcome("delete", out)
		},
	}
}

// reportOutcome renders a mutation outcome and maps failures to exit-coded
// errors. A no-op is reported as benign, never as an error.
func (c *CLI) reportOutcome(operation string, out store.Outcome) error {
	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"operation":     operation,
			"outcome":       out.Kind.String(),
			"rows_affected": out.RowsAffected,
			"reason":        out.Reason,
			"message":       out.Message,
		})
	}

	switch out.Kind {
	case store.OutcomeSuccess:
		c.printf("✓ %s succeeded (%d row(s))\n", operation, out.RowsAffected)
		return nil
	case store.OutcomeNoop:
		c.printf("– no matching record for this user; nothing %sd\n", operation)
		return nil
	case store.OutcomeValidationFailure:
		c.errorf("✗ %s rejected: %s\n", operation, out.Reason)
		return fmt.Errorf("validation failure")
	default:
		c.errorf("✗ %s failed: %s\n", operation, out.Message)
		if out.Retryable {
			c.errorf("  the connection was reset; retrying may succeed\n")
		}
		return fmt.Errorf("backend failure")
	}
}

func (c *CLI) printRecordTable(set *store.RecordSet) {
	c.println(strings.Join(set.Columns, " | "))
	for _, row := range set.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = ""
				continue
			}
			cells[i] = fmt.Sprintf("%v", v)
		}
		c.println(strings.Join(cells, " | "))
	}
}

func recordsAsMaps(set *store.RecordSet) []map[string]interface{} {
	records := make([]map[string]interface{}, 0, set.Len())
	for _, row := range set.Rows {
		record := make(map[string]interface{}, len(set.Columns))
		for i, col := range set.Columns {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		records = append(records, record)
	}
	return records
}

// parseFieldArgs parses repeated column=value flags.
func parseFieldArgs(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, found := strings.Cut(arg, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("expected column=value, got %q", arg)
		}
		fields[name] = value
	}
	return fields, nil
}
