package cli

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect the managed table's form schema",
	}
	cmd.AddCommand(c.newSchemaShowCmd())
	cmd.AddCommand(c.newSchemaColumnsCmd())
	return cmd
}

func (c *CLI) newSchemaShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the declared domain columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := c.session(); err != nil {
				return err
			}

			if c.jsonOutput {
				return c.outputJSON(c.schema)
			}

			c.printf("Managed table: %s\n\n", c.cfg.Table.Qualified())
			for _, col := range c.schema.Columns {
				label := col.Label
				if label == "" {
					label = col.Name
				}
				marker := " "
				if col.Required {
					marker = "*"
				}
				c.printf("%s %-16s %s\n", marker, col.Name, label)
			}
			c.println("\n* required on create")
			return nil
		},
	}
}

func (c *CLI) newSchemaColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "Show the table's columns as the warehouse reports them",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := c.session()
			if err != nil {
				return err
			}

			columns, err := s.TableColumns(cmd.Context())
			if err != nil {
				return err
			}

			if c.jsonOutput {
				return c.outputJSON(columns)
			}
			for _, name := range columns {
				c.println(name)
			}
			return nil
		},
	}
}
