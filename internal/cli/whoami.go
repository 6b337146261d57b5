package cli

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the resolved session identity",
		Long: `Show the identity this session acts as, with its session fingerprint.

The identity is resolved once from the warehouse's current authenticated
principal and held for the life of the process. If resolution fails the
session continues as "unknown_user" and sees no rows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, resolver, err := c.session()
			if err != nil {
				return err
			}

			session := resolver.Resolve(cmd.Context())

			if c.jsonOutput {
				return c.outputJSON(map[string]interface{}{
					"user":        session.Identity.String(),
					"fingerprint": session.Fingerprint,
					"resolved_at": session.ResolvedAt,
					"fallback":    session.Fallback,
				})
			}

			c.printf("User:        %s\n", session.Identity)
			c.printf("Session:     %s\n", session.Fingerprint)
			if session.Fallback {
				c.println("Note:        identity resolution failed; acting as the sentinel identity")
			}
			return nil
		},
	}
}
