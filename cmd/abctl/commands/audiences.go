package commands

import (
	"strconv"

	"github.com/spf13/cobra"
)

func (c *CLI) newAudiencesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audiences",
		Short: "Inspect audiences of the selected project",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List audiences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			audiences, err := e.client.ListAudiences(cmd.Context())
			if err != nil {
				return err
			}

			t := &table{headers: []string{"ID", "NAME", "RULES", "ESTIMATED SIZE"}}
			for _, a := range audiences {
				size := "-"
				if a.EstimatedSize != nil {
					size = strconv.FormatInt(*a.EstimatedSize, 10)
				}
				t.add(a.ID, a.Name, strconv.Itoa(len(a.Rules)), size)
			}
			return c.print(cmd.OutOrStdout(), nonNil(audiences), t)
		},
	})
	return cmd
}
