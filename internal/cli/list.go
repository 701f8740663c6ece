package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List dashboards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			dashboards, err := s.client.ListDashboards(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSIZE\tONLINE\tUPDATED")
			for _, d := range dashboards {
				fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%t\t%s\n",
					d.ID, d.Name, d.Width, d.Height, d.RequestOptions.Online(), humanize.Time(d.UpdatedAt))
			}
			return tw.Flush()
		},
	}
}
