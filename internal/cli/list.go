package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func newListCmd(ctx *context) *cobra.Command {
	var nodeName string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List processes a node would terminate, without signalling them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := ctx.lookupNode(cmd, nodeName)
			if err != nil {
				return err
			}
			handles, err := n.Matches(cmd.Context())
			if err != nil {
				return fmt.Errorf("list %s processes: %w", n.Target().Name, err)
			}

			out := cmd.OutOrStdout()
			if len(handles) == 0 {
				fmt.Fprintf(out, "No %s processes found.\n", n.Target().Name)
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PID\tNAME\tAGE")
			now := time.Now()
			for _, h := range handles {
				age := "-"
				if started := h.StartTime(); !started.IsZero() {
					ageDur := now.Sub(started)
					if ageDur < 0 {
						ageDur = 0
					}
					age = units.HumanDuration(ageDur)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", h.PID(), h.Name(), age)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&nodeName, "node", "", "Node whose target to list (default: first configured node)")
	return cmd
}
