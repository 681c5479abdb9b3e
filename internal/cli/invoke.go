package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/reaper/internal/cliutil"
	"github.com/Paintersrp/reaper/internal/node"
)

func newInvokeCmd(ctx *context) *cobra.Command {
	var (
		nodeName  string
		text      string
		trigger   bool
		forceKill string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Invoke a node once and print its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := ctx.lookupNode(cmd, nodeName)
			if err != nil {
				return err
			}
			res := n.Execute(cmd.Context(), node.Inputs{
				Text:      text,
				Trigger:   trigger,
				ForceKill: node.Flag(node.ParseFlag(forceKill)),
			})

			out := cmd.OutOrStdout()
			if asJSON {
				cliutil.EncodeInvocation(json.NewEncoder(out), cmd.ErrOrStderr(), cliutil.NewInvocationRecord(n.Name(), res))
				return nil
			}
			cliutil.WriteStatus(out, res.Status, supportsInteractiveOutput(cmd))
			return nil
		},
	}
	cmd.Flags().StringVar(&nodeName, "node", "", "Node to invoke (default: first configured node)")
	cmd.Flags().StringVar(&text, "text", "", "Passthrough text returned unchanged")
	cmd.Flags().BoolVar(&trigger, "trigger", false, "Actually terminate matching processes")
	cmd.Flags().StringVar(&forceKill, "force-kill", "false", "Force kill processes that outlive the grace period (true|false)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the result as JSON")
	return cmd
}
