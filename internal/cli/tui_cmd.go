package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/reaper/internal/node"
	"github.com/Paintersrp/reaper/internal/tui"
)

func newTuiCmd(ctx *context) *cobra.Command {
	var (
		nodeName  string
		text      string
		forceKill string
	)
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive process view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !supportsInteractiveOutput(cmd) {
				return fmt.Errorf("tui requires an interactive terminal")
			}

			// The UI owns the terminal; log lines would corrupt the screen.
			logger, err := ctx.log(cmd)
			if err != nil {
				return err
			}
			logger.SetOutput(io.Discard)

			n, err := ctx.lookupNode(cmd, nodeName)
			if err != nil {
				return err
			}

			ui := tui.New(n, tui.WithText(text), tui.WithForce(node.ParseFlag(forceKill)))
			return ui.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&nodeName, "node", "", "Node to drive (default: first configured node)")
	cmd.Flags().StringVar(&text, "text", "", "Passthrough text sent with every trigger")
	cmd.Flags().StringVar(&forceKill, "force-kill", "false", "Start with force kill enabled (true|false)")
	return cmd
}
