package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newNodesCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "Print the definitions of the configured nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := ctx.registry(cmd)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(map[string]any{"nodes": reg.Definitions()}); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
