package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/reaper/internal/api"
	apihttp "github.com/Paintersrp/reaper/internal/api/http"
)

var newAPIServer = apihttp.NewServer

func newServeCmd(ctx *context) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured nodes over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			reg, err := ctx.registry(cmd)
			if err != nil {
				return err
			}
			logger, err := ctx.log(cmd)
			if err != nil {
				return err
			}
			control := api.NewNodeController(reg)
			if control == nil {
				return errors.New("node controller unavailable")
			}

			listenAddr := cfg.Server.Addr
			if cmd.Flags().Changed("addr") {
				listenAddr = addr
			}
			server, err := newAPIServer(apihttp.Config{Addr: listenAddr, Controller: control, Logger: logger})
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = stdcontext.Background()
			}
			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Run(runCtx)
			}()

			readyTimer := time.NewTimer(200 * time.Millisecond)
			defer readyTimer.Stop()
			select {
			case err := <-errCh:
				return serveResult(err)
			case <-readyTimer.C:
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Node server listening on %s\n", server.Addr())
			return serveResult(<-errCh)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from configuration)")
	return cmd
}

func serveResult(err error) error {
	if err != nil && !errors.Is(err, stdcontext.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
