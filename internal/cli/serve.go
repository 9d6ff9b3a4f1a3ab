package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/smokyabdulrahman/salah-times/internal/clock"
	"github.com/smokyabdulrahman/salah-times/internal/server"
	"github.com/spf13/cobra"
)

var flagListen string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live prayer state over HTTP",
		Long: "Run the refresh engine and the per-second clock, and expose them on a local HTTP API:\n\n" +
			"  GET  /healthz\n" +
			"  GET  /v1/today\n" +
			"  GET  /v1/state\n" +
			"  GET  /v1/locations\n" +
			"  PUT  /v1/location/:key\n" +
			"  GET  /v1/iqama\n" +
			"  PUT  /v1/iqama",
		Annotations: map[string]string{annotationLongRunning: "true"},
		RunE:        runServe,
	}
	cmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (overrides listen_addr)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	addr := e.cfg.ListenAddr
	if cmd.Flags().Changed("listen") {
		addr = flagListen
	}

	if err := e.runBackground(ctx); err != nil {
		return err
	}
	go e.clock.Run(ctx, func(clock.State) {})

	srv := server.New(ctx, addr, e.coord, e.clock, e.logger)
	fmt.Fprintf(cmd.ErrOrStderr(), "serving %s on http://%s\n", e.loc.Name, addr)
	return srv.Run(ctx)
}
