package main

import (
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jvmancuso/gridmesh/internal/config"
	"github.com/jvmancuso/gridmesh/internal/logging"
	"github.com/jvmancuso/gridmesh/internal/mesh"
	"github.com/jvmancuso/gridmesh/internal/observability"
	"github.com/jvmancuso/gridmesh/internal/transport"
	"github.com/jvmancuso/gridmesh/internal/worker"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gridmeshd",
		Short:         "gridmesh worker node daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gridmeshd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a worker node serving mesh commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "gridmesh.toml", "node config file")
	return cmd
}

func serve(configPath string) error {
	logging.ConfigureRuntime()
	log := logging.Logger("gridmeshd")

	cfg, err := config.LoadNodeConfig(configPath)
	if err != nil {
		return err
	}

	client := transport.NewClient(cfg.Directory())
	engine, err := mesh.New(mesh.Config{
		WorkerID:  cfg.WorkerID,
		Messenger: client,
	})
	if err != nil {
		return err
	}

	server := transport.NewServer(logging.Logger("transport"))
	service := worker.New(engine.Registry(), engine.Table(), logging.Logger("worker"))
	if err := service.Attach(server); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		observability.RegisterMetrics()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics listener failed")
			}
		}()
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %q: %w", cfg.Listen, err)
	}
	log.Info().
		Str("worker", cfg.WorkerID).
		Str("listen", cfg.Listen).
		Int("peers", len(cfg.Peers)).
		Msg("worker node serving")
	return server.Serve(lis)
}
