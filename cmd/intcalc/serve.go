package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/intcalc/pkg/api"
	grpcapi "github.com/lemonberrylabs/intcalc/pkg/api/grpc"
	"github.com/lemonberrylabs/intcalc/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculator over HTTP and gRPC",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("http-addr", "", "HTTP listen address (default 0.0.0.0:8787, env INTCALC_HTTP_ADDR)")
	cmd.Flags().String("grpc-addr", "", "gRPC listen address (default 0.0.0.0:8788, env INTCALC_GRPC_ADDR)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, engine, p, err := setup(cmd, true)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("http-addr"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v, _ := cmd.Flags().GetString("grpc-addr"); v != "" {
		cfg.GRPC.Addr = v
	}

	logger := p.logger
	server := api.New(engine, logger)
	web.New(engine).Register(server.App())

	grpcServer := grpcapi.New(engine, logger)
	go func() {
		logger.Info().Str("addr", cfg.GRPC.Addr).Msg("gRPC server listening")
		if err := grpcServer.Serve(cfg.GRPC.Addr); err != nil {
			logger.Fatal().Err(err).Msg("gRPC server error")
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info().Msg("shutting down")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("error during shutdown")
		}
	}()

	logger.Info().
		Str("addr", cfg.HTTP.Addr).
		Bool("strict", cfg.Strict).
		Int("history_capacity", cfg.History.Capacity).
		Msg("intcalc listening")
	if err := server.Listen(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
