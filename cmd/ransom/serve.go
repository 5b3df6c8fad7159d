package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "github.com/nadzzz/ransom/docs"
	"github.com/nadzzz/ransom/internal/config"
	"github.com/nadzzz/ransom/internal/dispatch"
	"github.com/nadzzz/ransom/internal/health"
	"github.com/nadzzz/ransom/internal/session"
	"github.com/nadzzz/ransom/internal/transport"
	grpctransport "github.com/nadzzz/ransom/internal/transport/grpc"
	httptransport "github.com/nadzzz/ransom/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve render requests over HTTP",
	Long: "Serve exposes POST /render and GET /voices over HTTP (docs under /swagger/),\n" +
		"a gRPC health service, and /healthz and /readyz. Sessions run one at a time.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd, map[string]string{
			"server.http_port":   "http-port",
			"server.grpc_port":   "grpc-port",
			"server.health_port": "health-port",
		})
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	f := serveCmd.Flags()
	f.Int("http-port", 8080, "HTTP API port")
	f.Int("grpc-port", 50051, "gRPC health port")
	f.Int("health-port", 8081, "health check port")
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("ransom starting", "version", version, "backends", cfg.TTS.Backends)

	outDir := cfg.Session.WorkDir
	if outDir == "" {
		outDir = os.TempDir()
	}
	dispatcher := dispatch.New(func() dispatch.Runner {
		return session.FromConfig(cfg)
	}, filepath.Join(outDir, "ransom-serve"))

	transports := []transport.Transport{
		httptransport.New(cfg.Server.HTTPPort),
		grpctransport.New(cfg.Server.GRPCPort),
	}
	healthServer := health.New(cfg.Server.HealthPort)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthServer.ListenAndServe(ctx)
	})
	for _, t := range transports {
		g.Go(func() error {
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, dispatcher); err != nil {
				return fmt.Errorf("%s transport: %w", t.Name(), err)
			}
			return nil
		})
	}

	// Ready once the backends have produced a voice registry.
	list, err := dispatcher.Voices(ctx)
	if err != nil {
		slog.Error("voice registry unavailable, staying not ready", "error", err)
	} else {
		healthServer.SetVoices(list.Count)
		healthServer.SetReady(true)
		for _, t := range transports {
			t.SetReady(true)
		}
		slog.Info("ransom ready",
			"voices", list.Count,
			"http_port", cfg.Server.HTTPPort,
			"grpc_port", cfg.Server.GRPCPort,
			"health_port", cfg.Server.HealthPort)
	}

	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("ransom stopped")
	return nil
}
