package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/eventbus"
	"github.com/mesh-intelligence/catalog/internal/httpapi"
	"github.com/mesh-intelligence/catalog/internal/sqlite"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		seed    bool
		origins []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local store over HTTP",
		Long: `Serve exposes the local store as a JSON API with a websocket change feed
at /events and prometheus metrics at /metrics. It runs until interrupted.`,
		Args: userArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := a.openLocal()
			if err != nil {
				return err
			}
			defer b.Detach()

			if seed {
				doc, err := sqlite.DemoSeed()
				if err != nil {
					return err
				}
				if _, err := b.Seed(ctx, doc); err != nil {
					return err
				}
			}

			bus := eventbus.New(256, a.logger)
			bus.Subscribe("log", eventbus.NewLogConsumer(a.logger))
			bus.Start(ctx)
			defer bus.Stop()

			if addr == "" {
				addr = a.cfg.GetString(cfgKeyServerAddr)
			}
			srv := httpapi.New(httpapi.Config{
				Store:          b,
				Events:         bus,
				Logger:         a.logger,
				OriginPatterns: origins,
			})
			if err := srv.Run(ctx, addr); err != nil {
				return err
			}
			a.logger.Info("server stopped", zap.String("addr", addr))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	cmd.Flags().BoolVar(&seed, "seed", false, "seed the demo catalog before serving")
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "extra allowed websocket origin patterns")
	return cmd
}
