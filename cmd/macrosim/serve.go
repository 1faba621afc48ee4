package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/macrosim/internal/api"
	"github.com/talgya/macrosim/internal/engine"
)

func newServeCmd() *cobra.Command {
	var autostart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation loop behind the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, seed, err := buildSimulation(cfg)
			if err != nil {
				return err
			}
			rec, closeRec, err := openRecorder(cfg, seed)
			if err != nil {
				return err
			}
			defer closeRec()
			rec.RecordAll(sim.History.Rows())

			eng := engine.NewEngine(sim)
			eng.Interval = cfg.Interval
			eng.ReportEvery = cfg.ReportEvery

			srv := api.NewServer(sim, eng, cfg.API.Port, cfg.API.AdminKey, cfg.API.CORSOrigins).
				WithHistory(rec.DB, rec.RunID)
			eng.OnPeriod = func(row engine.PeriodRow) {
				rec.Record(row)
				srv.Publish(row)
			}
			eng.SetRunning(autostart)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return eng.Run(ctx) })
			g.Go(func() error { return srv.ListenAndServe(ctx) })

			err = g.Wait()
			slog.Info("shutdown complete", "period", sim.Period())
			return err
		},
	}
	cmd.Flags().BoolVar(&autostart, "autostart", false, "Start advancing periods immediately")
	return cmd
}
