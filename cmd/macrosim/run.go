package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/macrosim/internal/config"
	"github.com/talgya/macrosim/internal/economy"
	"github.com/talgya/macrosim/internal/engine"
	"github.com/talgya/macrosim/internal/entropy"
	"github.com/talgya/macrosim/internal/persistence"
)

func newRunCmd() *cobra.Command {
	var (
		periods int
		dbPath  string
		logDir  string
		quiet   bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a fixed number of periods headless and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if periods < 1 {
				return fmt.Errorf("--periods must be positive, got %d", periods)
			}
			if cmd.Flags().Changed("db") {
				cfg.Storage.DBPath = dbPath
			}
			if cmd.Flags().Changed("log-dir") {
				cfg.Storage.PeriodLogDir = logDir
			}

			sim, seed, err := buildSimulation(cfg)
			if err != nil {
				return err
			}
			rec, closeRec, err := openRecorder(cfg, seed)
			if err != nil {
				return err
			}
			defer closeRec()

			eng := engine.NewEngine(sim)
			eng.ReportEvery = cfg.ReportEvery
			eng.OnPeriod = rec.Record
			rec.RecordAll(sim.History.Rows())

			title := color.New(color.FgCyan, color.Bold)
			if !quiet {
				title.Printf("macrosim: %d economies, %s workers, %d goods, seed %d\n",
					len(sim.Economies), humanize.Comma(int64(cfg.Population)), cfg.Goods, seed)
			}

			eng.RunPeriods(periods)

			out := cmd.OutOrStdout()
			latest, _ := sim.History.Latest()
			if err := renderSummary(out, latest); err != nil {
				return err
			}
			if rec.RunID != "" && !quiet {
				color.New(color.FgGreen).Fprintf(out, "run %s recorded\n", rec.RunID)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&periods, "periods", "n", 120, "Number of periods to simulate")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite history store (overrides storage.db_path)")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "Directory for compressed period logs (overrides storage.period_log_dir)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary table")
	return cmd
}

// buildSimulation draws the shared population and builds every configured economy.
func buildSimulation(cfg *config.Config) (*engine.Simulation, int64, error) {
	seed := entropy.Seed(cfg.Seed)
	pop := economy.DrawPopulation(cfg.Population, cfg.Goods, cfg.DemographicDraws(), seed)
	sim, err := engine.Build(cfg.AllEconomyParams(), pop, seed, cfg.EngineOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("build simulation: %w", err)
	}
	slog.Info("simulation built",
		"economies", len(sim.Economies),
		"population", cfg.Population,
		"goods", cfg.Goods,
		"firms_per_market", cfg.FirmsPerMarket,
		"seed", seed,
	)
	return sim, seed, nil
}

// openRecorder opens whichever output sinks the configuration enables.
// The returned close function is always safe to call.
func openRecorder(cfg *config.Config, seed int64) (*persistence.Recorder, func(), error) {
	rec := &persistence.Recorder{}
	closeRec := func() {
		if rec.Log != nil {
			if err := rec.Log.Close(); err != nil {
				slog.Error("failed to close period log", "error", err)
			} else {
				slog.Info("period log written", "path", rec.Log.Path())
			}
		}
		if rec.DB != nil {
			rec.DB.Close()
		}
	}

	if cfg.Storage.DBPath != "" {
		db, err := persistence.Open(cfg.Storage.DBPath)
		if err != nil {
			return nil, nil, err
		}
		rec.DB = db
		configJSON, err := json.Marshal(cfg)
		if err != nil {
			closeRec()
			return nil, nil, fmt.Errorf("encode config: %w", err)
		}
		if rec.RunID, err = db.BeginRun(seed, string(configJSON)); err != nil {
			closeRec()
			return nil, nil, err
		}
	}
	if cfg.Storage.PeriodLogDir != "" {
		if rec.RunID == "" {
			rec.RunID = uuid.NewString()
		}
		l, err := persistence.CreatePeriodLog(cfg.Storage.PeriodLogDir, rec.RunID)
		if err != nil {
			closeRec()
			return nil, nil, err
		}
		rec.Log = l
	}
	return rec, closeRec, nil
}

// renderSummary prints one line per economy for the given period.
func renderSummary(w io.Writer, row engine.PeriodRow) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Economy", "Period", "GDP", "Consumption", "Investment",
			"Unemployment", "Population", "Retirees", "Tax revenue", "Failed solves"}),
	)
	for _, e := range row.Economies {
		if err := table.Append([]string{
			e.Name,
			strconv.Itoa(row.Period),
			money(e.GDP),
			money(e.Consumption),
			money(e.Investment),
			fmt.Sprintf("%.1f%%", e.Unemployment*100),
			humanize.Comma(int64(e.Population)),
			humanize.Comma(int64(e.Retirees)),
			money(e.TaxRevenue),
			strconv.Itoa(e.FailedSolves),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// money formats x with thousands separators, rounded to cents.
func money(x float64) string {
	return humanize.CommafWithDigits(math.Round(x*100)/100, 2)
}
