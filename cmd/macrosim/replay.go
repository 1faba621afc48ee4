package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/macrosim/internal/engine"
	"github.com/talgya/macrosim/internal/persistence"
)

func newReplayCmd() *cobra.Command {
	var every int
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Print the history recorded in a period log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := persistence.ReadPeriodLog(args[0])
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				color.Yellow("%s holds no periods", args[0])
				return nil
			}
			return renderHistory(cmd.OutOrStdout(), rows, every)
		},
	}
	cmd.Flags().IntVarP(&every, "every", "e", 12, "Print every Nth period (the last period is always printed)")
	return cmd
}

// renderHistory prints one line per economy for every nth period.
func renderHistory(w io.Writer, rows []engine.PeriodRow, every int) error {
	if every < 1 {
		return fmt.Errorf("--every must be positive, got %d", every)
	}
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Period", "Economy", "GDP", "Unemployment", "Population", "Matches", "Replaced"}),
	)
	for i, row := range rows {
		if row.Period%every != 0 && i != len(rows)-1 {
			continue
		}
		for _, e := range row.Economies {
			if err := table.Append([]string{
				strconv.Itoa(row.Period),
				e.Name,
				money(e.GDP),
				fmt.Sprintf("%.1f%%", e.Unemployment*100),
				humanize.Comma(int64(e.Population)),
				strconv.Itoa(e.Matches),
				strconv.Itoa(e.Replaced),
			}); err != nil {
				return err
			}
		}
	}
	return table.Render()
}
