package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/factory"
	"github.com/warp/capacity-engine/generic"
)

// =============================================================================
// TABLE FLAGS - Shared by compute and snapshot
// =============================================================================

type tableFlags struct {
	outputs   string
	baselines string
	arrivals  string
	history   string
	overrides string
	recompute bool
}

func (f *tableFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.outputs, "outputs", "", "Unit outputs CSV")
	cmd.Flags().StringVar(&f.baselines, "baselines", "", "Unit baselines CSV (full formula chain)")
	cmd.Flags().StringVar(&f.arrivals, "arrivals", "", "Arrivals CSV (County, Category, Count, Weight)")
	cmd.Flags().StringVar(&f.history, "history", "", "History CSV used to seed an empty ledger")
	cmd.Flags().StringVar(&f.overrides, "overrides", "", "Weight overrides CSV (Category, Weight)")
	cmd.Flags().BoolVar(&f.recompute, "recompute", false, "Recompute outputs from arrivals even without overrides")
}

// loadSession reads the tables into the session and recomputes when
// overrides are given or requested.
func (f *tableFlags) loadSession() (capacity.Result, error) {
	var files []*os.File
	defer func() {
		for _, file := range files {
			file.Close()
		}
	}()
	open := func(path string) (io.Reader, error) {
		if path == "" {
			return nil, nil
		}
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
		return file, nil
	}

	var src factory.Sources
	var err error
	if src.Outputs, err = open(f.outputs); err != nil {
		return capacity.Result{}, err
	}
	if src.Baselines, err = open(f.baselines); err != nil {
		return capacity.Result{}, err
	}
	if src.Arrivals, err = open(f.arrivals); err != nil {
		return capacity.Result{}, err
	}
	if src.History, err = open(f.history); err != nil {
		return capacity.Result{}, err
	}

	tables, err := factory.ReadTables(src)
	if err != nil {
		return capacity.Result{}, err
	}

	result, err := app.session.Load(app.ctx, tables)
	if err != nil {
		return capacity.Result{}, err
	}
	if result.HistoryIgnored {
		fmt.Fprintf(os.Stderr, "History table %s not seeded: the ledger already has rows\n", f.history)
	}

	var overrides []capacity.WeightOverride
	if f.overrides != "" {
		r, err := open(f.overrides)
		if err != nil {
			return capacity.Result{}, err
		}
		overrides, _, err = factory.ReadOverrides(r)
		if err != nil {
			return capacity.Result{}, err
		}
	}

	if len(overrides) > 0 || f.recompute {
		result, err = app.session.Recompute(overrides)
		if err != nil {
			return capacity.Result{}, err
		}
		app.logger.Info("Recomputed", zap.Int("overrides", len(overrides)))
	}
	return result, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func computeCmd() *cobra.Command {
	var (
		tables tableFlags
		out    string
	)

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute unit and statewide metrics from CSV tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := tables.loadSession()
			if err != nil {
				return err
			}

			if out != "" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				if err := factory.WriteUnitMetrics(file, result.Units); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				fmt.Printf("Wrote %d units to %s\n", len(result.Units), out)
			}

			printResult(os.Stdout, result)
			return nil
		},
	}

	tables.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the metrics table to this CSV file")
	return cmd
}

func unitCmd() *cobra.Command {
	defaults := capacity.DefaultUnitBaseline()
	var (
		name                                          string
		fteOn, buffer, backlog, completed, avgFTE, ap string
		wbarCurrent, wbarBaseline                     string
	)

	cmd := &cobra.Command{
		Use:   "unit",
		Short: "Compute one unit from a baseline and manually entered AP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := capacity.UnitBaseline{Unit: name}
			for _, field := range []struct {
				flag  string
				raw   string
				value *generic.Value
			}{
				{"fte-on", fteOn, &b.FTEOn},
				{"buffer", buffer, &b.BufferFTE},
				{"backlog", backlog, &b.BacklogStart},
				{"completed", completed, &b.CompletedPointsBaseline},
				{"avg-fte", avgFTE, &b.AvgFTEBaseline},
				{"wbar-current", wbarCurrent, &b.WbarCurrent},
				{"wbar-baseline", wbarBaseline, &b.WbarBaseline},
				{"ap", ap, &b.AP},
			} {
				v, err := generic.ParseValue(field.raw)
				if err != nil {
					return fmt.Errorf("--%s: %w", field.flag, err)
				}
				*field.value = v
			}

			printUnit(os.Stdout, app.session.ComputeUnit(b))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Manual Entry", "Unit name")
	cmd.Flags().StringVar(&fteOn, "fte-on", defaults.FTEOn.String(), "FTE on hand")
	cmd.Flags().StringVar(&buffer, "buffer", defaults.BufferFTE.String(), "Buffer FTE")
	cmd.Flags().StringVar(&backlog, "backlog", defaults.BacklogStart.String(), "Backlog at period start")
	cmd.Flags().StringVar(&completed, "completed", defaults.CompletedPointsBaseline.String(), "Completed points in the baseline period")
	cmd.Flags().StringVar(&avgFTE, "avg-fte", defaults.AvgFTEBaseline.String(), "Average FTE in the baseline period")
	cmd.Flags().StringVar(&wbarCurrent, "wbar-current", defaults.WbarCurrent.String(), "Current mean arrival weight")
	cmd.Flags().StringVar(&wbarBaseline, "wbar-baseline", defaults.WbarBaseline.String(), "Baseline mean arrival weight")
	cmd.Flags().StringVar(&ap, "ap", defaults.AP.String(), "Arrival points")
	return cmd
}

func snapshotCmd() *cobra.Command {
	var (
		tables tableFlags
		period string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Compute from CSV tables and append a snapshot to history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := tables.loadSession(); err != nil {
				return err
			}

			if !cmd.Flags().Changed("period") {
				next, err := app.session.NextPeriod(app.ctx, time.Now())
				if err != nil {
					return err
				}
				period = next
			}

			rows, err := app.session.Snapshot(app.ctx, period)
			if err != nil {
				return err
			}
			fmt.Printf("Appended %d rows for %s\n", len(rows), period)
			return nil
		},
	}

	tables.register(cmd)
	cmd.Flags().StringVar(&period, "period", "", "Period label (default: the proposed next period)")
	return cmd
}

func historyCmd() *cobra.Command {
	var (
		period string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print or export the history ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := app.session.History(app.ctx, period)
			if err != nil {
				return err
			}

			if out == "" {
				printHistory(os.Stdout, rows)
				return nil
			}

			file, err := os.Create(out)
			if err != nil {
				return err
			}
			defer file.Close()
			if err := factory.WriteHistory(file, rows); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Printf("Wrote %d rows to %s\n", len(rows), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "Only rows of this period")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the ledger to this CSV file")
	return cmd
}

func nextPeriodCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next-period",
		Short: "Propose the label of the next snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := app.session.NextPeriod(app.ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Println(next)
			return nil
		},
	}
}
