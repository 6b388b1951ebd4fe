/*
Package factory converts CSV tables into typed engine inputs and back.

PURPOSE:
  The engine only ever sees typed records. This package is the boundary
  where loosely typed tables are checked against explicit schemas and
  converted: column names to fields, cells to generic.Value, level text
  to generic.Level.

TABLES:
  outputs    County, AP, CPF, P_ref, P_eff, FTE_on, Utilization,
             Backlog_Start, Backlog_End, FTE_required, Gap, RAG
  arrivals   County, Category, Count, Weight
  history    Period, Level, County, <outputs metric columns>
  overrides  Category, Weight
  baselines  County, FTE_on, Buffer_FTE, Backlog_Start,
             Completed_Points_Baseline, Avg_FTE_Baseline,
             Wbar_Current, Wbar_Baseline, AP

VALIDATION:
  - Missing identity column: *generic.MissingColumnError, table rejected
  - Missing optional column: fields left undefined
  - Non-numeric cell: undefined, reported as a generic.Correction
  - Blank rows: dropped

USAGE:
  tables, err := factory.ReadTables(factory.Sources{
      Outputs:  outputsFile,
      Arrivals: arrivalsFile, // optional
  })
  result, err := session.Load(ctx, tables)

SEE ALSO:
  - schema.go: Row structs and reflection mapping
  - capacity/types.go: The typed records produced here
*/
package factory

import (
	"fmt"
	"io"

	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/generic"
)

// Table names used in errors and corrections.
const (
	TableOutputs   = "outputs"
	TableArrivals  = "arrivals"
	TableHistory   = "history"
	TableOverrides = "overrides"
	TableBaselines = "baselines"
)

// =============================================================================
// READERS
// =============================================================================

// Sources are the CSV streams of one upload. Nil readers are absent tables.
type Sources struct {
	Outputs   io.Reader
	Baselines io.Reader
	Arrivals  io.Reader
	History   io.Reader
}

// ReadTables reads every present source into one capacity.Tables.
func ReadTables(src Sources) (capacity.Tables, error) {
	var t capacity.Tables

	if src.Outputs != nil {
		rows, corr, err := ReadOutputs(src.Outputs)
		if err != nil {
			return capacity.Tables{}, err
		}
		t.Outputs = rows
		t.Corrections = append(t.Corrections, corr...)
	}
	if src.Baselines != nil {
		rows, corr, err := ReadBaselines(src.Baselines)
		if err != nil {
			return capacity.Tables{}, err
		}
		t.Baselines = rows
		t.Corrections = append(t.Corrections, corr...)
	}
	if src.Arrivals != nil {
		rows, corr, err := ReadArrivals(src.Arrivals)
		if err != nil {
			return capacity.Tables{}, err
		}
		t.Arrivals = rows
		t.Corrections = append(t.Corrections, corr...)
	}
	if src.History != nil {
		rows, corr, err := ReadHistory(src.History)
		if err != nil {
			return capacity.Tables{}, err
		}
		t.History = rows
		t.Corrections = append(t.Corrections, corr...)
	}

	return t, nil
}

// ReadOutputs reads a unit outputs table. An unrecognized RAG is cleared
// so that it is derived from utilization, and reported as a correction.
func ReadOutputs(r io.Reader) ([]capacity.UnitOutput, []generic.Correction, error) {
	rows, corrections, err := readTable[OutputRow](TableOutputs, r)
	if err != nil {
		return nil, nil, err
	}

	out := make([]capacity.UnitOutput, 0, len(rows))
	for i, row := range rows {
		rag, ok := generic.ParseRAG(row.RAG)
		if !ok && row.RAG != "" {
			corrections = append(corrections, generic.Correction{
				Table: TableOutputs, Row: i + 1, Column: "RAG", Raw: row.RAG,
			})
		}
		out = append(out, capacity.UnitOutput{
			Unit: row.County,
			MetricSet: generic.MetricSet{
				AP: row.AP, CPF: row.CPF, PRef: row.PRef, PEff: row.PEff,
				FTEOn: row.FTEOn, Utilization: row.Utilization,
				BacklogStart: row.BacklogStart, BacklogEnd: row.BacklogEnd,
				FTERequired: row.FTERequired, Gap: row.Gap, RAG: rag,
			},
		})
	}
	return out, corrections, nil
}

// ReadArrivals reads an arrivals table.
func ReadArrivals(r io.Reader) ([]capacity.ArrivalRecord, []generic.Correction, error) {
	rows, corrections, err := readTable[ArrivalRow](TableArrivals, r)
	if err != nil {
		return nil, nil, err
	}

	out := make([]capacity.ArrivalRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, capacity.ArrivalRecord{
			Unit: row.County, Category: row.Category, Count: row.Count, Weight: row.Weight,
		})
	}
	return out, corrections, nil
}

// ReadHistory reads a history table into snapshots ready for seeding.
// Level "County" is read as generic.LevelUnit.
func ReadHistory(r io.Reader) ([]generic.Snapshot, []generic.Correction, error) {
	rows, corrections, err := readTable[HistoryRow](TableHistory, r)
	if err != nil {
		return nil, nil, err
	}

	out := make([]generic.Snapshot, 0, len(rows))
	for i, row := range rows {
		if row.Period == "" {
			return nil, nil, fmt.Errorf("table %s row %d: %w", TableHistory, i+1, generic.ErrEmptyPeriod)
		}
		level, ok := generic.ParseLevel(row.Level)
		if !ok {
			return nil, nil, fmt.Errorf("%w: table %s row %d: unknown level %q",
				generic.ErrInvalidTable, TableHistory, i+1, row.Level)
		}
		rag, _ := generic.ParseRAG(row.RAG)
		out = append(out, generic.Snapshot{
			Period: row.Period,
			Level:  level,
			Name:   row.County,
			Metrics: generic.MetricSet{
				AP: row.AP, CPF: row.CPF, PRef: row.PRef, PEff: row.PEff,
				FTEOn: row.FTEOn, CapacityEff: row.FTEOn.Mul(row.PEff),
				Utilization:  row.Utilization,
				BacklogStart: row.BacklogStart, BacklogEnd: row.BacklogEnd,
				FTERequired: row.FTERequired, Gap: row.Gap, RAG: rag,
			},
		})
	}
	return out, corrections, nil
}

// ReadOverrides reads a weight override table.
func ReadOverrides(r io.Reader) ([]capacity.WeightOverride, []generic.Correction, error) {
	rows, corrections, err := readTable[OverrideRow](TableOverrides, r)
	if err != nil {
		return nil, nil, err
	}

	out := make([]capacity.WeightOverride, 0, len(rows))
	for _, row := range rows {
		out = append(out, capacity.WeightOverride{Category: row.Category, Weight: row.Weight})
	}
	return out, corrections, nil
}

// ReadBaselines reads a unit baselines table.
func ReadBaselines(r io.Reader) ([]capacity.UnitBaseline, []generic.Correction, error) {
	rows, corrections, err := readTable[BaselineRow](TableBaselines, r)
	if err != nil {
		return nil, nil, err
	}

	out := make([]capacity.UnitBaseline, 0, len(rows))
	for _, row := range rows {
		out = append(out, capacity.UnitBaseline{
			Unit:                    row.County,
			FTEOn:                   row.FTEOn,
			BufferFTE:               row.BufferFTE,
			BacklogStart:            row.BacklogStart,
			CompletedPointsBaseline: row.CompletedPointsBaseline,
			AvgFTEBaseline:          row.AvgFTEBaseline,
			WbarCurrent:             row.WbarCurrent,
			WbarBaseline:            row.WbarBaseline,
			AP:                      row.AP,
		})
	}
	return out, corrections, nil
}

// =============================================================================
// WRITERS
// =============================================================================

// WriteUnitMetrics writes the metrics table in the unit outputs shape.
func WriteUnitMetrics(w io.Writer, units []capacity.UnitMetrics) error {
	rows := make([]OutputRow, 0, len(units))
	for _, u := range units {
		rows = append(rows, outputRow(u.Unit, u.MetricSet))
	}
	return writeTable(w, rows)
}

// WriteHistory writes the ledger with Period and Level columns.
func WriteHistory(w io.Writer, snapshots []generic.Snapshot) error {
	rows := make([]HistoryRow, 0, len(snapshots))
	for _, s := range snapshots {
		m := s.Metrics
		rows = append(rows, HistoryRow{
			Period: s.Period, Level: string(s.Level), County: s.Name,
			AP: m.AP, CPF: m.CPF, PRef: m.PRef, PEff: m.PEff, FTEOn: m.FTEOn,
			Utilization: m.Utilization, BacklogStart: m.BacklogStart, BacklogEnd: m.BacklogEnd,
			FTERequired: m.FTERequired, Gap: m.Gap, RAG: string(m.RAG),
		})
	}
	return writeTable(w, rows)
}

// WriteOverrides writes a weight table, e.g. the default category weights.
func WriteOverrides(w io.Writer, weights []capacity.CategoryWeight) error {
	rows := make([]OverrideRow, 0, len(weights))
	for _, cw := range weights {
		rows = append(rows, OverrideRow{Category: cw.Category, Weight: cw.Weight})
	}
	return writeTable(w, rows)
}

func outputRow(name string, m generic.MetricSet) OutputRow {
	return OutputRow{
		County: name,
		AP:     m.AP, CPF: m.CPF, PRef: m.PRef, PEff: m.PEff, FTEOn: m.FTEOn,
		Utilization: m.Utilization, BacklogStart: m.BacklogStart, BacklogEnd: m.BacklogEnd,
		FTERequired: m.FTERequired, Gap: m.Gap, RAG: string(m.RAG),
	}
}
