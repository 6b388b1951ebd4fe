package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/generic"
)

func printResult(w io.Writer, r capacity.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "UNIT\tAP\tFTE_ON\tP_EFF\tUTIL\tFTE_REQ\tGAP\tBACKLOG_END\tRAG\tBUFFER\t")
	for _, u := range r.Units {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			u.Unit, num(u.AP, 0), num(u.FTEOn, 2), num(u.PEff, 1), pct(u.Utilization),
			num(u.FTERequired, 2), num(u.Gap, 2), num(u.BacklogEnd, 0), u.RAG, u.BufferSource)
	}
	s := r.State
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\t\n",
		s.Name, num(s.AP, 0), num(s.FTEOn, 2), "-", pct(s.Utilization),
		num(s.FTERequired, 2), num(s.Gap, 2), num(s.BacklogEnd, 0), s.RAG)
	tw.Flush()

	if len(r.Unmatched) > 0 {
		fmt.Fprintf(w, "\nIgnored overrides (no such category): %v\n", r.Unmatched)
	}
	printCorrections(w, r.Corrections)
}

func printUnit(w io.Writer, u capacity.UnitMetrics) {
	fmt.Fprintf(w, "%s\n", u.Unit)
	fmt.Fprintln(w, "-------------------------------")
	fmt.Fprintf(w, "  Arrival points:      %s\n", num(u.AP, 0))
	fmt.Fprintf(w, "  P_ref:               %s\n", num(u.PRef, 2))
	fmt.Fprintf(w, "  CPF:                 %s\n", num(u.CPF, 3))
	fmt.Fprintf(w, "  P_eff:               %s\n", num(u.PEff, 2))
	fmt.Fprintf(w, "  Capacity:            %s\n", num(u.CapacityEff, 0))
	fmt.Fprintf(w, "  Utilization:         %s\n", pct(u.Utilization))
	fmt.Fprintf(w, "  Backlog end:         %s\n", num(u.BacklogEnd, 0))
	fmt.Fprintf(w, "  FTE required:        %s (buffer %s, %s)\n", num(u.FTERequired, 2), num(u.BufferFTE, 2), u.BufferSource)
	fmt.Fprintf(w, "  Gap:                 %s\n", num(u.Gap, 2))
	fmt.Fprintf(w, "  RAG:                 %s\n", u.RAG)
}

func printHistory(w io.Writer, rows []generic.Snapshot) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "History is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tPERIOD\tLEVEL\tNAME\tAP\tUTIL\tGAP\tRAG\tRECORDED")
	for _, s := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Seq, s.Period, s.Level, s.Name, num(s.Metrics.AP, 0), pct(s.Metrics.Utilization),
			num(s.Metrics.Gap, 2), s.Metrics.RAG, s.RecordedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func printCorrections(w io.Writer, corrections []generic.Correction) {
	if len(corrections) == 0 {
		return
	}
	fmt.Fprintf(w, "\nCORRECTIONS (%d):\n", len(corrections))
	for _, c := range corrections {
		fmt.Fprintf(w, "  [%s row %d] %s = %q treated as missing\n", c.Table, c.Row, c.Column, c.Raw)
	}
}

func num(v generic.Value, places int32) string {
	if !v.IsDefined() {
		return "-"
	}
	return v.StringFixed(places)
}

func pct(v generic.Value) string {
	if !v.IsDefined() {
		return "-"
	}
	return v.Mul(generic.NewValueFromInt(100)).StringFixed(1) + "%"
}
