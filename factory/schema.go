package factory

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/warp/capacity-engine/generic"
)

// =============================================================================
// TABLE SCHEMAS - Struct tags map columns to fields
// =============================================================================
//
// Every input and output table is declared as a row struct. A field's
// `table` tag names its column; ",required" marks an identity column whose
// absence rejects the whole table.
//
// Supported field types: string (trimmed) and generic.Value.

// OutputRow is one row of the unit outputs table.
type OutputRow struct {
	County       string        `table:"County,required"`
	AP           generic.Value `table:"AP"`
	CPF          generic.Value `table:"CPF"`
	PRef         generic.Value `table:"P_ref"`
	PEff         generic.Value `table:"P_eff"`
	FTEOn        generic.Value `table:"FTE_on"`
	Utilization  generic.Value `table:"Utilization"`
	BacklogStart generic.Value `table:"Backlog_Start"`
	BacklogEnd   generic.Value `table:"Backlog_End"`
	FTERequired  generic.Value `table:"FTE_required"`
	Gap          generic.Value `table:"Gap"`
	RAG          string        `table:"RAG"`
}

// ArrivalRow is one row of the arrivals table.
type ArrivalRow struct {
	County   string        `table:"County,required"`
	Category string        `table:"Category,required"`
	Count    generic.Value `table:"Count,required"`
	Weight   generic.Value `table:"Weight,required"`
}

// HistoryRow is one row of a history table.
type HistoryRow struct {
	Period       string        `table:"Period,required"`
	Level        string        `table:"Level,required"`
	County       string        `table:"County,required"`
	AP           generic.Value `table:"AP"`
	CPF          generic.Value `table:"CPF"`
	PRef         generic.Value `table:"P_ref"`
	PEff         generic.Value `table:"P_eff"`
	FTEOn        generic.Value `table:"FTE_on"`
	Utilization  generic.Value `table:"Utilization"`
	BacklogStart generic.Value `table:"Backlog_Start"`
	BacklogEnd   generic.Value `table:"Backlog_End"`
	FTERequired  generic.Value `table:"FTE_required"`
	Gap          generic.Value `table:"Gap"`
	RAG          string        `table:"RAG"`
}

// OverrideRow is one row of the weight override table.
type OverrideRow struct {
	Category string        `table:"Category,required"`
	Weight   generic.Value `table:"Weight"`
}

// BaselineRow is one row of the unit baselines table.
type BaselineRow struct {
	County                  string        `table:"County,required"`
	FTEOn                   generic.Value `table:"FTE_on"`
	BufferFTE               generic.Value `table:"Buffer_FTE"`
	BacklogStart            generic.Value `table:"Backlog_Start"`
	CompletedPointsBaseline generic.Value `table:"Completed_Points_Baseline"`
	AvgFTEBaseline          generic.Value `table:"Avg_FTE_Baseline"`
	WbarCurrent             generic.Value `table:"Wbar_Current"`
	WbarBaseline            generic.Value `table:"Wbar_Baseline"`
	AP                      generic.Value `table:"AP"`
}

// =============================================================================
// REFLECTION MAPPING
// =============================================================================

var valueType = reflect.TypeOf(generic.Value{})

type column struct {
	name     string
	field    int
	required bool
}

func columnsOf(t reflect.Type) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("table")
		if tag == "" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		cols = append(cols, column{name: name, field: i, required: opts == "required"})
	}
	return cols
}

// Header returns the column names of a row struct, in field order.
func Header[T any]() []string {
	var model T
	cols := columnsOf(reflect.TypeOf(model))
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.name
	}
	return header
}

// DecodeTable maps raw rows onto row structs by header name.
//
// Headers are trimmed before matching. A missing required column fails
// with *generic.MissingColumnError. A missing optional column leaves its
// fields undefined. Rows whose cells are all blank are dropped. A cell
// that does not parse as a number becomes undefined and is reported as a
// correction; Row in a correction is the 1-based data row number.
func DecodeTable[T any](table string, header []string, rows [][]string) ([]T, []generic.Correction, error) {
	var model T
	t := reflect.TypeOf(model)

	columnIndexes := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := columnIndexes[name]; !dup {
			columnIndexes[name] = i
		}
	}

	cols := columnsOf(t)
	for _, c := range cols {
		if _, ok := columnIndexes[c.name]; !ok && c.required {
			return nil, nil, &generic.MissingColumnError{Table: table, Column: c.name}
		}
	}

	var corrections []generic.Correction
	results := make([]T, 0, len(rows))
	for rowIdx, row := range rows {
		if blankRow(row) {
			continue
		}

		result := reflect.New(t).Elem()
		for _, c := range cols {
			colIdx, ok := columnIndexes[c.name]
			if !ok || colIdx >= len(row) {
				continue
			}
			cell := row[colIdx]
			field := result.Field(c.field)

			switch {
			case field.Kind() == reflect.String:
				field.SetString(strings.TrimSpace(cell))
			case field.Type() == valueType:
				v, err := generic.ParseValue(cell)
				if err != nil {
					corrections = append(corrections, generic.Correction{
						Table: table, Row: rowIdx + 1, Column: c.name, Raw: cell,
					})
				}
				field.Set(reflect.ValueOf(v))
			default:
				return nil, nil, fmt.Errorf("%w: %s.%s has unsupported type %s",
					generic.ErrInvalidTable, table, c.name, field.Type())
			}
		}
		results = append(results, result.Interface().(T))
	}

	return results, corrections, nil
}

// EncodeTable renders row structs as a header plus string records.
// Undefined values are written as empty cells.
func EncodeTable[T any](models []T) ([]string, [][]string) {
	var model T
	t := reflect.TypeOf(model)
	cols := columnsOf(t)

	records := make([][]string, 0, len(models))
	for _, m := range models {
		v := reflect.ValueOf(m)
		record := make([]string, len(cols))
		for i, c := range cols {
			field := v.Field(c.field)
			switch {
			case field.Kind() == reflect.String:
				record[i] = field.String()
			case field.Type() == valueType:
				record[i] = field.Interface().(generic.Value).String()
			}
		}
		records = append(records, record)
	}
	return Header[T](), records
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
