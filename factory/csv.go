package factory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/warp/capacity-engine/generic"
)

// ReadCSV reads a header row and the data rows that follow it.
// Ragged rows are allowed; a UTF-8 byte order mark is stripped.
func ReadCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: no header row", generic.ErrInvalidTable)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", generic.ErrInvalidTable, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", generic.ErrInvalidTable, err)
	}
	return header, rows, nil
}

// WriteCSV writes a header and records.
func WriteCSV(w io.Writer, header []string, records [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(records); err != nil {
		return err
	}
	return writer.Error()
}

// readTable decodes one CSV stream into row structs.
func readTable[T any](table string, r io.Reader) ([]T, []generic.Correction, error) {
	header, rows, err := ReadCSV(r)
	if err != nil {
		return nil, nil, fmt.Errorf("table %s: %w", table, err)
	}
	return DecodeTable[T](table, header, rows)
}

func writeTable[T any](w io.Writer, models []T) error {
	header, records := EncodeTable(models)
	return WriteCSV(w, header, records)
}
