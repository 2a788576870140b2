package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ReadCSV reads one face per CSV row.
//
// A first row whose value cells are all non-numeric (such as "id,p0,p1") is
// a header and is skipped. If the first cell of the first data row is not a
// number, the first column of every row is taken as the face ID. Otherwise
// every cell is a value and ids is nil. Integer cells are promoted to float64.
func ReadCSV(r io.Reader) (ids []string, rows [][]float64, err error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	withIDs, decided := false, false
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && errors.Is(perr.Err, csv.ErrFieldCount) {
				return nil, nil, fmt.Errorf("%w: line %d", ErrInconsistentDims, line)
			}
			return nil, nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		if !decided {
			if line == 1 && isHeader(record) {
				continue
			}
			withIDs = !isNumber(record[0])
			decided = true
		}

		cells := record
		if withIDs {
			ids = append(ids, strings.TrimSpace(record[0]))
			cells = record[1:]
		}

		row := make([]float64, len(cells))
		for i, cell := range cells {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d, column %d: %w", line, i+1, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, nil, ErrEmpty
	}
	return ids, rows, nil
}

func isNumber(cell string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	return err == nil
}

// isHeader reports whether no value cell of record is numeric. The first cell
// is ignored when there are others, since it may be an ID column title.
func isHeader(record []string) bool {
	cells := record
	if len(cells) > 1 {
		cells = cells[1:]
	}
	for _, c := range cells {
		if isNumber(c) {
			return false
		}
	}
	return true
}

// WriteCSV writes the columns of m as CSV rows, one sample per row. When ids
// is non-nil each row starts with the sample's ID.
func WriteCSV(w io.Writer, ids []string, m mat.Matrix) error {
	r, c := m.Dims()
	if ids != nil && len(ids) != c {
		return fmt.Errorf("got %d ids for %d samples", len(ids), c)
	}

	cw := csv.NewWriter(w)
	record := make([]string, 0, r+1)
	for j := 0; j < c; j++ {
		record = record[:0]
		if ids != nil {
			record = append(record, ids[j])
		}
		for i := 0; i < r; i++ {
			record = append(record, strconv.FormatFloat(m.At(i, j), 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write sample %d: %w", j, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
