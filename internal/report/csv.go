// Package report serializes row sets to the published CSV table and
// computes the run statistics reported alongside it.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"tokens-report/internal/domain"
)

// ContentType is the content type the published table is uploaded with.
const ContentType = "text/csv"

// Columns is the fixed column order of the published table. The
// consolidation step and the reporting view both assume it never varies
// between runs.
var Columns = []string{
	"create_date",
	"input_token",
	"output_token",
	"precio_token_input",
	"precio_token_output",
	"total_price",
	"pk",
	"sk",
	"source",
}

// Encode writes rows as CSV with the fixed header.
func Encode(rows []domain.Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Columns); err != nil {
		return nil, fmt.Errorf("report: write header: %w", err)
	}
	for i, row := range rows {
		record := []string{
			row.CreateDate,
			strconv.Itoa(row.InputTokens),
			strconv.Itoa(row.OutputTokens),
			formatFloat(row.InputPrice),
			formatFloat(row.OutputPrice),
			formatFloat(row.TotalPrice),
			row.PK,
			row.SK,
			row.Source,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("report: write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("report: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads a previously published table back into rows. The header
// maps column names to positions, so column order in the input does not
// matter; columns missing from the input decode to zero values, which is
// how older files with fewer columns get aligned to the current set.
// Unparsable numeric cells decode to zero rather than failing the read.
func Decode(data []byte) ([]domain.Row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("report: read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	idx := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		idx[name] = i
	}
	cell := func(record []string, column string) string {
		i, ok := idx[column]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	rows := make([]domain.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, domain.Row{
			CreateDate:   cell(record, "create_date"),
			InputTokens:  parseInt(cell(record, "input_token")),
			OutputTokens: parseInt(cell(record, "output_token")),
			InputPrice:   parseFloat(cell(record, "precio_token_input")),
			OutputPrice:  parseFloat(cell(record, "precio_token_output")),
			TotalPrice:   parseFloat(cell(record, "total_price")),
			PK:           cell(record, "pk"),
			SK:           cell(record, "sk"),
			Source:       cell(record, "source"),
		})
	}
	return rows, nil
}

// formatFloat uses the shortest decimal representation that round-trips,
// so Encode followed by Decode reproduces every field exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
