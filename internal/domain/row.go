package domain

// Source tags identifying which table produced a row.
const (
	SourceNewTable = "new_table"
	SourceOldTable = "old_table"
	SourceEmpty    = "empty"
)

// Row is one normalized output record of the report. Field order mirrors
// the published CSV column order, which is fixed between runs.
type Row struct {
	CreateDate   string
	InputTokens  int
	OutputTokens int
	InputPrice   float64
	OutputPrice  float64
	TotalPrice   float64
	PK           string
	SK           string
	Source       string
}
