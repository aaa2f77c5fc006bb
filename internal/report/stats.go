package report

import (
	"math"

	"tokens-report/internal/domain"
)

// Statistics summarizes a published row set for the run report.
type Statistics struct {
	TotalRecords         int     `json:"total_records"`
	TotalInputTokens     int     `json:"total_input_tokens"`
	TotalOutputTokens    int     `json:"total_output_tokens"`
	TotalTokens          int     `json:"total_tokens"`
	TotalInputCost       float64 `json:"total_input_cost"`
	TotalOutputCost      float64 `json:"total_output_cost"`
	TotalCost            float64 `json:"total_cost"`
	AverageCostPerRecord float64 `json:"average_cost_per_record"`
	AverageInputTokens   float64 `json:"average_input_tokens"`
	AverageOutputTokens  float64 `json:"average_output_tokens"`
	OldTableRecords      int     `json:"old_table_records"`
	NewTableRecords      int     `json:"new_table_records"`
}

// Compute derives the summary statistics for a row set. Costs are
// recomputed from the token totals at the standard rates; total cost sums
// the per-row prices as published.
func Compute(rows []domain.Row) Statistics {
	if len(rows) == 0 {
		return Statistics{}
	}

	var s Statistics
	s.TotalRecords = len(rows)
	totalCost := 0.0
	for _, row := range rows {
		s.TotalInputTokens += row.InputTokens
		s.TotalOutputTokens += row.OutputTokens
		totalCost += row.TotalPrice
		switch row.Source {
		case domain.SourceOldTable:
			s.OldTableRecords++
		case domain.SourceNewTable:
			s.NewTableRecords++
		}
	}
	s.TotalTokens = s.TotalInputTokens + s.TotalOutputTokens
	s.TotalInputCost = round6(float64(s.TotalInputTokens) * 0.003 / 1000)
	s.TotalOutputCost = round6(float64(s.TotalOutputTokens) * 0.015 / 1000)
	s.TotalCost = round6(totalCost)

	n := float64(len(rows))
	s.AverageCostPerRecord = round6(totalCost / n)
	s.AverageInputTokens = round2(float64(s.TotalInputTokens) / n)
	s.AverageOutputTokens = round2(float64(s.TotalOutputTokens) / n)
	return s
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
func round2(v float64) float64 { return math.Round(v*1e2) / 1e2 }
