// Package normalize turns raw conversation records into flat report rows:
// timestamp parsing and date-window filtering, message-map recovery, token
// extraction and pricing.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"tokens-report/internal/domain"
	"tokens-report/internal/tokens"
)

// InvalidDateSentinel is emitted as the create_date when a record carries
// a timestamp that cannot be parsed. Such records are neither filtered
// nor dropped; they still proceed to token extraction. The literal value
// is part of the published table and must not change between runs.
const InvalidDateSentinel = "Fecha inválida"

const dateLayout = "2006-01-02 15:04:05"

// Pricing rates per token, applied to the extracted counts.
const (
	inputRatePer1000  = 0.003
	outputRatePer1000 = 0.015
)

// Window is the inclusive millisecond-epoch range a record's timestamp
// must fall into. Records with unparsable or absent timestamps bypass the
// filter entirely.
type Window struct {
	StartMillis int64
	EndMillis   int64
}

// NewWindow builds a Window from time bounds.
func NewWindow(start, end time.Time) Window {
	return Window{StartMillis: start.UnixMilli(), EndMillis: end.UnixMilli()}
}

// Outcome reports what happened to a single record.
type Outcome int

const (
	OutcomeProcessed Outcome = iota
	OutcomeFiltered
)

// Normalizer converts raw records into rows under a fixed ruleset, date
// window and provenance tag.
type Normalizer struct {
	rules  tokens.Ruleset
	window Window
	source string
	log    *slog.Logger
}

// New creates a Normalizer. source tags every produced row with its
// logical origin table.
func New(rules tokens.Ruleset, window Window, source string, log *slog.Logger) (*Normalizer, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.New("normalize: source tag must not be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{rules: rules, window: window, source: source, log: log}, nil
}

// NormalizeRecord produces zero or one row for a raw record.
//
// A non-nil error means the record itself is broken in a way the degrade
// paths do not cover (a bug upstream, not bad data); the batch driver
// counts and drops it. Recoverable conditions — unparsable dates,
// malformed or empty message maps — never surface as errors.
func (n *Normalizer) NormalizeRecord(rec domain.RawRecord) (domain.Row, Outcome, error) {
	createDate := ""
	if !timestampAbsent(rec.CreateTime) {
		ts, ok := parseMillis(rec.CreateTime)
		if !ok {
			createDate = InvalidDateSentinel
		} else {
			createDate = time.UnixMilli(ts).UTC().Format(dateLayout)
			if ts < n.window.StartMillis || ts > n.window.EndMillis {
				return domain.Row{}, OutcomeFiltered, nil
			}
		}
	}

	messageMap, err := n.resolveMessageMap(rec)
	if err != nil {
		return domain.Row{}, OutcomeProcessed, err
	}

	var counts tokens.Counts
	totalPrice := 0.0
	if isEmpty(messageMap) {
		// No usable structure: zero tokens, fall back to the price stored
		// with the record. The (1,1) floor does not apply here.
		totalPrice = rec.TotalPrice
	} else {
		counts, err = n.rules.Walk(messageMap)
		if err != nil {
			n.log.Warn("message map degraded to floor counts",
				"pk", rec.PK, "sk", rec.SK, "err", err)
		}
		totalPrice = round6(inputPrice(counts.Input) + outputPrice(counts.Output))
	}

	return domain.Row{
		CreateDate:   createDate,
		InputTokens:  counts.Input,
		OutputTokens: counts.Output,
		InputPrice:   inputPrice(counts.Input),
		OutputPrice:  outputPrice(counts.Output),
		TotalPrice:   totalPrice,
		PK:           rec.PK,
		SK:           rec.SK,
		Source:       n.source,
	}, OutcomeProcessed, nil
}

// BatchResult accumulates the rows and run counters for one batch.
type BatchResult struct {
	Rows      []domain.Row
	Processed int
	Filtered  int
	Errored   int
}

// NormalizeBatch applies NormalizeRecord to every record, isolating
// per-record failures: one broken record is counted and dropped, the
// rest of the batch continues.
func (n *Normalizer) NormalizeBatch(recs []domain.RawRecord) BatchResult {
	res := BatchResult{Rows: make([]domain.Row, 0, len(recs))}
	for i, rec := range recs {
		row, outcome, err := n.normalizeIsolated(rec)
		if err != nil {
			res.Errored++
			n.log.Warn("record dropped", "index", i, "pk", rec.PK, "sk", rec.SK, "err", err)
			continue
		}
		if outcome == OutcomeFiltered {
			res.Filtered++
			continue
		}
		res.Rows = append(res.Rows, row)
		res.Processed++
	}
	return res
}

func (n *Normalizer) normalizeIsolated(rec domain.RawRecord) (row domain.Row, outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("normalize: record panicked: %v", r)
		}
	}()
	return n.NormalizeRecord(rec)
}

// resolveMessageMap turns the record's polymorphic MessageMap into a
// walkable value: textual payloads are parsed (with repair attempts),
// structured payloads pass through as converted by the repository.
func (n *Normalizer) resolveMessageMap(rec domain.RawRecord) (any, error) {
	switch v := rec.MessageMap.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		parsed := parseMessageMapJSON(v)
		if parsed == nil {
			n.log.Warn("unparsable message map", "pk", rec.PK, "sk", rec.SK)
		}
		return parsed, nil
	case map[string]any, []any, bool, float64, int64, int:
		return v, nil
	default:
		return nil, fmt.Errorf("normalize: unsupported message map type %T", v)
	}
}

// parseMessageMapJSON parses an embedded JSON document, retrying once
// with line breaks stripped and once with the known malformed-quote
// corruption repaired. Returns nil when every attempt fails.
func parseMessageMapJSON(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(s)
	if err := json.Unmarshal([]byte(cleaned), &v); err == nil {
		return v
	}
	// Known corruption pattern: an empty body serialized as `ody": ",`.
	if strings.Contains(s, `ody": ",`) {
		fixed := strings.ReplaceAll(s, `ody": ",`, `ody": "",`)
		if err := json.Unmarshal([]byte(fixed), &v); err == nil {
			return v
		}
	}
	return nil
}

// timestampAbsent mirrors the falsy check the pipeline has always done:
// nil, empty string and numeric zero all mean "no timestamp".
func timestampAbsent(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case int64:
		return t == 0
	case int:
		return t == 0
	case float64:
		return t == 0
	}
	return false
}

func parseMillis(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// isEmpty reports whether a resolved message map holds no usable
// structure. Empty containers, empty strings and zero scalars all count
// as empty; this is what keeps the asymmetry between the zero-token path
// and the walker's (1,1) floor.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int64:
		return t == 0
	case int:
		return t == 0
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

func inputPrice(inputTokens int) float64 {
	return round6(float64(inputTokens) * inputRatePer1000 / 1000)
}

func outputPrice(outputTokens int) float64 {
	return round6(float64(outputTokens) * outputRatePer1000 / 1000)
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
