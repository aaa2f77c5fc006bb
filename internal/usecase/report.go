package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tokens-report/internal/consolidate"
	"tokens-report/internal/domain"
	"tokens-report/internal/normalize"
	"tokens-report/internal/report"
	"tokens-report/internal/tokens"
)

// ViewRefreshFailed is the sentinel execution ID reported when the view
// refresh fails. The failure is non-fatal; the run still succeeds.
const ViewRefreshFailed = "error"

const dateLayout = "2006-01-02 15:04:05"

type RecordSource interface {
	FetchPage(ctx context.Context, cursor domain.PageCursor) ([]domain.RawRecord, domain.PageCursor, error)
}

type TableStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, body []byte, contentType string) error
	URL(key string) string
}

type ViewRefresher interface {
	StartQuery(ctx context.Context, sql string) (string, error)
}

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Config carries the run parameters. All values are injected at process
// entry; the service never reads ambient process state.
type Config struct {
	OutputKey     string
	HistoricalKey string
	ViewName      string

	// Date-filter window. A zero WindowEnd means "end of today".
	WindowStart time.Time
	WindowEnd   time.Time

	// ParamPrefix enables optional SSM overrides of the window bounds
	// (<prefix>/filter_date_start, <prefix>/filter_date_end, YYYY-MM-DD).
	// Empty disables the lookup.
	ParamPrefix string
}

// Summary is the structured result of a successful run.
type Summary struct {
	Message        string            `json:"message"`
	RunID          string            `json:"run_id"`
	Statistics     report.Statistics `json:"statistics"`
	ProcessedCount int               `json:"processed_count"`
	FilteredCount  int               `json:"filtered_count"`
	ErrorCount     int               `json:"error_count"`
	S3File         string            `json:"s3_file"`
	AthenaQueryID  string            `json:"athena_query_id,omitempty"`
	Timestamp      string            `json:"timestamp"`
}

// ReportService runs the token extraction pipeline end to end: scan the
// record store, normalize, consolidate with the published historical
// table, republish, refresh the reporting view.
type ReportService struct {
	source RecordSource
	store  TableStore
	view   ViewRefresher
	params ParamGetter
	cfg    Config
	log    *slog.Logger

	windowMu     sync.RWMutex
	windowLoaded bool
	window       normalize.Window
}

// NewReportService wires the service. view and params may be nil: without
// a view refresher the refresh step is skipped, without a param getter the
// static window is used as-is.
func NewReportService(source RecordSource, store TableStore, view ViewRefresher, params ParamGetter, cfg Config, log *slog.Logger) (*ReportService, error) {
	if source == nil {
		return nil, errors.New("usecase: record source must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: table store must not be nil")
	}
	if strings.TrimSpace(cfg.OutputKey) == "" {
		return nil, errors.New("usecase: output key must not be empty")
	}
	if strings.TrimSpace(cfg.HistoricalKey) == "" {
		return nil, errors.New("usecase: historical key must not be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReportService{source: source, store: store, view: view, params: params, cfg: cfg, log: log}, nil
}

// Run executes the consolidated report: new-table records under the v2
// ruleset merged with the published historical set.
func (s *ReportService) Run(ctx context.Context) (Summary, error) {
	runID := newRunID()
	log := s.log.With("run_id", runID)
	window := s.ensureWindow(ctx)
	log.Info("starting consolidated token report",
		"window_start", window.StartMillis, "window_end", window.EndMillis)

	batch, err := s.extract(ctx, tokens.V2Ruleset(), window, domain.SourceNewTable, log)
	if err != nil {
		return Summary{}, err
	}

	historical := s.readHistorical(ctx, log)
	merged := consolidate.Merge(historical, batch.Rows)
	if len(merged) == 0 {
		merged = []domain.Row{placeholderRow(domain.SourceEmpty)}
	}

	if err := s.publish(ctx, s.cfg.OutputKey, merged); err != nil {
		return Summary{}, err
	}
	stats := report.Compute(merged)

	queryID := ""
	if s.view != nil {
		queryID, err = s.view.StartQuery(ctx, viewQuery(s.cfg.ViewName))
		if err != nil {
			// Non-fatal: the table is already published.
			log.Error("view refresh failed", "view", s.cfg.ViewName, "err", err)
			queryID = ViewRefreshFailed
		}
	}

	log.Info("consolidated run complete",
		"total_records", stats.TotalRecords,
		"total_cost", stats.TotalCost,
		"s3_file", s.store.URL(s.cfg.OutputKey))

	return Summary{
		Message:        "consolidated token report complete",
		RunID:          runID,
		Statistics:     stats,
		ProcessedCount: batch.Processed,
		FilteredCount:  batch.Filtered,
		ErrorCount:     batch.Errored,
		S3File:         s.store.URL(s.cfg.OutputKey),
		AthenaQueryID:  queryID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// RunHistorical reprocesses the old table under the frozen legacy ruleset
// and publishes the historical CSV the consolidated run reads. No
// consolidation, no view refresh.
func (s *ReportService) RunHistorical(ctx context.Context) (Summary, error) {
	runID := newRunID()
	log := s.log.With("run_id", runID)
	window := s.ensureWindow(ctx)
	log.Info("starting historical reprocessing",
		"window_start", window.StartMillis, "window_end", window.EndMillis)

	batch, err := s.extract(ctx, tokens.LegacyRuleset(), window, domain.SourceOldTable, log)
	if err != nil {
		return Summary{}, err
	}

	rows := batch.Rows
	if len(rows) == 0 {
		rows = []domain.Row{placeholderRow(domain.SourceOldTable)}
	}
	if err := s.publish(ctx, s.cfg.HistoricalKey, rows); err != nil {
		return Summary{}, err
	}
	stats := report.Compute(rows)

	log.Info("historical run complete",
		"total_records", stats.TotalRecords,
		"s3_file", s.store.URL(s.cfg.HistoricalKey))

	return Summary{
		Message:        "historical table processing complete",
		RunID:          runID,
		Statistics:     stats,
		ProcessedCount: batch.Processed,
		FilteredCount:  batch.Filtered,
		ErrorCount:     batch.Errored,
		S3File:         s.store.URL(s.cfg.HistoricalKey),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// extract scans the whole table and normalizes every record.
func (s *ReportService) extract(ctx context.Context, rules tokens.Ruleset, window normalize.Window, source string, log *slog.Logger) (normalize.BatchResult, error) {
	raw, err := s.fetchAll(ctx)
	if err != nil {
		return normalize.BatchResult{}, newError(ErrorSource, "record_scan_error", err)
	}
	log.Info("records fetched", "count", len(raw), "source", source)

	norm, err := normalize.New(rules, window, source, log)
	if err != nil {
		return normalize.BatchResult{}, newError(ErrorInternal, "normalizer_init_error", err)
	}
	batch := norm.NormalizeBatch(raw)
	log.Info("records normalized",
		"processed", batch.Processed, "filtered", batch.Filtered, "errored", batch.Errored)
	return batch, nil
}

// fetchAll drains the record source page by page until the cursor runs
// out. Sequential on purpose: one scan is in flight at a time.
func (s *ReportService) fetchAll(ctx context.Context) ([]domain.RawRecord, error) {
	var all []domain.RawRecord
	var cursor domain.PageCursor
	for {
		recs, next, err := s.source.FetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
		if next == nil {
			return all, nil
		}
		cursor = next
	}
}

// readHistorical loads the previously published historical table. Any
// failure here is non-fatal: the run continues with new data only.
func (s *ReportService) readHistorical(ctx context.Context, log *slog.Logger) []domain.Row {
	data, err := s.store.Read(ctx, s.cfg.HistoricalKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("historical table not found, continuing with new data only",
				"key", s.cfg.HistoricalKey)
		} else {
			log.Warn("historical table read failed, continuing with new data only",
				"key", s.cfg.HistoricalKey, "err", err)
		}
		return nil
	}
	rows, err := report.Decode(data)
	if err != nil {
		log.Warn("historical table decode failed, continuing with new data only",
			"key", s.cfg.HistoricalKey, "err", err)
		return nil
	}
	log.Info("historical rows loaded", "count", len(rows))
	return rows
}

func (s *ReportService) publish(ctx context.Context, key string, rows []domain.Row) error {
	data, err := report.Encode(rows)
	if err != nil {
		return newError(ErrorInternal, "csv_encode_error", err)
	}
	if err := s.store.Write(ctx, key, data, report.ContentType); err != nil {
		return newError(ErrorPublish, "table_upload_error", err)
	}
	return nil
}

// ensureWindow resolves the date window once per service, applying the
// optional SSM overrides on top of the static configuration.
func (s *ReportService) ensureWindow(ctx context.Context) normalize.Window {
	s.windowMu.RLock()
	if s.windowLoaded {
		w := s.window
		s.windowMu.RUnlock()
		return w
	}
	s.windowMu.RUnlock()

	s.windowMu.Lock()
	defer s.windowMu.Unlock()
	if s.windowLoaded {
		return s.window
	}

	start, end := s.cfg.WindowStart, s.cfg.WindowEnd
	if s.params != nil && s.cfg.ParamPrefix != "" {
		prefix := strings.TrimRight(s.cfg.ParamPrefix, "/")
		if d, ok := s.dateParam(ctx, prefix+"/filter_date_start"); ok {
			start = DayStart(d)
		}
		if d, ok := s.dateParam(ctx, prefix+"/filter_date_end"); ok {
			end = DayEnd(d)
		}
	}
	if end.IsZero() {
		end = DayEnd(time.Now().UTC())
	}

	s.window = normalize.NewWindow(start, end)
	s.windowLoaded = true
	return s.window
}

func (s *ReportService) dateParam(ctx context.Context, name string) (time.Time, bool) {
	v, err := s.params.GetParameter(ctx, name)
	if err != nil {
		// Missing overrides are the normal case.
		s.log.Debug("window override not applied", "param", name, "err", err)
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", strings.TrimSpace(v))
	if err != nil {
		s.log.Warn("window override ignored, bad date", "param", name, "value", v)
		return time.Time{}, false
	}
	return d, true
}

// DayStart returns midnight UTC of d's date.
func DayStart(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// DayEnd returns the last representable millisecond of d's date in UTC.
func DayEnd(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC)
}

// placeholderRow keeps the published table non-empty so downstream
// consumers always see the fixed header plus at least one row.
func placeholderRow(source string) domain.Row {
	return domain.Row{
		CreateDate: time.Now().UTC().Format(dateLayout),
		PK:         "sin_datos",
		SK:         "sin_datos",
		Source:     source,
	}
}

// viewQuery builds the reporting view definition over the published
// table. Column aliases are part of the dashboard contract.
func viewQuery(viewName string) string {
	return fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS
SELECT
    create_date,
    input_token AS "token pregunta",
    output_token AS "token respuesta",
    input_token + output_token AS "total tokens",
    precio_token_input AS "precio total pregunta",
    precio_token_output AS "precio total respuesta",
    total_price AS "precio total",
    source AS "origen datos"
FROM tokens_table
WHERE input_token > 0 OR output_token > 0
ORDER BY create_date DESC`, viewName)
}

var newRunID = func() string {
	return uuid.NewString()
}
