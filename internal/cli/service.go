package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	awsathena "github.com/aws/aws-sdk-go-v2/service/athena"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/cobra"

	"tokens-report/internal/integrations/athenaview"
	"tokens-report/internal/integrations/paramstore"
	"tokens-report/internal/integrations/s3store"
	"tokens-report/internal/repository"
	"tokens-report/internal/usecase"
)

// serviceFlags are the AWS and report settings shared by the run and
// historical commands.
type serviceFlags struct {
	table          string
	bucket         string
	outputKey      string
	historicalKey  string
	athenaDatabase string
	athenaWork     string
	athenaOutput   string
	viewName       string
	paramPrefix    string
	startDate      string
	endDate        string
	skipView       bool
}

func (f *serviceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.table, "table", "", "DynamoDB table to scan (required)")
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "S3 bucket for the published tables (required)")
	cmd.Flags().StringVar(&f.outputKey, "output-key", "tokens-analysis/tokens_analysis_consolidated.csv", "S3 key of the consolidated table")
	cmd.Flags().StringVar(&f.historicalKey, "historical-key", "tokens-analysis/historical/tokens_analysis_old_table.csv", "S3 key of the historical table")
	cmd.Flags().StringVar(&f.athenaDatabase, "athena-database", "", "Athena database holding the reporting view")
	cmd.Flags().StringVar(&f.athenaWork, "athena-workgroup", "", "Athena workgroup")
	cmd.Flags().StringVar(&f.athenaOutput, "athena-output", "", "Athena query result location (s3://...)")
	cmd.Flags().StringVar(&f.viewName, "view", "tokens_usage_analysis", "Name of the reporting view")
	cmd.Flags().StringVar(&f.paramPrefix, "param-prefix", "", "SSM prefix for window overrides")
	cmd.Flags().StringVar(&f.startDate, "start", "", "Window start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.endDate, "end", "", "Window end date (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&f.skipView, "skip-view", false, "Publish the table without refreshing the Athena view")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("bucket")
}

func (f *serviceFlags) build(ctx context.Context) (*usecase.ReportService, error) {
	log := slog.Default()

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("cli: load AWS config: %w", err)
	}

	recordClient, err := repository.New(awsdynamodb.NewFromConfig(cfg), f.table)
	if err != nil {
		return nil, err
	}
	tableStore, err := s3store.New(awss3.NewFromConfig(cfg), f.bucket)
	if err != nil {
		return nil, err
	}

	var view usecase.ViewRefresher
	if !f.skipView && f.athenaDatabase != "" {
		viewClient, err := athenaview.New(awsathena.NewFromConfig(cfg), f.athenaDatabase, f.athenaWork, f.athenaOutput)
		if err != nil {
			return nil, err
		}
		view = viewClient
	}

	var params usecase.ParamGetter
	if f.paramPrefix != "" {
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
		if err != nil {
			return nil, err
		}
		params = ssmClient
	}

	window, err := f.window()
	if err != nil {
		return nil, err
	}

	return usecase.NewReportService(recordClient, tableStore, view, params, usecase.Config{
		OutputKey:     f.outputKey,
		HistoricalKey: f.historicalKey,
		ViewName:      f.viewName,
		WindowStart:   window.start,
		WindowEnd:     window.end,
		ParamPrefix:   f.paramPrefix,
	}, log)
}

type window struct {
	start time.Time
	end   time.Time
}

func (f *serviceFlags) window() (window, error) {
	var w window
	if f.startDate != "" {
		d, err := time.Parse("2006-01-02", f.startDate)
		if err != nil {
			return window{}, fmt.Errorf("cli: invalid --start date %q: %w", f.startDate, err)
		}
		w.start = usecase.DayStart(d)
	}
	if f.endDate != "" {
		d, err := time.Parse("2006-01-02", f.endDate)
		if err != nil {
			return window{}, fmt.Errorf("cli: invalid --end date %q: %w", f.endDate, err)
		}
		w.end = usecase.DayEnd(d)
	}
	return w, nil
}

func printSummary(summary usecase.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
