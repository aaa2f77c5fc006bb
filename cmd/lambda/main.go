package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsathena "github.com/aws/aws-sdk-go-v2/service/athena"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"tokens-report/handler"
	"tokens-report/internal/integrations/athenaview"
	"tokens-report/internal/integrations/paramstore"
	"tokens-report/internal/integrations/s3store"
	"tokens-report/internal/repository"
	"tokens-report/internal/usecase"
)

func main() {
	ctx := context.Background()
	log := slog.Default()

	// ---- Configuration (read only here) ----
	tableName := mustEnv("DYNAMODB_TABLE_NAME")
	bucket := mustEnv("S3_BUCKET_NAME")
	outputPrefix := envOr("S3_OUTPUT_PREFIX", "tokens-analysis/")
	oldDataPrefix := envOr("S3_OLD_DATA_PREFIX", "tokens-analysis/historical/")
	athenaDatabase := mustEnv("ATHENA_DATABASE")
	athenaWorkgroup := os.Getenv("ATHENA_WORKGROUP")
	athenaOutput := os.Getenv("ATHENA_OUTPUT_LOCATION")
	viewName := envOr("ATHENA_VIEW_NAME", "tokens_usage_analysis")
	paramPrefix := os.Getenv("PARAM_PREFIX")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	recordClient, err := repository.New(awsdynamodb.NewFromConfig(cfg), tableName)
	if err != nil {
		log.Error("failed to create record client", "err", err)
		os.Exit(1)
	}
	tableStore, err := s3store.New(awss3.NewFromConfig(cfg), bucket)
	if err != nil {
		log.Error("failed to create table store", "err", err)
		os.Exit(1)
	}
	viewClient, err := athenaview.New(awsathena.NewFromConfig(cfg), athenaDatabase, athenaWorkgroup, athenaOutput)
	if err != nil {
		log.Error("failed to create Athena client", "err", err)
		os.Exit(1)
	}

	var params usecase.ParamGetter
	if paramPrefix != "" {
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
		if err != nil {
			log.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		params = ssmClient
	}

	svcCfg := usecase.Config{
		OutputKey:     outputPrefix + "tokens_analysis_consolidated.csv",
		HistoricalKey: oldDataPrefix + "tokens_analysis_old_table.csv",
		ViewName:      viewName,
		WindowStart:   envDate("FILTER_DATE_START", usecase.DayStart, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		WindowEnd:     envDate("FILTER_DATE_END", usecase.DayEnd, time.Time{}),
		ParamPrefix:   paramPrefix,
	}

	// ---- Handler ----
	service, err := usecase.NewReportService(recordClient, tableStore, viewClient, params, svcCfg, log)
	if err != nil {
		log.Error("failed to create report service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewHandler(service, log)
	if err != nil {
		log.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDate(key string, bound func(time.Time) time.Time, def time.Time) time.Time {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		slog.Error("environment variable is not a valid date", "key", key, "value", v)
		os.Exit(1)
	}
	return bound(d)
}
