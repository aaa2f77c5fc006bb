// Package athenaview starts Athena queries for the reporting view.
package athenaview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

// athenaAPI is the minimal Athena interface required by Client.
// *athena.Client from aws-sdk-go-v2 satisfies this interface.
type athenaAPI interface {
	StartQueryExecution(ctx context.Context, in *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
}

// Client executes queries against a fixed database, workgroup and result
// location.
type Client struct {
	api            athenaAPI
	database       string
	workgroup      string
	outputLocation string
}

// New creates a Client.
func New(api athenaAPI, database, workgroup, outputLocation string) (*Client, error) {
	if api == nil {
		return nil, errors.New("athenaview: api must not be nil")
	}
	if strings.TrimSpace(database) == "" {
		return nil, errors.New("athenaview: database must not be empty")
	}
	return &Client{
		api:            api,
		database:       database,
		workgroup:      workgroup,
		outputLocation: outputLocation,
	}, nil
}

// StartQuery submits a query and returns its execution ID. The query runs
// asynchronously; this client does not wait for completion.
func (c *Client) StartQuery(ctx context.Context, sql string) (string, error) {
	if strings.TrimSpace(sql) == "" {
		return "", errors.New("athenaview: query must not be empty")
	}

	in := &athena.StartQueryExecutionInput{
		QueryString: &sql,
		QueryExecutionContext: &types.QueryExecutionContext{
			Database: &c.database,
		},
	}
	if c.workgroup != "" {
		in.WorkGroup = &c.workgroup
	}
	if c.outputLocation != "" {
		in.ResultConfiguration = &types.ResultConfiguration{
			OutputLocation: &c.outputLocation,
		}
	}

	out, err := c.api.StartQueryExecution(ctx, in)
	if err != nil {
		return "", fmt.Errorf("athenaview: start query execution: %w", err)
	}
	if out == nil || out.QueryExecutionId == nil {
		return "", errors.New("athenaview: missing query execution id")
	}
	return *out.QueryExecutionId, nil
}
