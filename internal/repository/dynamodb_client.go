package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"tokens-report/internal/domain"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Client reads conversation records from a DynamoDB table via exhaustive
// Scan pagination.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// FetchPage returns one page of records. Pass a nil cursor to start from
// the beginning; a nil next cursor means the table is exhausted. The
// cursor is DynamoDB's LastEvaluatedKey and is opaque to callers.
func (c *Client) FetchPage(ctx context.Context, cursor domain.PageCursor) ([]domain.RawRecord, domain.PageCursor, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(c.tableName)}
	if cursor != nil {
		startKey, ok := cursor.(map[string]types.AttributeValue)
		if !ok {
			return nil, nil, fmt.Errorf("repository: FetchPage: unexpected cursor type %T", cursor)
		}
		in.ExclusiveStartKey = startKey
	}

	out, err := c.api.Scan(ctx, in)
	if err != nil {
		return nil, nil, fmt.Errorf("repository: FetchPage scan: %w", err)
	}

	records := make([]domain.RawRecord, 0, len(out.Items))
	for _, item := range out.Items {
		records = append(records, recordFromItem(item))
	}

	var next domain.PageCursor
	if len(out.LastEvaluatedKey) > 0 {
		next = out.LastEvaluatedKey
	}
	return records, next, nil
}

// recordFromItem maps a DynamoDB item to a RawRecord. A MessageMap
// stored as a string attribute stays textual; structured maps are
// converted to native values up front so the extraction layer never sees
// DynamoDB types.
func recordFromItem(item map[string]types.AttributeValue) domain.RawRecord {
	rec := domain.RawRecord{
		PK: strAttr(item, "PK"),
		SK: strAttr(item, "SK"),
	}
	if av, ok := item["CreateTime"]; ok {
		rec.CreateTime = attrToNative(av)
	}
	if av, ok := item["MessageMap"]; ok {
		rec.MessageMap = attrToNative(av)
	}
	if av, ok := item["TotalPrice"]; ok {
		switch v := attrToNative(av).(type) {
		case float64:
			rec.TotalPrice = v
		case int64:
			rec.TotalPrice = float64(v)
		}
	}
	return rec
}

// attrToNative converts a DynamoDB attribute value into a plain Go value,
// recursively through maps and lists. Number attributes become int64 when
// they are exact integers, float64 otherwise.
func attrToNative(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return numberToNative(v.Value)
	case *types.AttributeValueMemberBOOL:
		return v.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberM:
		m := make(map[string]any, len(v.Value))
		for k, nested := range v.Value {
			m[k] = attrToNative(nested)
		}
		return m
	case *types.AttributeValueMemberL:
		l := make([]any, 0, len(v.Value))
		for _, nested := range v.Value {
			l = append(l, attrToNative(nested))
		}
		return l
	case *types.AttributeValueMemberSS:
		l := make([]any, 0, len(v.Value))
		for _, s := range v.Value {
			l = append(l, s)
		}
		return l
	case *types.AttributeValueMemberNS:
		l := make([]any, 0, len(v.Value))
		for _, s := range v.Value {
			l = append(l, numberToNative(s))
		}
		return l
	}
	return nil
}

// numberToNative keeps exact integers integral; anything else becomes
// floating. Numbers that parse as neither stay strings.
func numberToNative(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func strAttr(item map[string]types.AttributeValue, key string) string {
	v, ok := item[key]
	if !ok {
		return ""
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return s.Value
}
