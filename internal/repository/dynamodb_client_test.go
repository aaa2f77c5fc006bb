package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	outs       []*dynamodb.ScanOutput
	err        error
	calls      int
	lastInputs []*dynamodb.ScanInput
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.lastInputs = append(f.lastInputs, in)
	if f.err != nil {
		return nil, f.err
	}
	out := f.outs[f.calls]
	f.calls++
	return out, nil
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table")
	require.NoError(t, err)
	return c
}

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "t")
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, " ")
	require.Error(t, err)
}

func TestFetchPage_SinglePage(t *testing.T) {
	db := &fakeDynamo{outs: []*dynamodb.ScanOutput{{
		Items: []map[string]types.AttributeValue{
			{
				"PK":         s("P1"),
				"SK":         s("S1"),
				"CreateTime": n("1781524800000"),
				"MessageMap": s(`{"n":{"role":"user","content":"hi"}}`),
				"TotalPrice": n("0.5"),
			},
		},
	}}}
	c := mustNewClient(t, db)

	recs, next, err := c.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, next)
	require.Len(t, recs, 1)
	assert.Equal(t, "P1", recs[0].PK)
	assert.Equal(t, "S1", recs[0].SK)
	assert.Equal(t, int64(1781524800000), recs[0].CreateTime)
	assert.Equal(t, `{"n":{"role":"user","content":"hi"}}`, recs[0].MessageMap)
	assert.Equal(t, 0.5, recs[0].TotalPrice)
	require.Len(t, db.lastInputs, 1)
	assert.Nil(t, db.lastInputs[0].ExclusiveStartKey)
}

func TestFetchPage_CursorThreadsThrough(t *testing.T) {
	key := map[string]types.AttributeValue{"PK": s("P1"), "SK": s("S1")}
	db := &fakeDynamo{outs: []*dynamodb.ScanOutput{
		{Items: []map[string]types.AttributeValue{{"PK": s("P1"), "SK": s("S1")}}, LastEvaluatedKey: key},
		{Items: []map[string]types.AttributeValue{{"PK": s("P2"), "SK": s("S2")}}},
	}}
	c := mustNewClient(t, db)

	recs, next, err := c.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Len(t, recs, 1)

	recs, next, err = c.FetchPage(context.Background(), next)
	require.NoError(t, err)
	require.Nil(t, next)
	require.Len(t, recs, 1)
	assert.Equal(t, key, db.lastInputs[1].ExclusiveStartKey)
}

func TestFetchPage_BadCursorType(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})
	_, _, err := c.FetchPage(context.Background(), "not a key")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected cursor type")
}

func TestFetchPage_ScanError(t *testing.T) {
	db := &fakeDynamo{err: errors.New("boom")}
	c := mustNewClient(t, db)
	_, _, err := c.FetchPage(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "FetchPage")
}

func TestRecordFromItem_StructuredMessageMap(t *testing.T) {
	item := map[string]types.AttributeValue{
		"PK": s("P1"),
		"SK": s("S1"),
		"MessageMap": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"n1": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"role":    s("user"),
				"content": s("hello"),
				"turns":   n("3"),
				"score":   n("0.25"),
			}},
		}},
	}
	rec := recordFromItem(item)
	mm, ok := rec.MessageMap.(map[string]any)
	require.True(t, ok)
	node, ok := mm["n1"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", node["role"])
	// Exact integers stay integral, fractions become floats.
	assert.Equal(t, int64(3), node["turns"])
	assert.Equal(t, 0.25, node["score"])
}

func TestRecordFromItem_MissingAttributes(t *testing.T) {
	rec := recordFromItem(map[string]types.AttributeValue{})
	assert.Equal(t, "", rec.PK)
	assert.Nil(t, rec.CreateTime)
	assert.Nil(t, rec.MessageMap)
	assert.Equal(t, 0.0, rec.TotalPrice)
}

func TestAttrToNative_List(t *testing.T) {
	av := &types.AttributeValueMemberL{Value: []types.AttributeValue{
		s("a"), n("1"), &types.AttributeValueMemberBOOL{Value: true}, &types.AttributeValueMemberNULL{Value: true},
	}}
	require.Equal(t, []any{"a", int64(1), true, nil}, attrToNative(av))
}
