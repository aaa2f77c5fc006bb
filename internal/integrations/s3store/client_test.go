package s3store

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"tokens-report/internal/domain"
)

type fakeAPI struct {
	getOut  *s3.GetObjectOutput
	getErr  error
	putErr  error
	lastGet *s3.GetObjectInput
	lastPut *s3.PutObjectInput
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastGet = in
	return f.getOut, f.getErr
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.lastPut = in
	return &s3.PutObjectOutput{}, f.putErr
}

func mustNewClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	c, err := New(api, "test-bucket")
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "b")
	require.Error(t, err)
	_, err = New(&fakeAPI{}, "")
	require.Error(t, err)
}

func TestRead_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("a,b\n1,2\n"))}}
	c := mustNewClient(t, api)
	data, err := c.Read(context.Background(), "reports/table.csv")
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2\n", string(data))
	require.Equal(t, "reports/table.csv", *api.lastGet.Key)
	require.Equal(t, "test-bucket", *api.lastGet.Bucket)
}

func TestRead_MissingKeyIsNotFound(t *testing.T) {
	api := &fakeAPI{getErr: &types.NoSuchKey{}}
	c := mustNewClient(t, api)
	_, err := c.Read(context.Background(), "missing.csv")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRead_OtherErrorsPassThrough(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("boom")}
	c := mustNewClient(t, api)
	_, err := c.Read(context.Background(), "k")
	require.Error(t, err)
	require.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestWrite_HappyPath(t *testing.T) {
	api := &fakeAPI{}
	c := mustNewClient(t, api)
	err := c.Write(context.Background(), "reports/out.csv", []byte("x"), "text/csv")
	require.NoError(t, err)
	require.NotNil(t, api.lastPut)
	require.Equal(t, "reports/out.csv", *api.lastPut.Key)
	require.Equal(t, "text/csv", *api.lastPut.ContentType)
}

func TestWrite_Error(t *testing.T) {
	api := &fakeAPI{putErr: errors.New("denied")}
	c := mustNewClient(t, api)
	err := c.Write(context.Background(), "k", nil, "text/csv")
	require.Error(t, err)
}

func TestURL(t *testing.T) {
	c := mustNewClient(t, &fakeAPI{})
	require.Equal(t, "s3://test-bucket/reports/out.csv", c.URL("reports/out.csv"))
}
