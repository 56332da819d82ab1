package search

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

type fakeClient struct {
	indices     *response
	mappings    map[string]*response
	searchRes   *response
	searchErr   error
	searchIndex string
	searchBody  string
}

func (f *fakeClient) info(context.Context) (*response, error) {
	return &response{status: 200, body: []byte(`{}`)}, nil
}

func (f *fakeClient) catIndices(context.Context) (*response, error) {
	return f.indices, nil
}

func (f *fakeClient) mapping(_ context.Context, index string) (*response, error) {
	if res, ok := f.mappings[index]; ok {
		return res, nil
	}
	return &response{status: 404, body: []byte(`{}`)}, nil
}

func (f *fakeClient) search(_ context.Context, index string, body io.Reader) (*response, error) {
	data, _ := io.ReadAll(body)
	f.searchIndex = index
	f.searchBody = string(data)
	return f.searchRes, f.searchErr
}

func newTestConnection(f *fakeClient) *Connection {
	return newConnection(f, dbcapabilities.OpenSearch, adapter.ConnectionConfig{Name: "search"}, nil)
}

func TestListRelations(t *testing.T) {
	f := &fakeClient{indices: &response{status: 200, body: []byte(
		`[{"index":"logs"},{"index":".kibana"},{"index":"_hidden"},{"index":"audit"}]`,
	)}}
	relations, err := newTestConnection(f).ListRelations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []unifiedmodel.RelationDescriptor{
		{Name: "audit", Type: unifiedmodel.RelationTable},
		{Name: "logs", Type: unifiedmodel.RelationTable},
	}, relations)
}

func TestIntrospect(t *testing.T) {
	f := &fakeClient{mappings: map[string]*response{
		"logs": {status: 200, body: []byte(
			`{"logs":{"mappings":{"properties":{"msg":{"type":"text"},"at":{"type":"date"},"meta":{"properties":{}}}}}}`,
		)},
		"empty": {status: 200, body: []byte(`{"empty":{"mappings":{}}}`)},
	}}
	conn := newTestConnection(f)

	schema, err := conn.Introspect(context.Background(), "logs")
	require.NoError(t, err)
	require.Len(t, schema.Columns, 3)
	assert.Equal(t, "at", schema.Columns[0].Name)
	assert.Equal(t, "meta", schema.Columns[1].Name)
	assert.Equal(t, "msg", schema.Columns[2].Name)
	for _, col := range schema.Columns {
		assert.True(t, col.IsNullable)
		assert.False(t, col.IsPk)
		assert.False(t, col.IsUnique)
	}
	assert.Equal(t, unifiedmodel.ToColumnType(dbcapabilities.OpenSearch, "object"), schema.Columns[1].DataType)

	_, err = conn.Introspect(context.Background(), "empty")
	assert.Equal(t, adapter.KindQuery, adapter.KindOf(err))

	_, err = conn.Introspect(context.Background(), "missing")
	assert.Equal(t, adapter.KindNotFound, adapter.KindOf(err))
}

func TestSanitize(t *testing.T) {
	conn := newTestConnection(&fakeClient{})

	out, err := conn.Sanitize(context.Background(), `{"query":{"match_all":{}}}`, 10)
	require.NoError(t, err)
	assert.Equal(t, `{"query":{"match_all":{}}}`, out)

	_, err = conn.Sanitize(context.Background(), `match_all`, 10)
	assert.Equal(t, adapter.KindBadRequest, adapter.KindOf(err))
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		index     string
		body      string
		res       *response
		searchErr error
		kind      adapter.ErrorKind
	}{
		{
			name:  "envelope picks index",
			query: `{"index":"logs","query":{"match_all":{}}}`,
			index: "logs",
			body:  `{"query":{"match_all":{}}}`,
			res:   &response{status: 200, body: []byte(`{"hits":{"total":{"value":0}}}`)},
		},
		{
			name:  "no envelope searches every index",
			query: `{"query":{"match_all":{}}}`,
			body:  `{"query":{"match_all":{}}}`,
			res:   &response{status: 200, body: []byte(`{"hits":{}}`)},
		},
		{
			name:  "error status",
			query: `{"query":{"bad":{}}}`,
			body:  `{"query":{"bad":{}}}`,
			res:   &response{status: 400, body: []byte(`{"error":"parsing_exception"}`)},
			kind:  adapter.KindQuery,
		},
		{
			name:      "transport failure",
			query:     `{}`,
			body:      `{}`,
			searchErr: errors.New("connection refused"),
			kind:      adapter.KindQuery,
		},
		{
			name:  "index must be a string",
			query: `{"index":5}`,
			kind:  adapter.KindBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeClient{searchRes: tt.res, searchErr: tt.searchErr}
			result, err := newTestConnection(f).Execute(context.Background(), tt.query, nil)
			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, adapter.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.index, f.searchIndex)
			assert.JSONEq(t, tt.body, f.searchBody)
			assert.JSONEq(t, string(tt.res.body), string(result.Data))
			assert.Nil(t, result.Plan)
		})
	}
}

func TestNewEndpoint(t *testing.T) {
	e := newEndpoint(&dbcapabilities.ConnectionDetails{
		Host: "es", Port: 9243, Username: "elastic", Password: "pw", SSL: true,
		Parameters: map[string]string{"insecure": "true"},
	})
	assert.Equal(t, "https://es:9243", e.address)
	assert.Equal(t, "elastic", e.username)
	assert.NotNil(t, e.transport())

	e = newEndpoint(&dbcapabilities.ConnectionDetails{Host: "localhost", Port: 9200})
	assert.Equal(t, "http://localhost:9200", e.address)
	assert.Nil(t, e.transport())
}
