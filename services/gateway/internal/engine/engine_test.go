package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/config"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/health"
	"github.com/redbco/redb-gateway/pkg/logger"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
	"github.com/redbco/redb-gateway/services/gateway/internal/database/dbtest"
	"github.com/redbco/redb-gateway/services/gateway/internal/schema"
)

type fakeStores map[string]adapter.Connection

func (f fakeStores) Lookup(name string) (adapter.Connection, bool) {
	c, ok := f[name]
	return c, ok
}

func (f fakeStores) Len() int { return len(f) }

func newTestEngine(t *testing.T, secret string, conns ...*dbtest.Connection) *Engine {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{AllowedOrigin: "https://app.example.com"},
		Auth:   config.AuthConfig{JWTSecret: secret},
	}
	stores := fakeStores{}
	names := make([]string, 0, len(conns))
	for _, c := range conns {
		stores[c.StoreName] = c
		names = append(names, c.StoreName)
		cfg.Databases = append(cfg.Databases, config.StoreConfig{
			Name:       c.StoreName,
			Type:       string(c.Type()),
			ConnString: "unused",
		})
	}
	// A configured store without a live connection.
	cfg.Databases = append(cfg.Databases, config.StoreConfig{Name: "offline", Type: "redis", ConnString: "redis://nowhere"})
	names = append(names, "offline")

	log := logger.NewNop()
	aggregator := schema.NewAggregator(stores, names, false, 0, log)
	return NewEngine(cfg, stores, schema.NewService(aggregator, time.Minute, true), log)
}

func usersStore() *dbtest.Connection {
	return &dbtest.Connection{
		StoreName: "main",
		Kind:      dbcapabilities.PostgreSQL,
		Relations: []unifiedmodel.RelationDescriptor{{Name: "public.users", Type: unifiedmodel.RelationTable}},
		Schemas: map[string]*unifiedmodel.RelationSchema{
			"public.users": unifiedmodel.NewRelationSchema("public.users", []unifiedmodel.ColumnDescriptor{
				{Name: "id", DataType: unifiedmodel.Typed(unifiedmodel.TagInteger), IsPk: true},
			}),
		},
		ExecuteFunc: func(raw string, limit *int) (*unifiedmodel.QueryResult, error) {
			if raw == "boom" {
				return nil, errors.New("driver exploded")
			}
			if raw == "DELETE FROM users" {
				return nil, adapter.BadRequest("only read-only queries are allowed")
			}
			return &unifiedmodel.QueryResult{
				Data:          json.RawMessage(`[{"id":1}]`),
				ExecutionTime: 1500 * time.Millisecond,
				Plan:          json.RawMessage(`{"Node Type":"Seq Scan"}`),
			}, nil
		},
	}
}

func serve(e *Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthAndPing(t *testing.T) {
	e := newTestEngine(t, "", usersStore())

	w := serve(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "gateway", resp.Service)
	assert.Equal(t, 1, resp.Stores)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = serve(e, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestListDatabases(t *testing.T) {
	e := newTestEngine(t, "", usersStore())

	w := serve(e, httptest.NewRequest(http.MethodGet, "/api/databases", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"name":"main","type":"postgres","family":"relational"},
		{"name":"offline","type":"redis","family":"keyvalue"}
	]`, w.Body.String())
}

func TestTableRoutes(t *testing.T) {
	e := newTestEngine(t, "", usersStore())

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{
			name:   "list tables",
			path:   "/api/databases/main/tables",
			status: http.StatusOK,
			body:   `[{"name":"public.users","type":"table"}]`,
		},
		{
			name:   "table schema",
			path:   "/api/databases/main/tables/public.users/schema",
			status: http.StatusOK,
			body:   `{"tableName":"public.users","columns":[{"name":"id","dataType":"Integer","isNullable":false,"isPk":true,"isUnique":true}]}`,
		},
		{
			name:   "unknown table",
			path:   "/api/databases/main/tables/orders/schema",
			status: http.StatusNotFound,
		},
		{
			name:   "unconnected store",
			path:   "/api/databases/offline/tables",
			status: http.StatusNotFound,
			body:   `{"error":"NotFound","message":"Database 'offline' not found","status":"error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(e, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestSchemaRoutes(t *testing.T) {
	store := usersStore()
	e := newTestEngine(t, "", store)

	for i := 0; i < 3; i++ {
		w := serve(e, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var snapshot unifiedmodel.FullSchemaSnapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
		require.Len(t, snapshot.Databases, 1)
		assert.Equal(t, "main", snapshot.Databases[0].Name)
		assert.Len(t, snapshot.Databases[0].Tables, 1)
	}
	assert.Equal(t, int32(1), store.ListCalls.Load())

	w := serve(e, httptest.NewRequest(http.MethodPost, "/api/schema/refresh", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(2), store.ListCalls.Load())
}

func TestExecuteQuery(t *testing.T) {
	e := newTestEngine(t, "", usersStore())

	tests := []struct {
		name   string
		body   string
		status int
		check  func(t *testing.T, body []byte)
	}{
		{
			name:   "success",
			body:   `{"db_name":"main","query":"SELECT * FROM users","limit":5}`,
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.JSONEq(t, `{
					"result":[{"id":1}],
					"message":null,
					"affected_rows":null,
					"plan":{"Node Type":"Seq Scan"},
					"executionTime":1.5
				}`, string(body))
			},
		},
		{
			name:   "missing store",
			body:   `{"db_name":"nope","query":"SELECT 1"}`,
			status: http.StatusNotFound,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "Database 'nope' not found")
			},
		},
		{
			name:   "rejected query",
			body:   `{"db_name":"main","query":"DELETE FROM users"}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "only read-only queries are allowed")
			},
		},
		{
			name:   "internal failure hides detail",
			body:   `{"db_name":"main","query":"boom"}`,
			status: http.StatusInternalServerError,
			check: func(t *testing.T, body []byte) {
				assert.NotContains(t, string(body), "driver exploded")
				assert.Contains(t, string(body), `"error":"Internal"`)
			},
		},
		{
			name:   "malformed body",
			body:   `{"db_name":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "empty body",
			body:   ``,
			status: http.StatusBadRequest,
		},
		{
			name:   "missing db name",
			body:   `{"query":"SELECT 1"}`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/execute-query", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := serve(e, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.check != nil {
				tt.check(t, w.Body.Bytes())
			}
		})
	}
}

func TestExecutePassesLimit(t *testing.T) {
	var seen *int
	store := usersStore()
	store.ExecuteFunc = func(raw string, limit *int) (*unifiedmodel.QueryResult, error) {
		seen = limit
		return &unifiedmodel.QueryResult{}, nil
	}
	e := newTestEngine(t, "", store)

	resp, err := e.Execute(context.Background(), &ExecuteQueryRequest{DBName: "main", Query: "SELECT 1"})
	require.NoError(t, err)
	assert.Nil(t, seen)
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"result":null`)

	limit := 7
	_, err = e.Execute(context.Background(), &ExecuteQueryRequest{DBName: "main", Query: "SELECT 1", Limit: &limit})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, 7, *seen)
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, expires time.Time) string {
	t.Helper()
	return signClaims(t, secret, method, jwt.RegisteredClaims{
		Subject:   "tester",
		ExpiresAt: jwt.NewNumericDate(expires),
	})
}

func signClaims(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, Claims{RegisteredClaims: claims})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthentication(t *testing.T) {
	const secret = "s3cret"
	e := newTestEngine(t, secret, usersStore())

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"health is exempt", "/health", "", http.StatusOK},
		{"missing token", "/api/ping", "", http.StatusUnauthorized},
		{"wrong scheme", "/api/ping", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/api/ping", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "/api/ping", "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", "/api/ping", "Bearer " + signToken(t, secret, jwt.SigningMethodHS256, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"wrong algorithm", "/api/ping", "Bearer " + signToken(t, secret, jwt.SigningMethodHS512, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"missing exp", "/api/ping", "Bearer " + signClaims(t, secret, jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "tester"}), http.StatusUnauthorized},
		{"missing sub", "/api/ping", "Bearer " + signClaims(t, secret, jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}), http.StatusUnauthorized},
		{"valid", "/api/ping", "Bearer " + signToken(t, secret, jwt.SigningMethodHS256, time.Now().Add(time.Hour)), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(e, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCORSAndRequestID(t *testing.T) {
	e := newTestEngine(t, "s3cret", usersStore())

	req := httptest.NewRequest(http.MethodOptions, "/api/execute-query", nil)
	w := serve(e, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w = serve(e, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestCheckHealthAndMetrics(t *testing.T) {
	store := usersStore()
	e := newTestEngine(t, "", store)

	failures := e.CheckHealth(context.Background())
	assert.Len(t, failures, 1)
	assert.Contains(t, failures, "offline")

	serve(e, httptest.NewRequest(http.MethodGet, "/api/databases/offline/tables", nil))
	metrics := e.GetMetrics()
	assert.Equal(t, int64(1), metrics["requests_processed"])
	assert.Equal(t, int64(1), metrics["errors"])
	assert.Equal(t, int64(0), metrics["ongoing_operations"])
}

func TestStatusRoute(t *testing.T) {
	e := newTestEngine(t, "", usersStore())

	w := serve(e, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, health.StatusDegraded, status.Status)
	require.Len(t, status.Checks, 2)
	assert.Equal(t, "main", status.Checks[0].Name)
	assert.Equal(t, health.StatusHealthy, status.Checks[0].Status)
	assert.Equal(t, "offline", status.Checks[1].Name)
	assert.Equal(t, health.StatusUnhealthy, status.Checks[1].Status)
}

func TestStartStop(t *testing.T) {
	e := newTestEngine(t, "", usersStore())
	e.config.Server.Addr = "127.0.0.1:0"

	require.NoError(t, e.Start(context.Background()))
	assert.Error(t, e.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Stop(ctx))
	assert.NoError(t, e.Stop(ctx))
}
