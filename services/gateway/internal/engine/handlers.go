package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
)

// maxRequestBody bounds the execute-query body.
const maxRequestBody = 1 << 20

func writeJSONResponse(e *Engine, w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		e.logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse maps err to its status code. Connection and internal
// failures are logged with detail and answered with a generic message.
func writeErrorResponse(e *Engine, w http.ResponseWriter, r *http.Request, err error) {
	kind := adapter.KindOf(err)
	statusCode := adapter.HTTPStatus(kind)
	message := err.Error()

	switch kind {
	case adapter.KindConnection, adapter.KindInternal:
		e.logger.WithFields(map[string]string{
			"request_id": RequestID(r.Context()),
			"kind":       string(kind),
		}).Error(fmt.Sprintf("HTTP %d: %v", statusCode, err))
		message = "internal server error"
	default:
		if statusCode >= 500 {
			e.logger.Errorf("HTTP %d - %s: %s", statusCode, kind, message)
		} else {
			e.logger.Warnf("HTTP %d - %s: %s", statusCode, kind, message)
		}
	}
	e.countError()

	writeJSONResponse(e, w, statusCode, ErrorResponse{
		Error:   string(kind),
		Message: message,
		Status:  StatusError,
	})
}

// connection resolves a store, treating unconnected stores as missing.
func (e *Engine) connection(name string) (adapter.Connection, error) {
	if e.stores != nil {
		if conn, ok := e.stores.Lookup(name); ok {
			return conn, nil
		}
	}
	return nil, adapter.NewNotFoundError("Database", name)
}

// DatabaseHandlers contains the database endpoint handlers
type DatabaseHandlers struct {
	engine *Engine
}

// NewDatabaseHandlers creates a new instance of DatabaseHandlers
func NewDatabaseHandlers(engine *Engine) *DatabaseHandlers {
	return &DatabaseHandlers{
		engine: engine,
	}
}

// ListDatabases handles GET /api/databases
func (dh *DatabaseHandlers) ListDatabases(w http.ResponseWriter, r *http.Request) {
	dh.engine.TrackOperation()
	defer dh.engine.UntrackOperation()

	databases := make([]DatabaseInfo, 0)
	if dh.engine.config != nil {
		for _, store := range dh.engine.config.Databases {
			kind, ok := store.Kind()
			if !ok {
				continue
			}
			databases = append(databases, DatabaseInfo{
				Name:   store.Name,
				Type:   kind,
				Family: dbcapabilities.MustGet(kind).Paradigm,
			})
		}
	}

	writeJSONResponse(dh.engine, w, http.StatusOK, databases)
}

// ListTables handles GET /api/databases/{db}/tables
func (dh *DatabaseHandlers) ListTables(w http.ResponseWriter, r *http.Request) {
	dh.engine.TrackOperation()
	defer dh.engine.UntrackOperation()

	conn, err := dh.engine.connection(mux.Vars(r)["db"])
	if err != nil {
		writeErrorResponse(dh.engine, w, r, err)
		return
	}

	relations, err := conn.ListRelations(r.Context())
	if err != nil {
		writeErrorResponse(dh.engine, w, r, err)
		return
	}

	writeJSONResponse(dh.engine, w, http.StatusOK, relations)
}

// GetTableSchema handles GET /api/databases/{db}/tables/{table}/schema
func (dh *DatabaseHandlers) GetTableSchema(w http.ResponseWriter, r *http.Request) {
	dh.engine.TrackOperation()
	defer dh.engine.UntrackOperation()

	vars := mux.Vars(r)
	conn, err := dh.engine.connection(vars["db"])
	if err != nil {
		writeErrorResponse(dh.engine, w, r, err)
		return
	}

	table, err := conn.Introspect(r.Context(), vars["table"])
	if err != nil {
		writeErrorResponse(dh.engine, w, r, err)
		return
	}

	writeJSONResponse(dh.engine, w, http.StatusOK, table)
}

// SchemaHandlers serves the aggregated schema snapshot
type SchemaHandlers struct {
	engine *Engine
}

func NewSchemaHandlers(engine *Engine) *SchemaHandlers {
	return &SchemaHandlers{
		engine: engine,
	}
}

// GetSchema handles GET /api/schema
func (sh *SchemaHandlers) GetSchema(w http.ResponseWriter, r *http.Request) {
	sh.engine.TrackOperation()
	defer sh.engine.UntrackOperation()

	snapshot, err := sh.engine.schema.Snapshot(r.Context())
	if err != nil {
		writeErrorResponse(sh.engine, w, r, err)
		return
	}
	writeJSONResponse(sh.engine, w, http.StatusOK, snapshot)
}

// RefreshSchema handles POST /api/schema/refresh
func (sh *SchemaHandlers) RefreshSchema(w http.ResponseWriter, r *http.Request) {
	sh.engine.TrackOperation()
	defer sh.engine.UntrackOperation()

	sh.engine.logger.Info("Refreshing schema snapshot")

	snapshot, err := sh.engine.schema.Refresh(r.Context())
	if err != nil {
		writeErrorResponse(sh.engine, w, r, err)
		return
	}
	writeJSONResponse(sh.engine, w, http.StatusOK, snapshot)
}

// QueryHandlers runs queries against one store
type QueryHandlers struct {
	engine *Engine
}

func NewQueryHandlers(engine *Engine) *QueryHandlers {
	return &QueryHandlers{
		engine: engine,
	}
}

// ExecuteQuery handles POST /api/execute-query
func (qh *QueryHandlers) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	qh.engine.TrackOperation()
	defer qh.engine.UntrackOperation()

	req, err := decodeExecuteRequest(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeErrorResponse(qh.engine, w, r, err)
		return
	}

	resp, err := qh.engine.Execute(r.Context(), req)
	if err != nil {
		writeErrorResponse(qh.engine, w, r, err)
		return
	}

	writeJSONResponse(qh.engine, w, http.StatusOK, resp)
}

func decodeExecuteRequest(body io.Reader) (*ExecuteQueryRequest, error) {
	var req ExecuteQueryRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, adapter.BadRequest("Request body is required")
		}
		return nil, adapter.BadRequest("Invalid request body: %v", err)
	}
	if strings.TrimSpace(req.DBName) == "" {
		return nil, adapter.BadRequest("db_name is required")
	}
	return &req, nil
}

// Execute runs one request against its store.
func (e *Engine) Execute(ctx context.Context, req *ExecuteQueryRequest) (*ExecuteQueryResponse, error) {
	conn, err := e.connection(req.DBName)
	if err != nil {
		return nil, err
	}

	e.logger.Debugf("Execute query on %s", req.DBName)

	result, err := conn.Execute(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, err
	}

	return &ExecuteQueryResponse{
		Result:        result.Data,
		Plan:          result.Plan,
		ExecutionTime: result.ExecutionTime.Seconds(),
	}, nil
}
