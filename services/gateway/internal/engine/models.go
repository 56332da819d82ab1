package engine

import (
	"encoding/json"

	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/health"
)

// Status represents the status of an operation
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusError     Status = "error"
	StatusFailure   Status = "failure"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  Status `json:"status"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    Status `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	Stores    int    `json:"stores"`
}

// DatabaseInfo describes one configured store.
type DatabaseInfo struct {
	Name   string                      `json:"name"`
	Type   dbcapabilities.DatabaseType `json:"type"`
	Family dbcapabilities.DataParadigm `json:"family"`
}

// ExecuteQueryRequest is the body of POST /api/execute-query.
type ExecuteQueryRequest struct {
	DBName string `json:"db_name"`
	Query  string `json:"query"`
	Limit  *int   `json:"limit,omitempty"`
}

// ExecuteQueryResponse carries one query result. ExecutionTime is seconds.
type ExecuteQueryResponse struct {
	Result        json.RawMessage `json:"result"`
	Message       *string         `json:"message"`
	AffectedRows  *int64          `json:"affected_rows"`
	Plan          json.RawMessage `json:"plan"`
	ExecutionTime float64         `json:"executionTime"`
}

// StatusResponse is returned by /api/status.
type StatusResponse struct {
	Status  health.Status    `json:"status"`
	Checks  []health.Check   `json:"checks"`
	Metrics map[string]int64 `json:"metrics"`
}
