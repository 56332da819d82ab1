package engine

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type Server struct {
	engine          *Engine
	router          *mux.Router
	handler         http.Handler
	databaseHandler *DatabaseHandlers
	schemaHandler   *SchemaHandlers
	queryHandler    *QueryHandlers
	middleware      *Middleware
}

func NewServer(engine *Engine) *Server {
	s := &Server{
		engine:          engine,
		router:          mux.NewRouter(),
		databaseHandler: NewDatabaseHandlers(engine),
		schemaHandler:   NewSchemaHandlers(engine),
		queryHandler:    NewQueryHandlers(engine),
		middleware:      NewMiddleware(engine),
	}
	s.setupRoutes()
	s.setupMiddleware()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	// Authentication only runs on matched routes
	s.router.Use(s.middleware.AuthenticationMiddleware)

	// CORS and request logging wrap the router so preflight and unmatched
	// requests get them too
	s.handler = s.middleware.CORSMiddleware(s.middleware.RequestLoggingMiddleware(s.router))
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	databases := api.PathPrefix("/databases").Subrouter()
	databases.HandleFunc("", s.databaseHandler.ListDatabases).Methods(http.MethodGet)
	databases.HandleFunc("/{db}/tables", s.databaseHandler.ListTables).Methods(http.MethodGet)
	databases.HandleFunc("/{db}/tables/{table}/schema", s.databaseHandler.GetTableSchema).Methods(http.MethodGet)

	api.HandleFunc("/schema", s.schemaHandler.GetSchema).Methods(http.MethodGet)
	api.HandleFunc("/schema/refresh", s.schemaHandler.RefreshSchema).Methods(http.MethodPost)

	api.HandleFunc("/execute-query", s.queryHandler.ExecuteQuery).Methods(http.MethodPost)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stores := 0
	if s.engine.stores != nil {
		stores = s.engine.stores.Len()
	}
	writeJSONResponse(s.engine, w, http.StatusOK, HealthResponse{
		Status:    StatusHealthy,
		Service:   "gateway",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Stores:    stores,
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(s.engine, w, http.StatusOK, map[string]string{"message": "pong"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.engine.CheckHealth(r.Context())
	writeJSONResponse(s.engine, w, http.StatusOK, StatusResponse{
		Status:  s.engine.health.GetOverallStatus(),
		Checks:  s.engine.health.GetAllChecks(),
		Metrics: s.engine.GetMetrics(),
	})
}
