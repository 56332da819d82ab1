package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// Context keys
const (
	claimsContextKey    contextKey = "claims"
	requestIDContextKey contextKey = "request_id"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Claims are the accepted bearer token claims.
type Claims struct {
	jwt.RegisteredClaims
}

// Middleware contains the request pipeline shared by every route
type Middleware struct {
	engine *Engine
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(engine *Engine) *Middleware {
	return &Middleware{
		engine: engine,
	}
}

// CORSMiddleware allows the configured origin and answers preflight requests.
func (m *Middleware) CORSMiddleware(next http.Handler) http.Handler {
	origin := "*"
	if m.engine.config != nil && m.engine.config.Server.AllowedOrigin != "" {
		origin = m.engine.config.Server.AllowedOrigin
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLoggingMiddleware assigns a request id and logs every request.
func (m *Middleware) RequestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDContextKey, requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		m.engine.logger.WithFields(map[string]string{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     strconv.Itoa(rec.status),
			"duration":   duration.String(),
		}).Info("request handled")
	})
}

// AuthenticationMiddleware validates HS256 bearer tokens when a secret is configured
func (m *Middleware) AuthenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := m.secret()
		if secret == nil || m.shouldSkipAuth(r) {
			next.ServeHTTP(w, r)
			return
		}

		token := m.extractBearerToken(r)
		if token == "" {
			m.writeErrorResponse(w, http.StatusUnauthorized, "Authorization token is required", "")
			return
		}

		claims, err := parseToken(token, secret)
		if err != nil {
			m.writeErrorResponse(w, http.StatusUnauthorized, "Authentication failed", err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) secret() []byte {
	if m.engine.config == nil || m.engine.config.Auth.JWTSecret == "" {
		return nil
	}
	return []byte(m.engine.config.Auth.JWTSecret)
}

func parseToken(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// shouldSkipAuth determines if authentication should be skipped for a route
func (m *Middleware) shouldSkipAuth(r *http.Request) bool {
	// Skip authentication for health checks
	if r.URL.Path == "/health" && r.Method == http.MethodGet {
		return true
	}
	return r.Method == http.MethodOptions
}

// extractBearerToken extracts the bearer token from the Authorization header
func (m *Middleware) extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// writeErrorResponse writes an error response in JSON format
func (m *Middleware) writeErrorResponse(w http.ResponseWriter, statusCode int, message, error string) {
	m.engine.logger.Warnf("HTTP %d - %s: %s", statusCode, message, error)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   error,
		Message: message,
		Status:  StatusFailure,
	}

	json.NewEncoder(w).Encode(response)
}

// RequestID returns the id assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
