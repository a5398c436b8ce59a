package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/auth"
)

const excludedMessage = "This PR is not suitable for notification."

type HTTPServer struct {
	service    *Service
	apiToken   string
	corsOrigin string
}

func NewHTTPServer(service *Service, apiToken, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, apiToken: apiToken, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "Hello, Manifesto Notify Bot!")
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/health" {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	if strings.HasPrefix(r.URL.Path, "/api/") {
		if !s.requireToken(w, r) {
			return
		}
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/manifestos/notify" {
		s.handleNotify(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/manifestos/notify/histories" {
		s.handleListHistories(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/manifestos" {
		s.handleCreateManifesto(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/manifestos" {
		items, err := s.service.ListManifestos(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"manifestos": items})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleNotify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GithubPRURL string `json:"githubPrUrl"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if strings.TrimSpace(body.GithubPRURL) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "GitHub PR URL is required", nil)
		return
	}

	outcome, err := s.service.NotifyManifesto(r.Context(), body.GithubPRURL)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if outcome.Skipped {
		writeJSON(w, http.StatusOK, map[string]any{"message": excludedMessage})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"manifestoId":   outcome.ManifestoID,
		"notifications": outcome.Results,
	})
}

func (s *HTTPServer) handleCreateManifesto(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string `json:"title"`
		Content     string `json:"content"`
		GithubPRURL string `json:"githubPrUrl"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if body.Title == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Title is required", nil)
		return
	}
	if body.Content == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Content is required", nil)
		return
	}
	if body.GithubPRURL == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "GitHub PR URL is required", nil)
		return
	}

	id, err := s.service.CreateManifesto(r.Context(), body.Title, body.Content, body.GithubPRURL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *HTTPServer) handleListHistories(w http.ResponseWriter, r *http.Request) {
	manifestoID := strings.TrimSpace(r.URL.Query().Get("manifestoId"))
	platform := strings.TrimSpace(r.URL.Query().Get("platform"))

	items, err := s.service.ListHistories(r.Context(), manifestoID, platform)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"histories": items})
}

func (s *HTTPServer) requireToken(w http.ResponseWriter, r *http.Request) bool {
	err := auth.Verify(s.apiToken, r.Header.Get("Authorization"))
	if err == nil {
		return true
	}
	if errors.Is(err, auth.ErrNoServerToken) {
		log.Printf("auth: %v", err)
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Internal server error", nil)
		return false
	}
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	return false
}

// fail logs the real error and sends the mapped response; internal detail
// never reaches the client.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Internal server error", nil
}
